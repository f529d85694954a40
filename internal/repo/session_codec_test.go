package repo

import (
	"testing"
	"time"

	"github.com/rogerio-castellano/cellar-console/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoles(t *testing.T) {
	assert.Equal(t, "", joinRoles(nil))
	assert.Nil(t, splitRoles(""))
	assert.Equal(t, []string{"ADMIN", "USER"}, splitRoles(joinRoles([]string{"ADMIN", "USER"})))
}

func TestDraftEncoding(t *testing.T) {
	s, err := encodeDraft(nil)
	require.NoError(t, err)
	assert.Empty(t, s)

	d, err := decodeDraft("")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = decodeDraft("{not json")
	assert.Error(t, err)

	s, err = encodeDraft(&models.Draft{Mode: models.DraftEditing, Product: models.Product{ID: 9, Name: "Tokaji"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"editing","product":{"id":9,"name":"Tokaji","description":"","category":"","vintage":0,"price":0,"stock":0}}`, s)
}

func TestTimeEncoding(t *testing.T) {
	assert.Empty(t, formatTime(time.Time{}))

	zero, err := parseTime("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	ts := time.Date(2024, 5, 1, 12, 30, 0, 123, time.FixedZone("CEST", 2*3600))
	back, err := parseTime(formatTime(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(back))
}
