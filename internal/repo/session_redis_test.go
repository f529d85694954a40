package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rogerio-castellano/cellar-console/internal/models"
	"github.com/rogerio-castellano/cellar-console/internal/redissvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisSessionRepository(t *testing.T) (*RedisSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	svc := redissvc.NewRedisService(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { svc.Close() })
	return NewRedisSessionRepository(svc), mr
}

func TestRedisSessionRepository_SaveGetDelete(t *testing.T) {
	r, mr := setupRedisSessionRepository(t)
	ctx := context.Background()

	validated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	draft := models.EditDraft(models.Product{ID: 2, Name: "Rioja", Vintage: 2018, Price: 19.9, Stock: 12})
	rec := SessionRecord{Username: "ana", Password: "sealed", Roles: []string{"ADMIN", "USER"}, ValidatedAt: validated, Draft: &draft}

	require.NoError(t, r.Save(ctx, "abc", rec, time.Hour))
	assert.True(t, mr.Exists("cellar:session:abc"))
	assert.Equal(t, time.Hour, mr.TTL("cellar:session:abc"))

	got, err := r.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, rec.Username, got.Username)
	assert.Equal(t, rec.Password, got.Password)
	assert.Equal(t, rec.Roles, got.Roles)
	assert.True(t, validated.Equal(got.ValidatedAt))
	assert.Equal(t, draft, *got.Draft)

	require.NoError(t, r.Delete(ctx, "abc"))
	_, err = r.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionRepository_SaveReplacesFields(t *testing.T) {
	r, _ := setupRedisSessionRepository(t)
	ctx := context.Background()

	draft := models.NewDraft()
	require.NoError(t, r.Save(ctx, "abc", SessionRecord{Username: "ana", Password: "x", Draft: &draft}, time.Hour))
	require.NoError(t, r.Save(ctx, "abc", SessionRecord{Username: "ana", Password: "y"}, time.Hour))

	got, err := r.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "y", got.Password)
	assert.Nil(t, got.Draft)
	assert.Nil(t, got.Roles)
}

func TestRedisSessionRepository_Expiry(t *testing.T) {
	r, mr := setupRedisSessionRepository(t)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, "abc", SessionRecord{Username: "ana", Password: "x"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := r.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	n, err := r.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisSessionRepository_ServerDown(t *testing.T) {
	r, mr := setupRedisSessionRepository(t)
	mr.Close()

	_, err := r.Get(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}
