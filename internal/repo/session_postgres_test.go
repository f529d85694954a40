package repo

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rogerio-castellano/cellar-console/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pgNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func setupPostgresSessionRepository(t *testing.T) (*PostgresSessionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := NewPostgresSessionRepository(db)
	r.now = func() time.Time { return pgNow }
	return r, mock
}

const selectSession = `SELECT username, password, roles, validated_at, draft FROM console_sessions WHERE id = $1 AND expires_at > $2`

func TestPostgresSessionRepository_Get(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(sqlmock.Sqlmock)
		want      SessionRecord
		wantErr   error
	}{
		{
			name: "found",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"username", "password", "roles", "validated_at", "draft"}).
					AddRow("ana", "sealed", "ADMIN,USER", pgNow, `{"mode":"editing","product":{"id":3,"name":"Gavi"}}`)
				mock.ExpectQuery(regexp.QuoteMeta(selectSession)).WithArgs("abc", pgNow).WillReturnRows(rows)
			},
			want: SessionRecord{
				Username:    "ana",
				Password:    "sealed",
				Roles:       []string{"ADMIN", "USER"},
				ValidatedAt: pgNow,
				Draft:       &models.Draft{Mode: models.DraftEditing, Product: models.Product{ID: 3, Name: "Gavi"}},
			},
		},
		{
			name: "null columns",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"username", "password", "roles", "validated_at", "draft"}).
					AddRow("bo", "sealed", "", nil, nil)
				mock.ExpectQuery(regexp.QuoteMeta(selectSession)).WithArgs("abc", pgNow).WillReturnRows(rows)
			},
			want: SessionRecord{Username: "bo", Password: "sealed"},
		},
		{
			name: "missing or expired",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(selectSession)).WithArgs("abc", pgNow).WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mock := setupPostgresSessionRepository(t)
			tt.setupMock(mock)

			got, err := r.Get(context.Background(), "abc")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresSessionRepository_GetDatabaseError(t *testing.T) {
	r, mock := setupPostgresSessionRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectSession)).WillReturnError(errors.New("connection reset"))

	_, err := r.Get(context.Background(), "abc")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestPostgresSessionRepository_Save(t *testing.T) {
	r, mock := setupPostgresSessionRepository(t)
	draft := models.NewDraft()

	mock.ExpectExec(`INSERT INTO console_sessions`).
		WithArgs("abc", "ana", "sealed", "ADMIN", pgNow, `{"mode":"creating","product":{"name":"","description":"","category":"","vintage":0,"price":0,"stock":0}}`, pgNow.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.Save(context.Background(), "abc", SessionRecord{
		Username:    "ana",
		Password:    "sealed",
		Roles:       []string{"ADMIN"},
		ValidatedAt: pgNow,
		Draft:       &draft,
	}, time.Hour)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessionRepository_SaveWithoutOptionalColumns(t *testing.T) {
	r, mock := setupPostgresSessionRepository(t)

	mock.ExpectExec(`INSERT INTO console_sessions`).
		WithArgs("abc", "ana", "sealed", "", nil, nil, pgNow.Add(time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.Save(context.Background(), "abc", SessionRecord{Username: "ana", Password: "sealed"}, time.Minute)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessionRepository_DeleteAndPurge(t *testing.T) {
	r, mock := setupPostgresSessionRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM console_sessions WHERE id = $1`)).
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM console_sessions WHERE expires_at <= $1`)).
		WithArgs(pgNow).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, r.Delete(context.Background(), "abc"))
	n, err := r.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
