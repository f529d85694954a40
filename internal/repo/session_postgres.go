package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PostgresSessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db, now: time.Now}
}

func (r *PostgresSessionRepository) Get(ctx context.Context, id string) (SessionRecord, error) {
	query := `SELECT username, password, roles, validated_at, draft FROM console_sessions WHERE id = $1 AND expires_at > $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		rec         SessionRecord
		roles       string
		validatedAt sql.NullTime
		draft       sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id, r.now()).Scan(&rec.Username, &rec.Password, &roles, &validatedAt, &draft)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("failed to read session: %w", err)
	}

	rec.Roles = splitRoles(roles)
	if validatedAt.Valid {
		rec.ValidatedAt = validatedAt.Time
	}
	if rec.Draft, err = decodeDraft(draft.String); err != nil {
		return SessionRecord{}, err
	}
	return rec, nil
}

func (r *PostgresSessionRepository) Save(ctx context.Context, id string, rec SessionRecord, ttl time.Duration) error {
	query := `INSERT INTO console_sessions (id, username, password, roles, validated_at, draft, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			password = EXCLUDED.password,
			roles = EXCLUDED.roles,
			validated_at = EXCLUDED.validated_at,
			draft = EXCLUDED.draft,
			expires_at = EXCLUDED.expires_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	draft, err := encodeDraft(rec.Draft)
	if err != nil {
		return err
	}

	validatedAt := sql.NullTime{Time: rec.ValidatedAt, Valid: !rec.ValidatedAt.IsZero()}
	draftCol := sql.NullString{String: draft, Valid: draft != ""}

	_, err = r.db.ExecContext(ctx, query, id, rec.Username, rec.Password, joinRoles(rec.Roles), validatedAt, draftCol, r.now().Add(ttl))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM console_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) Purge(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM console_sessions WHERE expires_at <= $1`, r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
