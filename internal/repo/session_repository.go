package repo

import (
	"context"
	"errors"
	"time"

	"github.com/rogerio-castellano/cellar-console/internal/models"
)

// SessionRecord is what the console keeps for one browser session. Password is stored
// exactly as given; callers encrypt it before saving.
type SessionRecord struct {
	Username    string
	Password    string
	Roles       []string
	ValidatedAt time.Time
	Draft       *models.Draft
}

// SessionRepository persists session records keyed by session id.
type SessionRepository interface {
	Get(ctx context.Context, id string) (SessionRecord, error)
	Save(ctx context.Context, id string, rec SessionRecord, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	// Purge removes expired records and returns how many were removed.
	Purge(ctx context.Context) (int, error)
}

// ErrSessionNotFound is returned when no live record exists for an id.
var ErrSessionNotFound = errors.New("session not found")
