package repo

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memorySession struct {
	rec       SessionRecord
	expiresAt time.Time
}

// InMemorySessionRepository is an in-memory implementation of SessionRepository.
type InMemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
	now      func() time.Time
}

// NewInMemorySessionRepository creates a new instance of InMemorySessionRepository.
func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

func (r *InMemorySessionRepository) Get(_ context.Context, id string) (SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok || !r.now().Before(s.expiresAt) {
		return SessionRecord{}, ErrSessionNotFound
	}
	return copyRecord(s.rec), nil
}

func (r *InMemorySessionRepository) Save(_ context.Context, id string, rec SessionRecord, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[id] = memorySession{rec: copyRecord(rec), expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *InMemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *InMemorySessionRepository) Purge(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, s := range r.sessions {
		if !now.Before(s.expiresAt) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored records, expired ones included.
func (r *InMemorySessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func copyRecord(rec SessionRecord) SessionRecord {
	rec.Roles = slices.Clone(rec.Roles)
	if rec.Draft != nil {
		d := *rec.Draft
		rec.Draft = &d
	}
	return rec
}
