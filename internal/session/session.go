package session

import (
	"context"
	"errors"

	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"github.com/rogerio-castellano/cellar-console/internal/models"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Session is the per-browser context handed to every controller. Only the Manager writes
// the stored record behind it.
type Session struct {
	id      string
	state   State
	creds   backend.Credentials
	draft   models.Draft
	manager *Manager
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Authenticated() bool {
	_, ok := s.state.(Authenticated)
	return ok
}

// Username is empty unless the session is authenticated.
func (s *Session) Username() string {
	if a, ok := s.state.(Authenticated); ok {
		return a.Username
	}
	return ""
}

func (s *Session) IsAdmin() bool {
	a, ok := s.state.(Authenticated)
	return ok && a.IsAdmin()
}

func (s *Session) Credentials() backend.Credentials {
	return s.creds
}

func (s *Session) Draft() models.Draft {
	return s.draft
}

// SetDraft replaces and persists the product form draft.
func (s *Session) SetDraft(ctx context.Context, d models.Draft) error {
	if !s.Authenticated() {
		return ErrNotAuthenticated
	}
	if err := s.manager.saveDraft(ctx, s.id, d); err != nil {
		return err
	}
	s.draft = d
	return nil
}

// Expire clears the stored credentials after the backend rejected them.
func (s *Session) Expire(ctx context.Context) error {
	s.state = Expire(s.state)
	s.creds = backend.Credentials{}
	s.draft = models.NewDraft()
	return s.manager.Expire(ctx, s.id)
}
