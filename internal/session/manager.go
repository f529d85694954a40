package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"github.com/rogerio-castellano/cellar-console/internal/models"
	"github.com/rogerio-castellano/cellar-console/internal/repo"
	"go.uber.org/zap"
)

// ErrInvalidCredentials is reported for every failed login, whatever the cause.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Validator checks credentials against the backend.
type Validator interface {
	// ListProducts is the protected endpoint used to prove credentials work.
	ListProducts(ctx context.Context, creds backend.Credentials) ([]models.Product, error)
	UserInfo(ctx context.Context, creds backend.Credentials) (models.UserInfo, error)
}

type Options struct {
	// TTL is how long an idle session record is kept.
	TTL time.Duration
	// RevalidateAfter is how old a validation may be before Resolve checks the
	// credentials again. Zero revalidates on every call.
	RevalidateAfter time.Duration
}

// Manager owns the stored credentials of every session.
type Manager struct {
	sessions  repo.SessionRepository
	validator Validator
	cipher    *Cipher
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

func NewManager(sessions repo.SessionRepository, validator Validator, cipher *Cipher, opts Options, logger *zap.Logger) *Manager {
	return &Manager{
		sessions:  sessions,
		validator: validator,
		cipher:    cipher,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

func (m *Manager) anonymous(sid string) *Session {
	return &Session{id: sid, state: Anonymous{}, draft: models.NewDraft(), manager: m}
}

// Login validates the credentials with the backend and stores them under sid.
func (m *Manager) Login(ctx context.Context, sid, username, password string) (*Session, error) {
	creds := backend.Credentials{Username: username, Password: password}
	if !creds.Valid() {
		return m.anonymous(sid), ErrInvalidCredentials
	}

	if _, err := m.validator.ListProducts(ctx, creds); err != nil {
		m.logger.Info("login rejected", zap.String("username", username), zap.Error(err))
		if derr := m.sessions.Delete(ctx, sid); derr != nil {
			m.logger.Error("failed to clear session", zap.Error(derr))
		}
		return m.anonymous(sid), ErrInvalidCredentials
	}

	var roles []string
	if info, err := m.validator.UserInfo(ctx, creds); err != nil {
		m.logger.Warn("could not load user roles", zap.String("username", username), zap.Error(err))
	} else {
		roles = info.Roles
	}

	draft := models.NewDraft()
	rec := repo.SessionRecord{
		Username:    username,
		Roles:       roles,
		ValidatedAt: m.now(),
		Draft:       &draft,
	}
	if err := m.save(ctx, sid, rec, password); err != nil {
		return m.anonymous(sid), err
	}

	m.logger.Info("user logged in", zap.String("username", username))
	return &Session{
		id:      sid,
		state:   LogIn(username, roles),
		creds:   creds,
		draft:   draft,
		manager: m,
	}, nil
}

// Restore revalidates the credentials stored under sid. A failed validation clears them
// silently and yields an anonymous session.
func (m *Manager) Restore(ctx context.Context, sid string) (*Session, error) {
	rec, err := m.sessions.Get(ctx, sid)
	if errors.Is(err, repo.ErrSessionNotFound) {
		return m.anonymous(sid), nil
	}
	if err != nil {
		return nil, err
	}
	return m.restore(ctx, sid, rec)
}

func (m *Manager) restore(ctx context.Context, sid string, rec repo.SessionRecord) (*Session, error) {
	creds, ok := m.credentials(rec)
	if !ok {
		return m.discard(ctx, sid)
	}

	if _, err := m.validator.ListProducts(ctx, creds); err != nil {
		m.logger.Info("stored credentials no longer valid", zap.String("username", creds.Username), zap.Error(err))
		return m.discard(ctx, sid)
	}

	rec.ValidatedAt = m.now()
	if err := m.save(ctx, sid, rec, creds.Password); err != nil {
		return nil, err
	}
	return m.authenticated(sid, rec, creds), nil
}

// Resolve returns the session stored under sid, revalidating it when the last validation
// is older than Options.RevalidateAfter.
func (m *Manager) Resolve(ctx context.Context, sid string) (*Session, error) {
	if sid == "" {
		return m.anonymous(""), nil
	}

	rec, err := m.sessions.Get(ctx, sid)
	if errors.Is(err, repo.ErrSessionNotFound) {
		return m.anonymous(sid), nil
	}
	if err != nil {
		return nil, err
	}

	if m.now().Sub(rec.ValidatedAt) >= m.opts.RevalidateAfter {
		return m.restore(ctx, sid, rec)
	}

	creds, ok := m.credentials(rec)
	if !ok {
		return m.discard(ctx, sid)
	}
	return m.authenticated(sid, rec, creds), nil
}

// Logout forgets the stored credentials. The backend is not called.
func (m *Manager) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := m.sessions.Delete(ctx, sid); err != nil {
		return err
	}
	m.logger.Info("session logged out", zap.String("session_id", sid))
	return nil
}

// Expire forgets the stored credentials after the backend rejected them.
func (m *Manager) Expire(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := m.sessions.Delete(ctx, sid); err != nil {
		return err
	}
	m.logger.Info("session expired", zap.String("session_id", sid))
	return nil
}

func (m *Manager) saveDraft(ctx context.Context, sid string, d models.Draft) error {
	rec, err := m.sessions.Get(ctx, sid)
	if errors.Is(err, repo.ErrSessionNotFound) {
		return ErrNotAuthenticated
	}
	if err != nil {
		return err
	}
	rec.Draft = &d
	return m.sessions.Save(ctx, sid, rec, m.opts.TTL)
}

func (m *Manager) discard(ctx context.Context, sid string) (*Session, error) {
	if err := m.sessions.Delete(ctx, sid); err != nil {
		return nil, err
	}
	return m.anonymous(sid), nil
}

func (m *Manager) save(ctx context.Context, sid string, rec repo.SessionRecord, password string) error {
	sealed, err := m.cipher.Seal(password)
	if err != nil {
		return fmt.Errorf("failed to seal credentials: %w", err)
	}
	rec.Password = sealed
	return m.sessions.Save(ctx, sid, rec, m.opts.TTL)
}

func (m *Manager) credentials(rec repo.SessionRecord) (backend.Credentials, bool) {
	password, err := m.cipher.Open(rec.Password)
	if err != nil {
		m.logger.Warn("stored credentials unreadable", zap.Error(err))
		return backend.Credentials{}, false
	}
	creds := backend.Credentials{Username: rec.Username, Password: password}
	return creds, creds.Valid()
}

func (m *Manager) authenticated(sid string, rec repo.SessionRecord, creds backend.Credentials) *Session {
	draft := models.NewDraft()
	if rec.Draft != nil {
		draft = *rec.Draft
	}
	return &Session{
		id:      sid,
		state:   LogIn(rec.Username, rec.Roles),
		creds:   creds,
		draft:   draft,
		manager: m,
	}
}
