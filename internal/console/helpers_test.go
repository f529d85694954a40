package console_test

import (
	"context"
	"testing"
	"time"

	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"github.com/rogerio-castellano/cellar-console/internal/backend/backendtest"
	"github.com/rogerio-castellano/cellar-console/internal/console"
	"github.com/rogerio-castellano/cellar-console/internal/models"
	"github.com/rogerio-castellano/cellar-console/internal/repo"
	"github.com/rogerio-castellano/cellar-console/internal/session"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	backend *backendtest.Server
	client  *backend.Client
	store   *repo.InMemorySessionRepository
	manager *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := backendtest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("admin", "admin-password", models.RoleAdmin)
	srv.AddUser("clerk", "clerk-password", "USER")

	cipher, err := session.NewCipher("console-test")
	require.NoError(t, err)

	store := repo.NewInMemorySessionRepository()
	client := backend.NewClient(srv.BaseURL(), 5*time.Second, zap.NewNop())
	manager := session.NewManager(store, client, cipher, session.Options{TTL: time.Hour, RevalidateAfter: time.Hour}, zap.NewNop())

	return &fixture{backend: srv, client: client, store: store, manager: manager}
}

// login starts a session and clears the backend call log so tests only see their own calls.
func (f *fixture) login(t *testing.T, username, password string) *session.Session {
	t.Helper()
	sess, err := f.manager.Login(context.Background(), "sid-"+username, username, password)
	require.NoError(t, err)
	f.backend.ResetCalls()
	return sess
}

func (f *fixture) requireNoRecord(t *testing.T, sess *session.Session) {
	t.Helper()
	_, err := f.store.Get(context.Background(), sess.ID())
	require.ErrorIs(t, err, repo.ErrSessionNotFound)
}

func validInput() console.ProductInput {
	return console.ProductInput{
		Name:        "Barolo Riserva",
		Description: "Nebbiolo from Piedmont",
		Category:    "Red",
		Vintage:     "2016",
		Price:       "54.50",
		Stock:       "6",
	}
}
