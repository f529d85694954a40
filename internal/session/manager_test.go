package session

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"github.com/rogerio-castellano/cellar-console/internal/backend/backendtest"
	"github.com/rogerio-castellano/cellar-console/internal/models"
	"github.com/rogerio-castellano/cellar-console/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSID = "sid-1"

type fixture struct {
	manager *Manager
	store   *repo.InMemorySessionRepository
	backend *backendtest.Server
	clock   *time.Time
}

func newFixture(t *testing.T, revalidateAfter time.Duration) *fixture {
	t.Helper()

	srv := backendtest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("ana", "ana-password", models.RoleAdmin)
	srv.AddUser("bo", "bo-password", "USER")

	cipher, err := NewCipher("test-secret")
	require.NoError(t, err)

	store := repo.NewInMemorySessionRepository()
	client := backend.NewClient(srv.BaseURL(), 5*time.Second, zap.NewNop())
	m := NewManager(store, client, cipher, Options{TTL: time.Hour, RevalidateAfter: revalidateAfter}, zap.NewNop())

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	return &fixture{manager: m, store: store, backend: srv, clock: &clock}
}

func TestLogin_Succeeds(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	sess, err := f.manager.Login(ctx, testSID, "ana", "ana-password")
	require.NoError(t, err)

	assert.Equal(t, Authenticated{Username: "ana", Roles: []string{"ADMIN"}}, sess.State())
	assert.True(t, sess.IsAdmin())
	assert.Equal(t, backend.Credentials{Username: "ana", Password: "ana-password"}, sess.Credentials())
	assert.Equal(t, models.NewDraft(), sess.Draft())
	assert.Equal(t, 1, f.backend.CallCount(http.MethodGet, "/products"))

	rec, err := f.store.Get(ctx, testSID)
	require.NoError(t, err)
	assert.Equal(t, "ana", rec.Username)
	assert.NotEqual(t, "ana-password", rec.Password, "password must be stored encrypted")
	assert.Equal(t, *f.clock, rec.ValidatedAt)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		setup    func(f *fixture)
		requests int
	}{
		{name: "wrong password", username: "ana", password: "wrong", requests: 1},
		{name: "unknown user", username: "zed", password: "whatever", requests: 1},
		{name: "empty password sends nothing", username: "ana", password: "", requests: 0},
		{
			name:     "server error",
			username: "ana",
			password: "ana-password",
			setup:    func(f *fixture) { f.backend.Fail(http.MethodGet, "/products", http.StatusInternalServerError, "") },
			requests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, time.Minute)
			ctx := context.Background()
			require.NoError(t, f.store.Save(ctx, testSID, repo.SessionRecord{Username: "stale"}, time.Hour))
			if tt.setup != nil {
				tt.setup(f)
			}

			sess, err := f.manager.Login(ctx, testSID, tt.username, tt.password)

			require.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, Anonymous{}, sess.State())
			assert.Equal(t, tt.requests, f.backend.CallCount(http.MethodGet, "/products"))
			if tt.requests > 0 {
				_, err = f.store.Get(ctx, testSID)
				assert.ErrorIs(t, err, repo.ErrSessionNotFound, "stale record must be cleared")
			}
		})
	}
}

func TestLogin_RolesAreBestEffort(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.backend.Fail(http.MethodGet, "/auth/userinfo", http.StatusNotFound, "")

	sess, err := f.manager.Login(context.Background(), testSID, "ana", "ana-password")

	require.NoError(t, err)
	assert.True(t, sess.Authenticated())
	assert.False(t, sess.IsAdmin())
}

func TestResolve_RevalidatesOnlyWhenStale(t *testing.T) {
	f := newFixture(t, 10*time.Minute)
	ctx := context.Background()
	_, err := f.manager.Login(ctx, testSID, "bo", "bo-password")
	require.NoError(t, err)
	f.backend.ResetCalls()

	*f.clock = f.clock.Add(5 * time.Minute)
	sess, err := f.manager.Resolve(ctx, testSID)
	require.NoError(t, err)
	assert.Equal(t, "bo", sess.Username())
	assert.Empty(t, f.backend.Calls())

	*f.clock = f.clock.Add(10 * time.Minute)
	sess, err = f.manager.Resolve(ctx, testSID)
	require.NoError(t, err)
	assert.Equal(t, "bo", sess.Username())
	assert.Equal(t, 1, f.backend.CallCount(http.MethodGet, "/products"))

	rec, err := f.store.Get(ctx, testSID)
	require.NoError(t, err)
	assert.Equal(t, *f.clock, rec.ValidatedAt)
}

func TestRestore_DropsRejectedCredentialsSilently(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	_, err := f.manager.Login(ctx, testSID, "bo", "bo-password")
	require.NoError(t, err)

	f.backend.SetPassword("bo", "changed-password")

	sess, err := f.manager.Restore(ctx, testSID)
	require.NoError(t, err)
	assert.Equal(t, Anonymous{}, sess.State())

	_, err = f.store.Get(ctx, testSID)
	assert.ErrorIs(t, err, repo.ErrSessionNotFound)
}

func TestResolve_WithoutRecord(t *testing.T) {
	f := newFixture(t, 0)

	for _, sid := range []string{"", "unknown"} {
		sess, err := f.manager.Resolve(context.Background(), sid)
		require.NoError(t, err)
		assert.Equal(t, Anonymous{}, sess.State())
	}
	assert.Empty(t, f.backend.Calls())
}

func TestResolve_DiscardsUnreadablePassword(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, testSID, repo.SessionRecord{
		Username:    "bo",
		Password:    "plain-text-from-somewhere-else",
		ValidatedAt: *f.clock,
	}, time.Hour))

	sess, err := f.manager.Resolve(ctx, testSID)
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())
	assert.Equal(t, 0, f.store.Len())
}

func TestLogout_ForgetsCredentialsWithoutCallingBackend(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	_, err := f.manager.Login(ctx, testSID, "bo", "bo-password")
	require.NoError(t, err)
	f.backend.ResetCalls()

	require.NoError(t, f.manager.Logout(ctx, testSID))

	assert.Equal(t, 0, f.store.Len())
	assert.Empty(t, f.backend.Calls())
	assert.NoError(t, f.manager.Logout(ctx, ""))
}

func TestSession_ExpireClearsEverything(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	sess, err := f.manager.Login(ctx, testSID, "bo", "bo-password")
	require.NoError(t, err)
	require.NoError(t, sess.SetDraft(ctx, models.EditDraft(models.Product{ID: 3, Name: "Rioja"})))

	require.NoError(t, sess.Expire(ctx))

	assert.Equal(t, Expired{}, sess.State())
	assert.False(t, sess.Authenticated())
	assert.Equal(t, backend.Credentials{}, sess.Credentials())
	assert.Equal(t, models.NewDraft(), sess.Draft())
	assert.Equal(t, 0, f.store.Len())
}

func TestSession_DraftSurvivesResolve(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	sess, err := f.manager.Login(ctx, testSID, "bo", "bo-password")
	require.NoError(t, err)

	draft := models.EditDraft(models.Product{ID: 7, Name: "Chablis", Vintage: 2020})
	require.NoError(t, sess.SetDraft(ctx, draft))

	again, err := f.manager.Resolve(ctx, testSID)
	require.NoError(t, err)
	assert.Equal(t, draft, again.Draft())
}

func TestSession_SetDraftRequiresAuthentication(t *testing.T) {
	f := newFixture(t, time.Hour)
	sess, err := f.manager.Resolve(context.Background(), "")
	require.NoError(t, err)

	err = sess.SetDraft(context.Background(), models.NewDraft())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	s := &Session{id: "x", state: Anonymous{}}
	got, ok := FromContext(NewContext(context.Background(), s))
	require.True(t, ok)
	assert.Same(t, s, got)
}
