package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rogerio-castellano/cellar-console/internal/auth"
	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"github.com/rogerio-castellano/cellar-console/internal/backend/backendtest"
	api "github.com/rogerio-castellano/cellar-console/internal/http"
	"github.com/rogerio-castellano/cellar-console/internal/http/ban"
	"github.com/rogerio-castellano/cellar-console/internal/http/handlers"
	rl "github.com/rogerio-castellano/cellar-console/internal/http/rate_limiter"
	"github.com/rogerio-castellano/cellar-console/internal/repo"
	"github.com/rogerio-castellano/cellar-console/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const cookieName = "cellar_session"

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (repo.SessionRecord, error) {
	return repo.SessionRecord{}, errors.New("connection refused")
}
func (brokenStore) Save(context.Context, string, repo.SessionRecord, time.Duration) error {
	return errors.New("connection refused")
}
func (brokenStore) Delete(context.Context, string) error { return errors.New("connection refused") }
func (brokenStore) Purge(context.Context) (int, error)   { return 0, errors.New("connection refused") }

type fixture struct {
	backend *backendtest.Server
	manager *session.Manager
	tokens  *auth.TokenIssuer
	pages   *handlers.Server
}

func newFixture(t *testing.T, store repo.SessionRepository) *fixture {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("clerk", "clerk-password", "USER")

	logger := zap.NewNop()
	client := backend.NewClient(srv.BaseURL(), 5*time.Second, logger)
	cipher, err := session.NewCipher("middleware-secret")
	require.NoError(t, err)
	manager := session.NewManager(store, client, cipher, session.Options{TTL: time.Hour, RevalidateAfter: time.Hour}, logger)
	tokens := auth.NewTokenIssuer([]byte("middleware-key"), time.Hour)
	guard := ban.NewGuard(ban.NewMemoryStore(), ban.Policy{MaxStrikes: 10, Window: time.Minute, Duration: time.Minute}, logger)
	pages, err := handlers.NewServer(client, manager, tokens, guard, handlers.CookieConfig{Name: cookieName}, logger)
	require.NoError(t, err)

	return &fixture{backend: srv, manager: manager, tokens: tokens, pages: pages}
}

func (f *fixture) router(cfg api.RouterConfig) http.Handler {
	cfg.Sessions, cfg.Tokens, cfg.CookieName, cfg.Logger = f.manager, f.tokens, cookieName, zap.NewNop()
	return api.NewRouter(f.pages, cfg)
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := api.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = api.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	assert.Empty(t, api.GetRequestID(context.Background()))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := api.RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSessionMiddleware(t *testing.T) {
	f := newFixture(t, repo.NewInMemorySessionRepository())
	_, err := f.manager.Login(context.Background(), "sid-1", "clerk", "clerk-password")
	require.NoError(t, err)
	token, err := f.tokens.GenerateToken("sid-1")
	require.NoError(t, err)

	var got *session.Session
	h := api.SessionMiddleware(f.manager, f.tokens, cookieName, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = session.FromContext(r.Context())
	}))

	tests := []struct {
		name     string
		cookie   *http.Cookie
		loggedIn bool
	}{
		{"no cookie", nil, false},
		{"forged token", &http.Cookie{Name: cookieName, Value: "not-a-token"}, false},
		{"valid token", &http.Cookie{Name: cookieName, Value: token}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			require.NotNil(t, got)
			assert.Equal(t, tt.loggedIn, got.Authenticated())
			if tt.loggedIn {
				assert.Equal(t, "clerk", got.Username())
			}
		})
	}
}

func TestSessionMiddleware_StoreDown(t *testing.T) {
	f := newFixture(t, brokenStore{})
	token, err := f.tokens.GenerateToken("sid-1")
	require.NoError(t, err)

	called := false
	h := api.SessionMiddleware(f.manager, f.tokens, cookieName, zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, called)
}

func TestRequireAuth(t *testing.T) {
	h := api.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRouter_LoginLimiter(t *testing.T) {
	f := newFixture(t, repo.NewInMemorySessionRepository())
	r := f.router(api.RouterConfig{LoginLimiter: rl.New(0.001, 1)})

	post := func() int {
		form := url.Values{"username": {"clerk"}, "password": {"wrong"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code, "the login page itself is not throttled")
}

func TestRouter_GlobalRateLimit(t *testing.T) {
	f := newFixture(t, repo.NewInMemorySessionRepository())
	r := f.router(api.RouterConfig{RequestsPerMinute: 2})

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		codes[i] = w.Code
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
