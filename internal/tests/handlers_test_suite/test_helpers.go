package handlers_test_suite

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
	handler "github.com/rogerio-castellano/cellar-console/internal/http/handlers"
	"github.com/rogerio-castellano/cellar-console/internal/models"
	"github.com/rogerio-castellano/cellar-console/internal/repo"
	"github.com/rogerio-castellano/cellar-console/internal/session"
	"go.uber.org/zap"
)

const cookieName = "cellar_session"

type testConsole struct {
	router  http.Handler
	backend *backendtest.Server
	store   *repo.InMemorySessionRepository
}

type options struct {
	maxStrikes int
	wrapStore  func(*repo.InMemorySessionRepository) repo.SessionRepository
}

// setupConsole wires the router against a fresh in-process backend holding an admin
// (id 1) and a clerk (id 2).
func setupConsole(t *testing.T, opts ...func(*options)) *testConsole {
	t.Helper()
	o := options{maxStrikes: 100}
	for _, opt := range opts {
		opt(&o)
	}

	srv := backendtest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("admin", "admin-password", models.RoleAdmin)
	srv.AddUser("clerk", "clerk-password", "USER")

	logger := zap.NewNop()
	client := backend.NewClient(srv.BaseURL(), 5*time.Second, logger)
	store := repo.NewInMemorySessionRepository()
	cipher, err := session.NewCipher("suite-secret")
	if err != nil {
		t.Fatalf("could not create cipher: %v", err)
	}
	var sessions repo.SessionRepository = store
	if o.wrapStore != nil {
		sessions = o.wrapStore(store)
	}
	manager := session.NewManager(sessions, client, cipher, session.Options{TTL: time.Hour, RevalidateAfter: time.Hour}, logger)
	tokens := auth.NewTokenIssuer([]byte("suite-token-key"), time.Hour)
	guard := ban.NewGuard(ban.NewMemoryStore(), ban.Policy{MaxStrikes: o.maxStrikes, Window: time.Minute, Duration: time.Minute}, logger)

	pages, err := handler.NewServer(client, manager, tokens, guard, handler.CookieConfig{Name: cookieName}, logger)
	if err != nil {
		t.Fatalf("could not create server: %v", err)
	}

	r := api.NewRouter(pages, api.RouterConfig{
		Sessions:   manager,
		Tokens:     tokens,
		CookieName: cookieName,
		Logger:     logger,
	})
	return &testConsole{router: r, backend: srv, store: store}
}

func withMaxStrikes(n int) func(*options) {
	return func(o *options) { o.maxStrikes = n }
}

func withSessionStore(wrap func(*repo.InMemorySessionRepository) repo.SessionRepository) func(*options) {
	return func(o *options) { o.wrapStore = wrap }
}

// failingDeletes is a session store whose Delete always fails.
type failingDeletes struct {
	*repo.InMemorySessionRepository
}

func (failingDeletes) Delete(context.Context, string) error {
	return errors.New("session store unavailable")
}

func (c *testConsole) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func (c *testConsole) post(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

// login posts the login form and returns the session cookie.
func (c *testConsole) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	w := c.post("/login", url.Values{"username": {username}, "password": {password}}, nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 after login, got %d: %s", w.Code, w.Body.String())
	}
	cookie := sessionCookie(w)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected a session cookie after login")
	}
	c.backend.ResetCalls()
	return cookie
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

func productForm() url.Values {
	return url.Values{
		"name":        {"Barolo Riserva"},
		"description": {"Nebbiolo from Piedmont"},
		"category":    {"Red"},
		"vintage":     {"2016"},
		"price":       {"54.50"},
		"stock":       {"6"},
	}
}
