package handlers_integrated_test_suite

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rogerio-castellano/cellar-console/internal/auth"
	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"github.com/rogerio-castellano/cellar-console/internal/backend/backendtest"
	"github.com/rogerio-castellano/cellar-console/internal/db"
	api "github.com/rogerio-castellano/cellar-console/internal/http"
	"github.com/rogerio-castellano/cellar-console/internal/http/ban"
	handler "github.com/rogerio-castellano/cellar-console/internal/http/handlers"
	"github.com/rogerio-castellano/cellar-console/internal/models"
	"github.com/rogerio-castellano/cellar-console/internal/redissvc"
	"github.com/rogerio-castellano/cellar-console/internal/repo"
	"github.com/rogerio-castellano/cellar-console/internal/session"
	"go.uber.org/zap"
)

const cookieName = "cellar_session"

type stack struct {
	router  http.Handler
	backend *backendtest.Server
}

// connectPostgres opens the database named by CELLAR_TEST_DATABASE_URL and migrates it.
func connectPostgres(t *testing.T) *sql.DB {
	t.Helper()
	dbURL := os.Getenv("CELLAR_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("CELLAR_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	database, err := db.Connect(ctx, dbURL)
	if err != nil {
		t.Fatalf("could not connect to database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("could not run migrations: %v", err)
	}
	clearSessions(t, database)
	t.Cleanup(func() { clearSessions(t, database) })
	return database
}

// connectRedis opens the server named by CELLAR_TEST_REDIS_ADDR.
func connectRedis(t *testing.T) *redissvc.RedisService {
	t.Helper()
	addr := os.Getenv("CELLAR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CELLAR_TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svc, err := redissvc.Connect(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("could not connect to redis: %v", err)
	}
	t.Cleanup(func() {
		_ = svc.Rdb().FlushDB(context.Background()).Err()
		_ = svc.Close()
	})
	return svc
}

func clearSessions(t *testing.T, database *sql.DB) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := database.ExecContext(ctx, "TRUNCATE TABLE console_sessions"); err != nil {
		t.Logf("failed to truncate console_sessions: %v", err)
	}
}

func setupStack(t *testing.T, sessions repo.SessionRepository, bans ban.Store) *stack {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("admin", "admin-password", models.RoleAdmin)
	srv.AddUser("clerk", "clerk-password", "USER")

	logger := zap.NewNop()
	client := backend.NewClient(srv.BaseURL(), 5*time.Second, logger)
	cipher, err := session.NewCipher("integration-secret")
	if err != nil {
		t.Fatalf("could not create cipher: %v", err)
	}
	// Revalidate on every request so stored credentials round-trip through the store.
	manager := session.NewManager(sessions, client, cipher, session.Options{TTL: time.Hour}, logger)
	tokens := auth.NewTokenIssuer([]byte("integration-token-key"), time.Hour)
	guard := ban.NewGuard(bans, ban.Policy{MaxStrikes: 3, Window: time.Minute, Duration: time.Minute}, logger)

	pages, err := handler.NewServer(client, manager, tokens, guard, handler.CookieConfig{Name: cookieName}, logger)
	if err != nil {
		t.Fatalf("could not create server: %v", err)
	}
	r := api.NewRouter(pages, api.RouterConfig{Sessions: manager, Tokens: tokens, CookieName: cookieName, Logger: logger})
	return &stack{router: r, backend: srv}
}

func (s *stack) do(method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}
