package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rogerio-castellano/cellar-console/internal/auth"
	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"github.com/rogerio-castellano/cellar-console/internal/config"
	"github.com/rogerio-castellano/cellar-console/internal/db"
	consolehttp "github.com/rogerio-castellano/cellar-console/internal/http"
	"github.com/rogerio-castellano/cellar-console/internal/http/ban"
	"github.com/rogerio-castellano/cellar-console/internal/http/handlers"
	rl "github.com/rogerio-castellano/cellar-console/internal/http/rate_limiter"
	"github.com/rogerio-castellano/cellar-console/internal/logger"
	"github.com/rogerio-castellano/cellar-console/internal/redissvc"
	"github.com/rogerio-castellano/cellar-console/internal/repo"
	"github.com/rogerio-castellano/cellar-console/internal/session"
	"go.uber.org/zap"
)

const tokenKeyPurpose = "cellar-console session token"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Could not create logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, banStore, closeStore, err := openStores(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Could not open session store", zap.String("store", cfg.Session.Store), zap.Error(err))
	}
	defer closeStore()

	cipher, err := session.NewCipher(cfg.Session.Secret)
	if err != nil {
		zl.Fatal("Could not create credential cipher", zap.Error(err))
	}
	tokenKey, err := session.DeriveKey(cfg.Session.Secret, tokenKeyPurpose)
	if err != nil {
		zl.Fatal("Could not derive token key", zap.Error(err))
	}
	tokens := auth.NewTokenIssuer(tokenKey, cfg.Session.TTL)

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, zl)
	manager := session.NewManager(sessions, client, cipher, session.Options{
		TTL:             cfg.Session.TTL,
		RevalidateAfter: cfg.Session.RevalidateAfter,
	}, zl)

	guard := ban.NewGuard(banStore, ban.Policy{
		MaxStrikes: cfg.Ban.MaxStrikes,
		Window:     cfg.Ban.Window,
		Duration:   cfg.Ban.Duration,
	}, zl)

	srv, err := handlers.NewServer(client, manager, tokens, guard, handlers.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.SecureCookie,
	}, zl)
	if err != nil {
		zl.Fatal("Could not create page server", zap.Error(err))
	}

	loginLimiter := rl.New(cfg.RateLimit.LoginPerSecond, cfg.RateLimit.LoginBurst)
	go loginLimiter.StartCleanupLoop(ctx, time.Minute)
	go repo.StartSessionCleaner(ctx, sessions, cfg.Session.CleanupInterval, zl)

	router := consolehttp.NewRouter(srv, consolehttp.RouterConfig{
		Sessions:          manager,
		Tokens:            tokens,
		CookieName:        cfg.Session.CookieName,
		LoginLimiter:      loginLimiter,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Logger:            zl,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("Server running",
			zap.String("addr", cfg.Server.Addr),
			zap.String("backend", cfg.Backend.BaseURL),
			zap.String("session_store", cfg.Session.Store),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zl.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// openStores builds the session repository and ban store for the configured backend.
// The returned func releases their connections.
func openStores(ctx context.Context, cfg *config.Config, zl *zap.Logger) (repo.SessionRepository, ban.Store, func(), error) {
	switch cfg.Session.Store {
	case config.StoreRedis:
		svc, err := redissvc.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := svc.Close(); err != nil {
				zl.Warn("Could not close redis client", zap.Error(err))
			}
		}
		return repo.NewRedisSessionRepository(svc), ban.NewRedisStore(svc), closeFn, nil

	case config.StorePostgres:
		database, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.RunMigrations(database); err != nil {
			database.Close()
			return nil, nil, nil, err
		}
		return repo.NewPostgresSessionRepository(database), ban.NewMemoryStore(), closeDB(database, zl), nil

	default:
		return repo.NewInMemorySessionRepository(), ban.NewMemoryStore(), func() {}, nil
	}
}

func closeDB(database *sql.DB, zl *zap.Logger) func() {
	return func() {
		if err := database.Close(); err != nil {
			zl.Warn("Could not close database", zap.Error(err))
		}
	}
}
