package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rogerio-castellano/cellar-console/internal/auth"
	"github.com/rogerio-castellano/cellar-console/internal/http/handlers"
	rl "github.com/rogerio-castellano/cellar-console/internal/http/rate_limiter"
	"github.com/rogerio-castellano/cellar-console/internal/session"
	"go.uber.org/zap"
)

// RouterConfig carries what the router needs besides the page handlers.
type RouterConfig struct {
	Sessions   *session.Manager
	Tokens     *auth.TokenIssuer
	CookieName string
	// LoginLimiter throttles POST /login per client; nil disables it.
	LoginLimiter *rl.Limiter
	// RequestsPerMinute caps all requests per client IP; zero disables it.
	RequestsPerMinute int
	Logger            *zap.Logger
}

func NewRouter(srv *handlers.Server, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))
	if cfg.RequestsPerMinute > 0 {
		r.Use(httprate.LimitByIP(cfg.RequestsPerMinute, time.Minute))
	}

	r.Get("/healthz", handlers.HealthHandler)

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.Sessions, cfg.Tokens, cfg.CookieName, cfg.Logger))

		r.Get("/", srv.HomeHandler)
		r.Get("/login", srv.LoginPageHandler)
		r.With(loginLimit(cfg.LoginLimiter)).Post("/login", srv.LoginHandler)
		r.Post("/logout", srv.LogoutHandler)
		r.Get("/register", srv.RegisterPageHandler)
		r.Post("/register", srv.RegisterHandler)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)

			r.Get("/products", srv.ListProductsHandler)
			r.Get("/products/manage", srv.ProductFormHandler)
			r.Post("/products/manage", srv.SubmitProductHandler)
			r.Post("/products/manage/cancel", srv.CancelEditHandler)
			r.Post("/products/{id}/edit", srv.EditProductHandler)
			r.Get("/products/{id}/delete", srv.ConfirmDeleteProductHandler)
			r.Post("/products/{id}/delete", srv.DeleteProductHandler)

			r.Get("/users", srv.ListUsersHandler)
			r.Get("/users/{id}/delete", srv.ConfirmDeleteUserHandler)
			r.Post("/users/{id}/delete", srv.DeleteUserHandler)
		})
	})

	return r
}

func loginLimit(l *rl.Limiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return l.Middleware
}
