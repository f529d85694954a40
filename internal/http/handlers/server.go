package handlers

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/rogerio-castellano/cellar-console/internal/auth"
	"github.com/rogerio-castellano/cellar-console/internal/console"
	"github.com/rogerio-castellano/cellar-console/internal/http/ban"
	"github.com/rogerio-castellano/cellar-console/internal/session"
	"go.uber.org/zap"
)

// Backend is every backend call the pages make.
type Backend interface {
	console.ProductBackend
	console.AccountBackend
	console.RegistrationBackend
}

type CookieConfig struct {
	Name   string
	Secure bool
}

// Server holds the dependencies shared by all page handlers.
type Server struct {
	backend  Backend
	sessions *session.Manager
	tokens   *auth.TokenIssuer
	guard    *ban.Guard
	cookie   CookieConfig
	pages    *template.Template
	logger   *zap.Logger
}

func NewServer(b Backend, sessions *session.Manager, tokens *auth.TokenIssuer, guard *ban.Guard, cookie CookieConfig, logger *zap.Logger) (*Server, error) {
	pages, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Server{
		backend:  b,
		sessions: sessions,
		tokens:   tokens,
		guard:    guard,
		cookie:   cookie,
		pages:    pages,
		logger:   logger,
	}, nil
}

func (s *Server) catalogForm(sess *session.Session) *console.CatalogForm {
	return console.NewCatalogForm(s.backend, sess, s.logger)
}

func (s *Server) catalogList(sess *session.Session) *console.CatalogList {
	return console.NewCatalogList(s.backend, s.catalogForm(sess), sess, s.logger)
}

func (s *Server) userAdmin(sess *session.Session) *console.UserAdmin {
	return console.NewUserAdmin(s.backend, sess, s.logger)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sid string) error {
	token, err := s.tokens.GenerateToken(sid)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// HomeHandler sends the visitor to the product list or to login.
func (s *Server) HomeHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if ok && sess.Authenticated() {
		http.Redirect(w, r, "/products", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
