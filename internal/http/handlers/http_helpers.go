package handlers

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"github.com/rogerio-castellano/cellar-console/internal/console"
	"github.com/rogerio-castellano/cellar-console/internal/session"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	return template.New("pages").Funcs(template.FuncMap{
		"price": formatPrice,
	}).ParseFS(templateFS, "templates/*.html")
}

func formatPrice(p float64) string {
	if p == 0 {
		return "N/A"
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// render executes the named page into a buffer first so a template error never leaves a
// half written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	if sess, ok := session.FromContext(r.Context()); ok {
		page.Header = Header{
			LoggedIn: sess.Authenticated(),
			Username: sess.Username(),
			IsAdmin:  sess.IsAdmin(),
		}
	}

	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, page); err != nil {
		s.logger.Error("failed to render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("failed to write page", zap.String("page", name), zap.Error(err))
	}
}

// currentSession returns the session the session middleware attached to the request.
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		s.logger.Error("request reached a page without a session", zap.String("path", r.URL.Path))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
	return sess, ok
}

// redirectExpired drops the cookie and sends the user to login with the expiry notice.
func (s *Server) redirectExpired(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login?expired=1", http.StatusSeeOther)
}

func idParam(r *http.Request) (int, error) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", idStr)
	}
	return id, nil
}

func productInput(r *http.Request) console.ProductInput {
	return console.ProductInput{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Category:    r.PostFormValue("category"),
		Vintage:     r.PostFormValue("vintage"),
		Price:       r.PostFormValue("price"),
		Stock:       r.PostFormValue("stock"),
	}
}

func confirmed(r *http.Request) bool {
	return strings.EqualFold(r.PostFormValue("confirm"), "yes")
}

// statusFor maps a controller error to the status of the page rendered for it.
func statusFor(err error) int {
	var (
		formErr    *console.FormError
		validation *backend.ValidationError
		forbidden  *backend.ForbiddenError
		network    *backend.NetworkError
		server     *backend.ServerError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &formErr), errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &network), errors.As(err, &server):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func invalidFields(err error) map[string]bool {
	var formErr *console.FormError
	if !errors.As(err, &formErr) {
		return nil
	}
	fields := make(map[string]bool, len(formErr.Fields))
	for _, f := range formErr.Fields {
		fields[f.Field] = true
	}
	return fields
}
