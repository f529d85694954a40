package handlers

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/cellar-console/internal/console"
	"github.com/rogerio-castellano/cellar-console/internal/session"
	"go.uber.org/zap"
)

func (s *Server) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	if sess.Authenticated() {
		http.Redirect(w, r, "/products/manage", http.StatusSeeOther)
		return
	}

	page := LoginPage{}
	q := r.URL.Query()
	switch {
	case q.Get("expired") != "":
		page.Info = console.MsgSessionExpired
	case q.Get("registered") != "":
		page.Info = console.MsgRegistered
	case q.Get("logged_out") != "":
		page.Info = console.MsgLoggedOut
	}
	s.render(w, r, http.StatusOK, "login.html", Page{Title: "Log in", Data: page})
}

// LoginHandler validates the credentials against the backend and starts a fresh session.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	current, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	page := LoginPage{Username: username}
	target := loginTarget(r, username)

	banned, err := s.guard.Banned(r.Context(), target)
	if err != nil {
		s.logger.Error("failed to check login ban", zap.Error(err))
	}
	if banned {
		page.Message = console.MsgLoginLocked
		s.render(w, r, http.StatusTooManyRequests, "login.html", Page{Title: "Log in", Data: page})
		return
	}

	sid := uuid.New().String()
	if _, err := s.sessions.Login(r.Context(), sid, username, password); err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			if ferr := s.guard.Fail(r.Context(), target); ferr != nil {
				s.logger.Error("failed to record login failure", zap.Error(ferr))
			}
			page.Message = console.MsgLoginFailed
			s.render(w, r, http.StatusUnauthorized, "login.html", Page{Title: "Log in", Data: page})
			return
		}
		s.logger.Error("login failed", zap.Error(err))
		page.Message = console.MsgLoginUnavailable
		s.render(w, r, http.StatusInternalServerError, "login.html", Page{Title: "Log in", Data: page})
		return
	}

	if err := s.guard.Reset(r.Context(), target); err != nil {
		s.logger.Warn("failed to reset login strikes", zap.Error(err))
	}
	if old := current.ID(); old != "" {
		if err := s.sessions.Logout(r.Context(), old); err != nil {
			s.logger.Warn("failed to drop previous session", zap.Error(err))
		}
	}

	if err := s.setSessionCookie(w, sid); err != nil {
		s.logger.Error("failed to issue session cookie", zap.Error(err))
		http.Error(w, "could not start session", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/products/manage", http.StatusSeeOther)
}

func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	s.clearSessionCookie(w)
	if err := s.sessions.Logout(r.Context(), sess.ID()); err != nil {
		s.logger.Error("failed to remove stored session on logout", zap.String("session_id", sess.ID()), zap.Error(err))
	}
	http.Redirect(w, r, "/login?logged_out=1", http.StatusSeeOther)
}

func (s *Server) RegisterPageHandler(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", Page{Title: "Register", Data: RegisterPage{}})
}

func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	reg := console.NewRegistration(s.backend, s.logger)
	res, err := reg.Register(r.Context(),
		r.PostFormValue("username"),
		r.PostFormValue("password"),
		r.PostFormValue("confirmPassword"),
	)
	if err != nil {
		page := RegisterPage{Username: res.Username, Message: res.Message, Invalid: invalidFields(err)}
		s.render(w, r, statusFor(err), "register.html", Page{Title: "Register", Data: page})
		return
	}
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

// loginTarget keys failed attempts by client address and username.
func loginTarget(r *http.Request, username string) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host + "|" + strings.ToLower(username)
}
