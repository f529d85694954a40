package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rogerio-castellano/cellar-console/internal/console"
	"go.uber.org/zap"
)

func (s *Server) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}

	view, err := s.userAdmin(sess).List(r.Context())
	if errors.Is(err, console.ErrSessionExpired) {
		s.redirectExpired(w, r)
		return
	}
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		http.Error(w, "could not load users", http.StatusInternalServerError)
		return
	}
	s.renderUsers(w, r, http.StatusOK, view)
}

// ConfirmDeleteUserHandler asks before deleting, unless the target is the current account.
func (s *Server) ConfirmDeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	s.deleteUser(w, r, false)
}

func (s *Server) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	s.deleteUser(w, r, confirmed(r))
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request, confirm bool) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	view, err := s.userAdmin(sess).Delete(r.Context(), id, confirm)
	switch {
	case errors.Is(err, console.ErrSessionExpired):
		s.redirectExpired(w, r)
	case errors.Is(err, console.ErrConfirmationRequired):
		if r.Method != http.MethodGet {
			http.Redirect(w, r, fmt.Sprintf("/users/%d/delete", id), http.StatusSeeOther)
			return
		}
		page := ConfirmPage{
			Question: fmt.Sprintf("Are you sure you want to delete user %s?", view.Target.Username),
			Action:   fmt.Sprintf("/users/%d/delete", id),
			Cancel:   "/users",
		}
		s.render(w, r, http.StatusOK, "confirm.html", Page{Title: "Delete user", Data: page})
	case errors.Is(err, console.ErrSelfDeletion):
		s.renderUsers(w, r, http.StatusConflict, view)
	case err != nil:
		s.logger.Error("failed to delete user", zap.Int("id", id), zap.Error(err))
		http.Error(w, "could not delete user", http.StatusInternalServerError)
	default:
		s.renderUsers(w, r, http.StatusOK, view)
	}
}

// renderUsers shows the user table, or the access denied page that refreshes to login.
func (s *Server) renderUsers(w http.ResponseWriter, r *http.Request, status int, view console.UsersView) {
	if view.Denied {
		s.render(w, r, http.StatusForbidden, "denied.html", Page{
			Title:        "Access denied",
			RefreshAfter: int(view.RedirectAfter.Seconds()),
			RefreshURL:   "/login",
			Data:         UsersPage{view},
		})
		return
	}
	s.render(w, r, status, "users.html", Page{Title: "Users", Data: UsersPage{view}})
}
