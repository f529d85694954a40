package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"github.com/rogerio-castellano/cellar-console/internal/console"
	"go.uber.org/zap"
)

func (s *Server) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}

	view, err := s.catalogList(sess).Refresh(r.Context())
	if errors.Is(err, console.ErrSessionExpired) {
		s.redirectExpired(w, r)
		return
	}
	if err != nil {
		s.logger.Error("failed to refresh products", zap.Error(err))
		http.Error(w, "could not load products", http.StatusInternalServerError)
		return
	}

	view.Notice = console.NoticeMessage(r.URL.Query().Get("notice"))
	s.render(w, r, http.StatusOK, "products.html", Page{Title: "Wines", Data: ProductListPage{view}})
}

// ProductFormHandler shows the form for the session's current draft.
func (s *Server) ProductFormHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}

	draft := s.catalogForm(sess).Draft()
	page := ProductFormPage{
		Editing:   draft.Editing(),
		ProductID: draft.Product.ID,
		Input:     console.InputFromProduct(draft.Product),
	}
	s.render(w, r, http.StatusOK, "manage.html", Page{Title: "Manage wines", Data: page})
}

func (s *Server) SubmitProductHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	res, err := s.catalogForm(sess).Submit(r.Context(), productInput(r))
	if errors.Is(err, console.ErrSessionExpired) {
		s.redirectExpired(w, r)
		return
	}
	if err == nil {
		http.Redirect(w, r, "/products?notice="+res.Notice, http.StatusSeeOther)
		return
	}

	msg := res.Message
	if msg == "" {
		s.logger.Error("product submission failed", zap.Error(err))
		msg = "Error saving product: " + console.MsgUnknownError
	}
	page := ProductFormPage{
		Editing:   res.Draft.Editing(),
		ProductID: res.Draft.Product.ID,
		Input:     res.Input,
		Message:   msg,
		Invalid:   invalidFields(err),
	}
	s.render(w, r, statusFor(err), "manage.html", Page{Title: "Manage wines", Data: page})
}

func (s *Server) CancelEditHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	if err := s.catalogForm(sess).Cancel(r.Context()); err != nil {
		s.logger.Error("failed to reset draft", zap.Error(err))
		http.Error(w, "could not cancel editing", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/products/manage", http.StatusSeeOther)
}

// EditProductHandler loads the product into the form and opens it.
func (s *Server) EditProductHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	list := s.catalogList(sess)
	_, err = list.SelectForEdit(r.Context(), id)
	if errors.Is(err, console.ErrSessionExpired) {
		s.redirectExpired(w, r)
		return
	}
	if err == nil {
		http.Redirect(w, r, "/products/manage", http.StatusSeeOther)
		return
	}

	s.logger.Warn("failed to open product for editing", zap.Int("id", id), zap.Error(err))
	view, rerr := list.Refresh(r.Context())
	if errors.Is(rerr, console.ErrSessionExpired) {
		s.redirectExpired(w, r)
		return
	}
	if rerr != nil {
		http.Error(w, "could not load products", http.StatusInternalServerError)
		return
	}
	view.Notice, view.NoticeFailed = "Error loading product: "+backend.Message(err), true
	s.render(w, r, statusFor(err), "products.html", Page{Title: "Wines", Data: ProductListPage{view}})
}

// ConfirmDeleteProductHandler asks before deleting. Nothing is sent to the backend.
func (s *Server) ConfirmDeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	page := ConfirmPage{
		Question: fmt.Sprintf("Are you sure you want to delete wine #%d?", id),
		Action:   fmt.Sprintf("/products/%d/delete", id),
		Cancel:   "/products",
	}
	s.render(w, r, http.StatusOK, "confirm.html", Page{Title: "Delete wine", Data: page})
}

func (s *Server) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	view, err := s.catalogList(sess).Delete(r.Context(), id, confirmed(r))
	switch {
	case errors.Is(err, console.ErrConfirmationRequired):
		http.Redirect(w, r, fmt.Sprintf("/products/%d/delete", id), http.StatusSeeOther)
		return
	case errors.Is(err, console.ErrSessionExpired):
		s.redirectExpired(w, r)
		return
	case err != nil:
		s.logger.Error("failed to delete product", zap.Int("id", id), zap.Error(err))
		http.Error(w, "could not delete product", http.StatusInternalServerError)
		return
	}
	s.render(w, r, http.StatusOK, "products.html", Page{Title: "Wines", Data: ProductListPage{view}})
}
