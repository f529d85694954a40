package console

import (
	"context"
	"errors"
	"fmt"

	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"github.com/rogerio-castellano/cellar-console/internal/models"
	"github.com/rogerio-castellano/cellar-console/internal/session"
	"go.uber.org/zap"
)

// FormResult is the outcome of a form action.
type FormResult struct {
	// Draft is the form state after the action.
	Draft models.Draft
	// Input holds the values to show when the form is rendered again.
	Input   ProductInput
	Message string
	// Notice is set on success and names the message to show on the next page.
	Notice string
	Next   View
}

// CatalogForm drives the create/edit product form. The draft is either Creating or
// Editing, never both, and is kept in the session between requests.
type CatalogForm struct {
	products ProductBackend
	sess     *session.Session
	logger   *zap.Logger
}

func NewCatalogForm(products ProductBackend, sess *session.Session, logger *zap.Logger) *CatalogForm {
	return &CatalogForm{products: products, sess: sess, logger: logger}
}

func (f *CatalogForm) Draft() models.Draft {
	return f.sess.Draft()
}

// Edit switches the form to Editing a copy of p.
func (f *CatalogForm) Edit(ctx context.Context, p models.Product) error {
	if p.ID == 0 {
		return errors.New("cannot edit a product without id")
	}
	return f.sess.SetDraft(ctx, models.EditDraft(p))
}

// Cancel discards the draft and returns to Creating.
func (f *CatalogForm) Cancel(ctx context.Context) error {
	return f.sess.SetDraft(ctx, models.NewDraft())
}

// Submit creates or updates depending on the current draft.
func (f *CatalogForm) Submit(ctx context.Context, in ProductInput) (FormResult, error) {
	if f.Draft().Editing() {
		return f.SubmitUpdate(ctx, in)
	}
	return f.SubmitCreate(ctx, in)
}

func (f *CatalogForm) SubmitCreate(ctx context.Context, in ProductInput) (FormResult, error) {
	res := FormResult{Draft: f.Draft(), Input: in}
	if err := requireAuth(f.sess); err != nil {
		return res, err
	}

	p, err := validateProduct(in)
	if err != nil {
		res.Message = err.Error()
		return res, err
	}

	_, err = f.products.CreateProduct(ctx, f.sess.Credentials(), p)
	if err != nil {
		return f.failed(ctx, res, "Error creating product", err)
	}

	f.logger.Info("product created", zap.String("name", p.Name), zap.String("user", f.sess.Username()))
	return f.succeeded(ctx, res, NoticeCreated, MsgProductCreated)
}

func (f *CatalogForm) SubmitUpdate(ctx context.Context, in ProductInput) (FormResult, error) {
	res := FormResult{Draft: f.Draft(), Input: in}
	if err := requireAuth(f.sess); err != nil {
		return res, err
	}

	draft := f.Draft()
	if !draft.Editing() || draft.Product.ID == 0 {
		err := &FormError{Message: MsgNoProductToSave}
		res.Message = err.Message
		return res, err
	}

	p, err := validateProduct(in)
	if err != nil {
		res.Message = err.Error()
		return res, err
	}
	p.ID = draft.Product.ID

	_, err = f.products.UpdateProduct(ctx, f.sess.Credentials(), p)
	if err != nil {
		return f.failed(ctx, res, "Error updating product", err)
	}

	f.logger.Info("product updated", zap.Int("id", p.ID), zap.String("user", f.sess.Username()))
	return f.succeeded(ctx, res, NoticeUpdated, MsgProductUpdated)
}

func (f *CatalogForm) succeeded(ctx context.Context, res FormResult, notice, msg string) (FormResult, error) {
	draft := models.NewDraft()
	if err := f.sess.SetDraft(ctx, draft); err != nil {
		return res, fmt.Errorf("failed to reset draft: %w", err)
	}
	return FormResult{Draft: draft, Message: msg, Notice: notice, Next: ViewList}, nil
}

func (f *CatalogForm) failed(ctx context.Context, res FormResult, prefix string, err error) (FormResult, error) {
	if xerr := expireOnUnauthorized(ctx, f.sess, err); xerr != nil {
		res.Next = ViewLogin
		return res, xerr
	}

	msg := backend.Message(err)
	if msg == "" {
		msg = MsgUnknownError
	}
	res.Message = prefix + ": " + msg
	f.logger.Warn("product form submission failed", zap.Error(err))
	return res, err
}
