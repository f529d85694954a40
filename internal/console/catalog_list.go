package console

import (
	"context"

	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"github.com/rogerio-castellano/cellar-console/internal/models"
	"github.com/rogerio-castellano/cellar-console/internal/session"
	"go.uber.org/zap"
)

// ListView is what the product table shows.
type ListView struct {
	Items []models.Product
	// Message is the status line: loaded, empty or the load error.
	Message string
	Failed  bool
	// Notice reports the outcome of the action that led here, e.g. a delete.
	Notice       string
	NoticeFailed bool
}

// CatalogList fetches the product table and runs its row actions.
type CatalogList struct {
	products ProductBackend
	form     *CatalogForm
	sess     *session.Session
	logger   *zap.Logger
}

func NewCatalogList(products ProductBackend, form *CatalogForm, sess *session.Session, logger *zap.Logger) *CatalogList {
	return &CatalogList{products: products, form: form, sess: sess, logger: logger}
}

// Refresh loads the full product collection. Nothing is cached between calls.
func (l *CatalogList) Refresh(ctx context.Context) (ListView, error) {
	if err := requireAuth(l.sess); err != nil {
		return ListView{}, err
	}

	items, err := l.products.ListProducts(ctx, l.sess.Credentials())
	if err != nil {
		if xerr := expireOnUnauthorized(ctx, l.sess, err); xerr != nil {
			return ListView{}, xerr
		}
		l.logger.Warn("failed to load products", zap.Error(err))
		return ListView{Message: "Error loading products: " + backend.Message(err), Failed: true}, nil
	}

	if len(items) == 0 {
		return ListView{Message: MsgNoProducts}, nil
	}
	return ListView{Items: items, Message: MsgProductsLoaded}, nil
}

// Delete removes a product once confirmed, then reloads the table whatever the outcome.
func (l *CatalogList) Delete(ctx context.Context, id int, confirmed bool) (ListView, error) {
	if err := requireAuth(l.sess); err != nil {
		return ListView{}, err
	}
	if !confirmed {
		return ListView{}, ErrConfirmationRequired
	}

	notice, failed := MsgProductDeleted, false
	if err := l.products.DeleteProduct(ctx, l.sess.Credentials(), id); err != nil {
		if xerr := expireOnUnauthorized(ctx, l.sess, err); xerr != nil {
			return ListView{}, xerr
		}
		l.logger.Warn("failed to delete product", zap.Int("id", id), zap.Error(err))
		notice, failed = "Error deleting product: "+backend.Message(err), true
	} else {
		l.logger.Info("product deleted", zap.Int("id", id), zap.String("user", l.sess.Username()))
	}

	view, err := l.Refresh(ctx)
	if err != nil {
		return view, err
	}
	view.Notice, view.NoticeFailed = notice, failed
	return view, nil
}

// SelectForEdit loads the product and hands it to the form as an Editing draft.
func (l *CatalogList) SelectForEdit(ctx context.Context, id int) (View, error) {
	if err := requireAuth(l.sess); err != nil {
		return ViewLogin, err
	}

	p, err := l.products.GetProduct(ctx, l.sess.Credentials(), id)
	if err != nil {
		if xerr := expireOnUnauthorized(ctx, l.sess, err); xerr != nil {
			return ViewLogin, xerr
		}
		return ViewList, err
	}
	if p.ID == 0 {
		p.ID = id
	}

	if err := l.form.Edit(ctx, p); err != nil {
		return ViewList, err
	}
	return ViewForm, nil
}
