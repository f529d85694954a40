// Package console holds the controllers behind the admin pages. Controllers are built per
// request with the backend client and the caller's session and never touch HTTP directly.
package console

import (
	"context"
	"errors"
	"fmt"

	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"github.com/rogerio-castellano/cellar-console/internal/models"
	"github.com/rogerio-castellano/cellar-console/internal/session"
)

var (
	// ErrSessionExpired is returned after a 401 cleared the session; the caller should send the user to login.
	ErrSessionExpired = errors.New("session expired")
	// ErrConfirmationRequired is returned by destructive actions called without confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrSelfDeletion is returned when an account tries to delete itself.
	ErrSelfDeletion = errors.New("cannot delete the account in use")
)

// View names the page a controller wants shown next.
type View string

const (
	ViewNone  View = ""
	ViewLogin View = "login"
	ViewForm  View = "form"
	ViewList  View = "list"
	ViewUsers View = "users"
)

type ProductBackend interface {
	ListProducts(ctx context.Context, creds backend.Credentials) ([]models.Product, error)
	GetProduct(ctx context.Context, creds backend.Credentials, id int) (models.Product, error)
	CreateProduct(ctx context.Context, creds backend.Credentials, p models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, creds backend.Credentials, p models.Product) (models.Product, error)
	DeleteProduct(ctx context.Context, creds backend.Credentials, id int) error
}

type AccountBackend interface {
	ListUsers(ctx context.Context, creds backend.Credentials) ([]models.Account, error)
	DeleteUser(ctx context.Context, creds backend.Credentials, id int) error
}

type RegistrationBackend interface {
	Register(ctx context.Context, req backend.RegisterRequest) error
}

// expireOnUnauthorized clears the session when err is a 401 and reports ErrSessionExpired.
// It returns nil for any other error.
func expireOnUnauthorized(ctx context.Context, sess *session.Session, err error) error {
	var unauthorized *backend.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		return nil
	}
	if xerr := sess.Expire(ctx); xerr != nil {
		return fmt.Errorf("%w: %v", ErrSessionExpired, xerr)
	}
	return ErrSessionExpired
}

func requireAuth(sess *session.Session) error {
	if !sess.Authenticated() {
		return ErrSessionExpired
	}
	return nil
}
