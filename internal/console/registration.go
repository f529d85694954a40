package console

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"go.uber.org/zap"
)

const minPasswordLength = 8

// RegistrationResult is the outcome of a registration attempt.
type RegistrationResult struct {
	// Username is kept on failure so the form can be shown again; it is cleared on success.
	Username string
	Message  string
	Next     View
}

type Registration struct {
	backend RegistrationBackend
	logger  *zap.Logger
}

func NewRegistration(b RegistrationBackend, logger *zap.Logger) *Registration {
	return &Registration{backend: b, logger: logger}
}

// Register checks the password rules locally and only then calls the backend.
func (r *Registration) Register(ctx context.Context, username, password, confirmPassword string) (RegistrationResult, error) {
	res := RegistrationResult{Username: username}
	username = strings.TrimSpace(username)

	if err := checkRegistration(username, password, confirmPassword); err != nil {
		res.Message = err.Error()
		return res, err
	}

	err := r.backend.Register(ctx, backend.RegisterRequest{
		Username:        username,
		Password:        password,
		ConfirmPassword: confirmPassword,
	})
	if err != nil {
		r.logger.Info("registration rejected", zap.String("username", username), zap.Error(err))
		res.Message = registrationMessage(err)
		return res, err
	}

	r.logger.Info("user registered", zap.String("username", username))
	return RegistrationResult{Message: MsgRegistered, Next: ViewLogin}, nil
}

func checkRegistration(username, password, confirmPassword string) error {
	if username == "" {
		return &FormError{Message: MsgUsernameRequired, Fields: []FieldError{{Field: "username", Description: MsgUsernameRequired}}}
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return &FormError{Message: MsgPasswordTooShort, Fields: []FieldError{{Field: "password", Description: MsgPasswordTooShort}}}
	}
	if password != confirmPassword {
		return &FormError{Message: MsgPasswordMismatch, Fields: []FieldError{{Field: "confirmPassword", Description: MsgPasswordMismatch}}}
	}
	return nil
}

// registrationMessage prefers field errors, then the backend's text, then the status.
func registrationMessage(err error) string {
	var netErr *backend.NetworkError
	if errors.As(err, &netErr) {
		return "Could not reach the server. Check that the backend is running."
	}
	return "Registration failed: " + backend.FieldsFirst(err)
}
