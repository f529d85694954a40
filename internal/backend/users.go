package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rogerio-castellano/cellar-console/internal/models"
)

// RegisterRequest is the body of POST /auth/register. The backend validates the
// confirmation too, so it is always sent.
type RegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (c *Client) ListUsers(ctx context.Context, creds Credentials) ([]models.Account, error) {
	var accounts []models.Account
	if err := c.do(ctx, http.MethodGet, "/users", &creds, nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Client) DeleteUser(ctx context.Context, creds Credentials, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), &creds, nil, nil)
}

// Register creates an account. It is the only unauthenticated call.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/register", nil, req, nil)
}

// UserInfo returns the identity and roles behind creds.
func (c *Client) UserInfo(ctx context.Context, creds Credentials) (models.UserInfo, error) {
	var info models.UserInfo
	err := c.do(ctx, http.MethodGet, "/auth/userinfo", &creds, nil, &info)
	return info, err
}
