package api

import (
	"context"
	"net/http"

	pkgerrors "github.com/walidbr/stockdeck/pkg/errors"
	"github.com/walidbr/stockdeck/pkg/enums"
)

// User is the identity record the backend returns for an authenticated
// session.
type User struct {
	ID           string     `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Role         enums.Role `json:"role"`
	AvatarColor  string     `json:"avatarColor"`
	ProfileImage string     `json:"profile_image"`
	Phone        string     `json:"phone,omitempty"`
	Bio          string     `json:"bio,omitempty"`
}

// LoginRequest carries the credentials sent to the login endpoint.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// Login exchanges credentials for a bearer token. A non-2xx response becomes
// an error carrying the backend's message, with a generic fallback.
func (c *Client) Login(ctx context.Context, req LoginRequest) (string, error) {
	if err := validatePayload(req); err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, requestSpec{
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     req,
		fallback: "Login failed",
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "login response missing token")
	}
	return resp.Token, nil
}

// Me resolves the identity behind the stored bearer token. Any failure mode
// (transport, non-2xx, success:false envelope) is an error; the caller
// collapses them all into "not authenticated".
func (c *Client) Me(ctx context.Context) (*User, error) {
	var resp struct {
		Success bool `json:"success"`
		Data    User `json:"data"`
	}
	err := c.do(ctx, requestSpec{
		method: http.MethodGet,
		path:   "/auth/me",
		authed: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity envelope not successful")
	}
	user := resp.Data
	return &user, nil
}
