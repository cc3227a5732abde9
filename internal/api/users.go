package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/walidbr/stockdeck/pkg/errors"
	"github.com/walidbr/stockdeck/pkg/enums"
)

// UserRecord is one row of the user administration list.
type UserRecord struct {
	ID           string     `json:"_id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Role         enums.Role `json:"role"`
	AvatarColor  string     `json:"avatarColor"`
	ProfileImage string     `json:"profile_image"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// ListUsers fetches every dashboard user. Superadmin only on the backend.
func (c *Client) ListUsers(ctx context.Context) ([]UserRecord, error) {
	var users []UserRecord
	err := c.do(ctx, requestSpec{
		method: http.MethodGet,
		path:   "/users",
		authed: true,
	}, &users)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UserInput is the payload for creating a dashboard user. Passwords must be
// at least 6 characters, matching the backend's rule.
type UserInput struct {
	FirstName string     `json:"first_name" validate:"required"`
	LastName  string     `json:"last_name" validate:"required"`
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password" validate:"required,min=6"`
	Role      enums.Role `json:"role" validate:"required"`
}

// CreateUser adds a dashboard user and returns the created record.
func (c *Client) CreateUser(ctx context.Context, input UserInput) (*UserRecord, error) {
	if err := validatePayload(input); err != nil {
		return nil, err
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.Role))
	}
	var created UserRecord
	err := c.do(ctx, requestSpec{
		method:   http.MethodPost,
		path:     "/users",
		body:     input,
		authed:   true,
		fallback: "Failed to create user",
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteUser removes a dashboard user.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return c.do(ctx, requestSpec{
		method:   http.MethodDelete,
		path:     fmt.Sprintf("/users/%s", url.PathEscape(userID)),
		authed:   true,
		fallback: "Failed to delete user",
	}, nil)
}

// ProfileInput carries the editable fields of the caller's own profile.
type ProfileInput struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// UpdateProfile sends server-confirmed profile edits. When avatar is non-nil
// the payload goes up as a multipart form with the image attached; otherwise
// plain JSON. Returns the updated identity record.
func (c *Client) UpdateProfile(ctx context.Context, input ProfileInput, avatar io.Reader, avatarName string) (*User, error) {
	if avatar == nil {
		var resp struct {
			Success bool `json:"success"`
			Data    User `json:"data"`
		}
		err := c.do(ctx, requestSpec{
			method:   http.MethodPut,
			path:     "/users/profile",
			body:     input,
			authed:   true,
			fallback: "Failed to update profile",
		}, &resp)
		if err != nil {
			return nil, err
		}
		user := resp.Data
		return &user, nil
	}
	return c.updateProfileMultipart(ctx, input, avatar, avatarName)
}

func (c *Client) updateProfileMultipart(ctx context.Context, input ProfileInput, avatar io.Reader, avatarName string) (*User, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fields := map[string]string{
		"first_name": input.FirstName,
		"last_name":  input.LastName,
		"phone":      input.Phone,
		"bio":        input.Bio,
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := form.WriteField(key, value); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write form field")
		}
	}

	if avatarName == "" {
		avatarName = "avatar"
	}
	part, err := form.CreateFormFile("profile_image", avatarName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create form file")
	}
	if _, err := io.Copy(part, avatar); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "copy avatar data")
	}
	if err := form.Close(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finalize form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.buildURL("/users/profile"), &buf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set(requestIDHeader, uuid.NewString())

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read credential")
	}
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "no credential stored")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.errorFromResponse(ctx, resp, "Failed to update profile")
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    User `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	user := envelope.Data
	return &user, nil
}
