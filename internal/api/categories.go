package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/walidbr/stockdeck/pkg/errors"
)

// Category groups inventory items.
type Category struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// CategoryInput is the mutation payload for category create/update.
type CategoryInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// ListCategories fetches all categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := c.do(ctx, requestSpec{
		method: http.MethodGet,
		path:   "/categories",
		authed: true,
	}, &categories)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateCategory adds a category and returns the created record.
func (c *Client) CreateCategory(ctx context.Context, input CategoryInput) (*Category, error) {
	if err := validatePayload(input); err != nil {
		return nil, err
	}
	var created Category
	err := c.do(ctx, requestSpec{
		method:   http.MethodPost,
		path:     "/categories",
		body:     input,
		authed:   true,
		fallback: "Failed to add category",
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCategory replaces the fields of an existing category.
func (c *Client) UpdateCategory(ctx context.Context, categoryID string, input CategoryInput) (*Category, error) {
	if strings.TrimSpace(categoryID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	if err := validatePayload(input); err != nil {
		return nil, err
	}
	var updated Category
	err := c.do(ctx, requestSpec{
		method:   http.MethodPut,
		path:     fmt.Sprintf("/categories/%s", url.PathEscape(categoryID)),
		body:     input,
		authed:   true,
		fallback: "Failed to update category",
	}, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCategory removes a category.
func (c *Client) DeleteCategory(ctx context.Context, categoryID string) error {
	if strings.TrimSpace(categoryID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	return c.do(ctx, requestSpec{
		method:   http.MethodDelete,
		path:     fmt.Sprintf("/categories/%s", url.PathEscape(categoryID)),
		authed:   true,
		fallback: "Failed to delete category",
	}, nil)
}
