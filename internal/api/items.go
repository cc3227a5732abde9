package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/walidbr/stockdeck/pkg/errors"
	"github.com/walidbr/stockdeck/pkg/enums"
)

// ItemCategory is the category reference embedded in an item record.
type ItemCategory struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Item is one inventory record. Quantities are decimal because kg and L
// stocks are fractional.
type Item struct {
	ID                string          `json:"_id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Quantity          decimal.Decimal `json:"quantity"`
	Unit              enums.Unit      `json:"unit"`
	Category          ItemCategory    `json:"category"`
	LowStockThreshold decimal.Decimal `json:"lowStockThreshold"`
}

// LowStock reports whether the item sits at or below its alert threshold.
func (i Item) LowStock() bool {
	return i.Quantity.LessThanOrEqual(i.LowStockThreshold)
}

// ItemInput is the mutation payload for item create/update. The backend
// expects the category id under the "category" key.
type ItemInput struct {
	Name              string          `json:"name" validate:"required"`
	Description       string          `json:"description"`
	Quantity          decimal.Decimal `json:"quantity"`
	Unit              enums.Unit      `json:"unit"`
	CategoryID        string          `json:"category" validate:"required"`
	LowStockThreshold decimal.Decimal `json:"lowStockThreshold"`
}

func (in ItemInput) validate() error {
	if err := validatePayload(in); err != nil {
		return err
	}
	if !in.Unit.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", in.Unit))
	}
	if in.Quantity.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if !in.Unit.Fractional() && !in.Quantity.IsInteger() {
		return pkgerrors.New(pkgerrors.CodeValidation, "piece counts must be whole numbers")
	}
	return nil
}

// ListItems fetches all inventory items.
func (c *Client) ListItems(ctx context.Context) ([]Item, error) {
	var items []Item
	err := c.do(ctx, requestSpec{
		method: http.MethodGet,
		path:   "/items",
		authed: true,
	}, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CreateItem adds a new inventory item and returns the created record.
func (c *Client) CreateItem(ctx context.Context, input ItemInput) (*Item, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	var created Item
	err := c.do(ctx, requestSpec{
		method:   http.MethodPost,
		path:     "/items",
		body:     input,
		authed:   true,
		fallback: "Failed to add item",
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateItem replaces the fields of an existing item.
func (c *Client) UpdateItem(ctx context.Context, itemID string, input ItemInput) (*Item, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	var updated Item
	err := c.do(ctx, requestSpec{
		method:   http.MethodPut,
		path:     fmt.Sprintf("/items/%s", url.PathEscape(itemID)),
		body:     input,
		authed:   true,
		fallback: "Failed to update item",
	}, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	if strings.TrimSpace(itemID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	return c.do(ctx, requestSpec{
		method:   http.MethodDelete,
		path:     fmt.Sprintf("/items/%s", url.PathEscape(itemID)),
		authed:   true,
		fallback: "Failed to delete item",
	}, nil)
}
