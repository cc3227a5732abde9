package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/walidbr/stockdeck/pkg/errors"
)

// Alert is one server-emitted notification tied to an inventory event.
type Alert struct {
	ID          string    `json:"_id"`
	ProductName string    `json:"productName"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
	Seen        bool      `json:"seen"`
}

// ListAlerts fetches the full alert list in server order (newest first).
func (c *Client) ListAlerts(ctx context.Context) ([]Alert, error) {
	var alerts []Alert
	err := c.do(ctx, requestSpec{
		method: http.MethodGet,
		path:   "/alerts",
		authed: true,
	}, &alerts)
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// MarkAlertSeen flags a single alert as seen on the server.
func (c *Client) MarkAlertSeen(ctx context.Context, alertID string) error {
	if strings.TrimSpace(alertID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "alert id is required")
	}
	return c.do(ctx, requestSpec{
		method:   http.MethodPatch,
		path:     fmt.Sprintf("/alerts/%s/seen", url.PathEscape(alertID)),
		authed:   true,
		fallback: "Failed to update alert",
	}, nil)
}
