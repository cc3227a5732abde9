package api

import (
	"context"
	"net/http"
)

// SettingsInput carries per-tenant dashboard settings. Fields are pointers so
// the backend only touches what the caller set.
type SettingsInput struct {
	Language     *string `json:"language,omitempty"`
	Theme        *string `json:"theme,omitempty"`
	AlertsByMail *bool   `json:"alertsByMail,omitempty"`
}

// UpdateSystemSettings pushes settings changes. Callers treat failures as
// best-effort: the local preference already applied, a warning is logged.
func (c *Client) UpdateSystemSettings(ctx context.Context, input SettingsInput) error {
	return c.do(ctx, requestSpec{
		method:   http.MethodPut,
		path:     "/system-settings",
		body:     input,
		authed:   true,
		fallback: "Failed to update settings",
	}, nil)
}
