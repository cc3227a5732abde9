package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// DashboardStats are the headline numbers of the overview page.
type DashboardStats struct {
	TotalItems    int             `json:"totalItems"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
	LowStockCount int             `json:"lowStockCount"`
}

// CategoryStock is one bar of the stock-distribution chart.
type CategoryStock struct {
	Category string          `json:"category"`
	Stock    decimal.Decimal `json:"stock"`
}

// DashboardCharts groups the chart series of the overview.
type DashboardCharts struct {
	StockByCategory []CategoryStock `json:"stockByCategory"`
}

// DashboardAlert is the compact alert shape of the overview panel.
type DashboardAlert struct {
	ID        string    `json:"_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// DashboardActivityActor carries the pre-joined display name the overview
// panel shows, unlike the full activity feed's user record.
type DashboardActivityActor struct {
	Name string `json:"name"`
}

// DashboardActivity is one row of the overview's recent-actions panel.
type DashboardActivity struct {
	ID     string                  `json:"_id"`
	Actor  *DashboardActivityActor `json:"user"`
	Action string                  `json:"action"`
}

// DashboardPanels groups the overview's side panels.
type DashboardPanels struct {
	Activities []DashboardActivity `json:"activities"`
	Alerts     []DashboardAlert    `json:"alerts"`
}

// Dashboard is the aggregate overview the backend computes server-side.
type Dashboard struct {
	Stats  DashboardStats  `json:"stats"`
	Charts DashboardCharts `json:"charts"`
	Panels DashboardPanels `json:"panels"`
}

// FetchDashboard pulls the precomputed overview in one call.
func (c *Client) FetchDashboard(ctx context.Context) (*Dashboard, error) {
	var dashboard Dashboard
	err := c.do(ctx, requestSpec{
		method:   http.MethodGet,
		path:     "/dashboard",
		authed:   true,
		fallback: "Failed to load dashboard",
	}, &dashboard)
	if err != nil {
		return nil, err
	}
	return &dashboard, nil
}
