package api

import (
	"context"
	"net/http"
	"time"

	pkgerrors "github.com/walidbr/stockdeck/pkg/errors"
)

// ActivityActor identifies who performed a logged action.
type ActivityActor struct {
	ID           string `json:"_id"`
	FirstName    string `json:"first_name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	AvatarColor  string `json:"avatarColor"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// Activity is one entry of the audit feed.
type Activity struct {
	ID        string         `json:"_id"`
	Actor     *ActivityActor `json:"user"`
	Action    string         `json:"action"`
	Timestamp time.Time      `json:"timestamp"`
}

// ListActivities fetches the activity feed, newest entries included.
func (c *Client) ListActivities(ctx context.Context) ([]Activity, error) {
	var resp struct {
		Success bool       `json:"success"`
		Data    []Activity `json:"data"`
	}
	err := c.do(ctx, requestSpec{
		method: http.MethodGet,
		path:   "/activities",
		authed: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity envelope not successful")
	}
	return resp.Data, nil
}
