package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the subset of bearer token claims the client inspects.
// The token is opaque to the client contract; this parse is unverified and
// purely informational (expiry warnings in logs).
type TokenClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// InspectToken decodes the claims of a JWT-shaped bearer token without
// verifying its signature. Non-JWT tokens return an error and are treated
// as healthy.
func InspectToken(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("inspecting token: %w", err)
	}
	return claims, nil
}

// Expired reports whether the token's exp claim is in the past. Tokens
// without an exp claim never report expired.
func (c *TokenClaims) Expired() bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Before(time.Now())
}

// ExpiresWithin reports whether the token expires inside the given window.
func (c *TokenClaims) ExpiresWithin(window time.Duration) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Before(time.Now().Add(window))
}
