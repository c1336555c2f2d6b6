// Package auth provides JWT-based authentication for examaid-engine.
// It validates session tokens issued by the identity gateway using JWKS
// endpoints.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims represents the session token claims issued by the identity
// gateway. RegisteredClaims carries the standard fields (sub is the
// gateway's user id, iss the gateway issuer, exp the session expiry).
type Claims struct {
	jwt.RegisteredClaims
	Email            string `json:"email,omitempty"`
	DisplayName      string `json:"name,omitempty"`
	PhotoURL         string `json:"picture,omitempty"`
	SubscriptionType string `json:"tier,omitempty"`
	EmailVerified    bool   `json:"email_verified,omitempty"`
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// GetUserIDFromContext extracts the user ID from JWT claims in the context.
// Returns empty string if not authenticated or claims are missing.
func GetUserIDFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Subject
}
