// Package auth inspects bearer tokens issued by the backend and derives the operator's
// capabilities from their role. Tokens are never verified here: the client holds no signing
// key, and the backend remains the only enforcer. Claims are read only to detect expiry
// early and to recover the role when the cached user lacks one.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrNotJWT is returned when a token is opaque rather than a JSON Web Token.
var ErrNotJWT = errors.New("auth: token is not a JWT")

// Claims represents the subset of backend claims the client cares about.
// It embeds jwt.RegisteredClaims for standard fields like expiration time.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the claims of tokenStr without checking its signature.
func ParseClaims(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, ErrNotJWT
	}
	return claims, nil
}

// Expired reports whether tokenStr is a JWT whose expiry lies before now.
// Opaque tokens and tokens without an exp claim never expire client-side.
func Expired(tokenStr string, now time.Time) bool {
	claims, err := ParseClaims(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

// TokenRole returns the role claim of tokenStr, or "" when it has none.
func TokenRole(tokenStr string) string {
	claims, err := ParseClaims(tokenStr)
	if err != nil {
		return ""
	}
	return claims.Role
}
