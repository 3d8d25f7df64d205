package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Inspect for tokens that do not decode as a JWT.
var ErrNotJWT = errors.New("token is not a JWT")

// Claims represents the JWT claims the EmotionAI backend is known to issue.
// Unknown claims are ignored.
type Claims struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Inspect decodes a token's claims WITHOUT verifying its signature. It exists
// only so a run can log who it is authenticated as and when the token
// expires; it must never be used to decide whether a token is accepted.
func Inspect(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}
	return claims, nil
}

// Identity returns the most specific identity the claims carry.
func (c *Claims) Identity() string {
	switch {
	case c.RegisteredClaims.Subject != "":
		return c.RegisteredClaims.Subject
	case c.Username != "":
		return c.Username
	default:
		return c.UserID
	}
}

// ExpiresIn reports the time left before expiry relative to now, and false
// when the token carries no exp claim.
func (c *Claims) ExpiresIn(now time.Time) (time.Duration, bool) {
	if c.ExpiresAt == nil {
		return 0, false
	}
	return c.ExpiresAt.Sub(now), true
}
