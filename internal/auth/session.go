// Package auth holds the bearer session obtained at login and helpers for
// looking inside it.
package auth

import (
	"encoding/json"
	"errors"
)

// ErrMissingToken is returned when a successful login response carries no
// usable access_token.
var ErrMissingToken = errors.New("login response missing access_token")

// Session is the bearer credential carried from login to the authenticated
// probes. The token is opaque; it is never refreshed or revalidated.
type Session struct {
	Token string
}

// ParseLoginResponse extracts access_token from a login response body. Bodies
// that are not JSON objects, or whose access_token is absent, empty, or not a
// string, yield ErrMissingToken.
func ParseLoginResponse(body []byte) (Session, error) {
	var resp struct {
		AccessToken any `json:"access_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Session{}, ErrMissingToken
	}
	token, ok := resp.AccessToken.(string)
	if !ok || token == "" {
		return Session{}, ErrMissingToken
	}
	return Session{Token: token}, nil
}
