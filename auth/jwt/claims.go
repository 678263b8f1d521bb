// Package jwt verifies Supabase session access tokens. Tokens signed with
// the project's shared secret (HS256) are checked against Config.Secret;
// asymmetric tokens (RS256, ES256) are checked against the project's
// published JWKS through a KeySet.
package jwt

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims is the claim set GoTrue puts into access tokens.
type Claims struct {
	gojwt.RegisteredClaims
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Role         string         `json:"role,omitempty"`
	AAL          string         `json:"aal,omitempty"`
	SessionID    string         `json:"session_id,omitempty"`
	IsAnonymous  bool           `json:"is_anonymous,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// ExpiresWithin reports whether the token expires within d of now. Tokens
// without an exp claim never expire.
func (c *Claims) ExpiresWithin(d time.Duration, now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Add(d).Before(c.ExpiresAt.Time)
}

// ParseUnverified decodes a token without checking its signature. Only use
// the result for scheduling decisions such as when to refresh.
func ParseUnverified(token string) (*Claims, string, error) {
	claims := &Claims{}
	t, _, err := gojwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return nil, "", err
	}
	return claims, t.Method.Alg(), nil
}

// Sign issues a token for claims. kid is written to the header when non-empty.
func Sign(claims *Claims, method gojwt.SigningMethod, key any, kid string) (string, error) {
	t := gojwt.NewWithClaims(method, claims)
	if kid != "" {
		t.Header["kid"] = kid
	}
	return t.SignedString(key)
}
