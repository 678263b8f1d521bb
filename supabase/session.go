package supabase

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const base64Prefix = "base64-"

// Session is the GoTrue session as stored in the auth cookie.
type Session struct {
	AccessToken          string `json:"access_token"`
	TokenType            string `json:"token_type"`
	ExpiresIn            int64  `json:"expires_in"`
	ExpiresAt            int64  `json:"expires_at,omitempty"`
	RefreshToken         string `json:"refresh_token"`
	ProviderToken        string `json:"provider_token,omitempty"`
	ProviderRefreshToken string `json:"provider_refresh_token,omitempty"`
	User                 *User  `json:"user,omitempty"`
}

// User is the GoTrue user object.
type User struct {
	ID           string         `json:"id"`
	Aud          string         `json:"aud,omitempty"`
	Role         string         `json:"role,omitempty"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	IsAnonymous  bool           `json:"is_anonymous,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Expiry returns when the access token expires, or the zero time if unknown.
func (s *Session) Expiry() time.Time {
	if s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// encodeSession produces the cookie value: "base64-" followed by the
// unpadded base64url encoding of the session JSON.
func encodeSession(s *Session) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64Prefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// decodeSession accepts the base64 form and the older raw (optionally
// URI-encoded) JSON form.
func decodeSession(value string) (*Session, error) {
	b, err := decodeValue(value)
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("decode session: no access token")
	}
	return &s, nil
}

func decodeValue(value string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(value, base64Prefix); ok {
		b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(rest, "="))
		if err != nil {
			return nil, fmt.Errorf("decode cookie: %w", err)
		}
		return b, nil
	}
	if strings.HasPrefix(value, "%") {
		unescaped, err := url.PathUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("decode cookie: %w", err)
		}
		value = unescaped
	}
	return []byte(value), nil
}

// decodeCodeVerifier extracts the PKCE verifier. The JavaScript client
// stores it as a JSON string of the form "<verifier>/<redirect type>".
func decodeCodeVerifier(value string) string {
	b, err := decodeValue(value)
	if err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		s = string(b)
	}
	verifier, _, _ := strings.Cut(s, "/")
	return verifier
}
