package guard

import (
	"context"
	"net/http"
	"time"
)

// Identity is an authenticated caller. The guard only looks at whether one
// is present; handlers can read the fields through authctx.
type Identity struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
	ExpiresAt time.Time
	// Metadata carries backend-specific extras.
	Metadata map[string]any
}

// Backend answers "who is calling?" from the request cookies. It returns
// the identity (nil when signed out), any cookies that must be set on the
// response (for example a refreshed session), and an error when it could
// not answer at all. Cookies may accompany an error.
type Backend interface {
	GetUser(ctx context.Context, cookies []*http.Cookie) (*Identity, []*http.Cookie, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, cookies []*http.Cookie) (*Identity, []*http.Cookie, error)

// GetUser calls f.
func (f BackendFunc) GetUser(ctx context.Context, cookies []*http.Cookie) (*Identity, []*http.Cookie, error) {
	return f(ctx, cookies)
}
