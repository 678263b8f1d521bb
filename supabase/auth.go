package supabase

import (
	"context"
	"net/http"

	apperrors "github.com/kbukum/authguard/errors"
	"github.com/kbukum/authguard/httpclient"
	"github.com/kbukum/authguard/observability"
)

// ExchangeCodeForSession completes a PKCE sign-in. The verifier is read from
// the code-verifier cookie the browser client stored when it started the
// flow. The returned cookies store the session and delete the verifier.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code string, cookies []*http.Cookie) (*Session, []*http.Cookie, error) {
	if code == "" {
		return nil, nil, apperrors.InvalidInput("code", "is required")
	}
	raw, ok := readCookie(cookies, c.CodeVerifierCookie())
	verifier := decodeCodeVerifier(raw)
	if !ok || verifier == "" {
		return nil, nil, apperrors.InvalidInput("code_verifier", "cookie is missing")
	}

	sess, err := c.token(ctx, "pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if err != nil {
		return nil, nil, err
	}

	set, err := c.SessionCookies(sess, cookies)
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}
	set = append(set, clearCookies(c.CodeVerifierCookie(), c.cfg.Cookie, cookies)...)
	return sess, set, nil
}

// SignOut revokes the session (all devices) and returns cookies deleting it.
// The cookies are returned even when the revocation call fails; the error
// is still reported.
func (c *Client) SignOut(ctx context.Context, cookies []*http.Cookie) ([]*http.Cookie, error) {
	deletions := c.clear(cookies)
	raw, ok := readCookie(cookies, c.cfg.CookieName)
	if !ok {
		return deletions, nil
	}
	sess, err := decodeSession(raw)
	if err != nil {
		return deletions, nil
	}

	_, err = c.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   pathLogout,
		Query:  map[string]string{"scope": "global"},
		Auth:   httpclient.BearerAuth(sess.AccessToken),
	})
	if err != nil && !signedOut(err) {
		return deletions, httpclient.ToAppError(serviceName, err)
	}
	return deletions, nil
}

// CheckHealth implements observability.HealthChecker.
func (c *Client) CheckHealth(ctx context.Context) observability.Health {
	h := observability.Health{
		Name:    "supabase_auth",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"circuit": c.http.CircuitState().String()},
	}
	_, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: pathHealth})
	if err != nil {
		h.Status = observability.HealthStatusDown
		h.Message = err.Error()
	}
	return h
}
