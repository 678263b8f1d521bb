package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kbukum/authguard/auth/jwt"
	apperrors "github.com/kbukum/authguard/errors"
	"github.com/kbukum/authguard/guard"
	"github.com/kbukum/authguard/httpclient"
	"github.com/kbukum/authguard/logger"
	"github.com/kbukum/authguard/observability"
)

const serviceName = "supabase auth"

const (
	pathUser   = "/auth/v1/user"
	pathToken  = "/auth/v1/token"
	pathLogout = "/auth/v1/logout"
	pathJWKS   = "/auth/v1/.well-known/jwks.json"
	pathHealth = "/auth/v1/health"
)

var (
	_ guard.Backend               = (*Client)(nil)
	_ observability.HealthChecker = (*Client)(nil)
)

// Client talks to Supabase Auth and manages the session cookies.
type Client struct {
	cfg      Config
	http     *httpclient.Client
	verifier *jwt.Verifier
	log      *logger.Logger
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client. Defaults are applied to cfg before validation.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cb := httpclient.DefaultCircuitBreakerConfig("supabase-auth")
	cb.MaxFailures = cfg.MaxFailures
	cb.Timeout = cfg.ResetTimeout

	hc, err := httpclient.New(httpclient.Config{
		BaseURL:        cfg.URL,
		Timeout:        cfg.Timeout,
		Auth:           httpclient.APIKeyHeader("apikey", cfg.AnonKey),
		CircuitBreaker: cb,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg, http: hc, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.GetGlobalLogger()
	}
	c.log = c.log.WithComponent("supabase")

	switch cfg.VerifyMode {
	case VerifySecret:
		c.verifier, err = jwt.NewVerifier(jwt.Config{Secret: cfg.JWTSecret})
	case VerifyJWKS:
		c.verifier, err = jwt.NewVerifier(jwt.Config{
			Secret: cfg.JWTSecret,
			Keys:   jwt.NewKeySet(hc, pathJWKS, cfg.JWKSCacheTTL),
		})
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// CodeVerifierCookie is the name of the cookie holding the PKCE verifier.
func (c *Client) CodeVerifierCookie() string {
	return c.cfg.CookieName + "-code-verifier"
}

// GetUser implements guard.Backend.
//
// No session cookie means signed out. A session close to expiry is
// refreshed first and the new session is returned as cookies to set. A
// session GoTrue rejects yields no identity and cookies deleting it. Errors
// are returned only when GoTrue could not be asked.
func (c *Client) GetUser(ctx context.Context, cookies []*http.Cookie) (*guard.Identity, []*http.Cookie, error) {
	raw, ok := readCookie(cookies, c.cfg.CookieName)
	if !ok {
		return nil, nil, nil
	}
	sess, err := decodeSession(raw)
	if err != nil {
		c.log.WithContext(ctx).Debug("Discarding unreadable session cookie", logger.Fields(logger.FieldError, err.Error()))
		return nil, c.clear(cookies), nil
	}

	var set []*http.Cookie
	if c.needsRefresh(sess) {
		fresh, err := c.refresh(ctx, sess.RefreshToken)
		if err != nil {
			if signedOut(err) {
				return nil, c.clear(cookies), nil
			}
			return nil, nil, err
		}
		sess = fresh
		if set, err = c.SessionCookies(sess, cookies); err != nil {
			return nil, nil, apperrors.Internal(err)
		}
	}

	id, err := c.verify(ctx, sess)
	if err != nil {
		if signedOut(err) {
			return nil, c.clear(cookies), nil
		}
		return nil, set, err
	}
	return id, set, nil
}

// SessionCookies encodes sess into the cookies that store it, deleting any
// stale chunks present in existing.
func (c *Client) SessionCookies(sess *Session, existing []*http.Cookie) ([]*http.Cookie, error) {
	value, err := encodeSession(sess)
	if err != nil {
		return nil, err
	}
	return writeCookies(c.cfg.CookieName, value, c.cfg.Cookie, existing), nil
}

func (c *Client) clear(existing []*http.Cookie) []*http.Cookie {
	return clearCookies(c.cfg.CookieName, c.cfg.Cookie, existing)
}

func (c *Client) needsRefresh(sess *Session) bool {
	expiry := sess.Expiry()
	if expiry.IsZero() {
		claims, _, err := jwt.ParseUnverified(sess.AccessToken)
		if err != nil || claims.ExpiresAt == nil {
			return false
		}
		expiry = claims.ExpiresAt.Time
	}
	return !c.now().Add(c.cfg.RefreshMargin).Before(expiry)
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanRefresh)
	defer span.End()

	if refreshToken == "" {
		return nil, apperrors.TokenExpired()
	}
	sess, err := c.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		return nil, err
	}
	return sess, nil
}

// token calls the token endpoint for grantType and returns the new session.
func (c *Client) token(ctx context.Context, grantType string, body map[string]string) (*Session, error) {
	resp, err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   pathToken,
		Query:  map[string]string{"grant_type": grantType},
		Body:   body,
	})
	if err != nil {
		return nil, httpclient.ToAppError(serviceName, err)
	}

	var sess Session
	if err := json.Unmarshal(resp.Body, &sess); err != nil {
		return nil, apperrors.ExternalServiceError(serviceName, fmt.Errorf("decode session: %w", err))
	}
	if sess.AccessToken == "" {
		return nil, apperrors.ExternalServiceError(serviceName, fmt.Errorf("token response without access token"))
	}
	if sess.ExpiresAt == 0 && sess.ExpiresIn > 0 {
		sess.ExpiresAt = c.now().Unix() + sess.ExpiresIn
	}
	return &sess, nil
}

func (c *Client) verify(ctx context.Context, sess *Session) (*guard.Identity, error) {
	if c.verifier == nil || c.remoteOnly(sess.AccessToken) {
		return c.fetchUser(ctx, sess)
	}
	claims, err := c.verifier.Verify(ctx, sess.AccessToken)
	if errors.Is(err, jwt.ErrKeyNotCached) {
		c.log.WithContext(ctx).Debug("Signing key not cached yet, asking auth server",
			logger.Fields(logger.FieldError, err.Error()))
		return c.fetchUser(ctx, sess)
	}
	if err != nil {
		return nil, err
	}
	return identityFromClaims(claims), nil
}

// remoteOnly reports whether a jwks-mode client without a secret has to ask
// GoTrue because the token is HS-signed.
func (c *Client) remoteOnly(token string) bool {
	if c.cfg.VerifyMode != VerifyJWKS || c.cfg.JWTSecret != "" {
		return false
	}
	_, alg, err := jwt.ParseUnverified(token)
	return err == nil && strings.HasPrefix(alg, "HS")
}

func (c *Client) fetchUser(ctx context.Context, sess *Session) (*guard.Identity, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanGetUser)
	defer span.End()
	span.SetAttributes(attribute.String(observability.AttrVerifyMode, string(c.cfg.VerifyMode)))

	resp, err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   pathUser,
		Auth:   httpclient.BearerAuth(sess.AccessToken),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get user failed")
		return nil, httpclient.ToAppError(serviceName, err)
	}

	var u User
	if err := json.Unmarshal(resp.Body, &u); err != nil {
		return nil, apperrors.ExternalServiceError(serviceName, fmt.Errorf("decode user: %w", err))
	}
	if u.ID == "" {
		return nil, apperrors.ExternalServiceError(serviceName, fmt.Errorf("user response without id"))
	}
	return identityFromUser(&u, sess), nil
}

// signedOut reports whether err is a definitive rejection of the session
// rather than a failure to reach GoTrue.
func signedOut(err error) bool {
	ae := httpclient.ToAppError(serviceName, err)
	return ae != nil && !ae.Retryable
}

func identityFromUser(u *User, sess *Session) *guard.Identity {
	id := &guard.Identity{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		ExpiresAt: sess.Expiry(),
		Metadata: map[string]any{
			"app_metadata":  u.AppMetadata,
			"user_metadata": u.UserMetadata,
			"is_anonymous":  u.IsAnonymous,
		},
	}
	if claims, _, err := jwt.ParseUnverified(sess.AccessToken); err == nil {
		id.SessionID = claims.SessionID
		id.Metadata["aal"] = claims.AAL
	}
	return id
}

func identityFromClaims(claims *jwt.Claims) *guard.Identity {
	id := &guard.Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
		Metadata: map[string]any{
			"app_metadata":  claims.AppMetadata,
			"user_metadata": claims.UserMetadata,
			"is_anonymous":  claims.IsAnonymous,
			"aal":           claims.AAL,
		},
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id
}
