package supabase

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kbukum/authguard/validation"
)

// VerifyMode selects how access tokens are checked.
type VerifyMode string

const (
	// VerifyRemote asks GoTrue for the user on every request.
	VerifyRemote VerifyMode = "remote"
	// VerifySecret checks HS256 tokens with the project's JWT secret.
	VerifySecret VerifyMode = "secret"
	// VerifyJWKS checks asymmetric tokens against the project's published keys.
	VerifyJWKS VerifyMode = "jwks"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultRefreshMargin = 90 * time.Second
	defaultCookieMaxAge  = 400 * 24 * 60 * 60
	defaultMaxFailures   = 5
	defaultResetTimeout  = 30 * time.Second
)

// CookieOptions are the attributes written on session cookies.
type CookieOptions struct {
	Path     string `yaml:"path" mapstructure:"path" validate:"omitempty,urlpath"`
	Domain   string `yaml:"domain" mapstructure:"domain"`
	MaxAge   int    `yaml:"max_age" mapstructure:"max_age" validate:"gte=0"`
	SameSite string `yaml:"same_site" mapstructure:"same_site" validate:"omitempty,oneof=lax strict none"`
	Secure   bool   `yaml:"secure" mapstructure:"secure"`
	HTTPOnly bool   `yaml:"http_only" mapstructure:"http_only"`
}

func (o CookieOptions) sameSite() http.SameSite {
	switch o.SameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Config configures the Supabase auth backend.
type Config struct {
	// URL is the project URL, e.g. https://abcd.supabase.co.
	URL string `yaml:"url" mapstructure:"url" validate:"required,url"`
	// AnonKey is the project's public (anon) API key.
	AnonKey string `yaml:"anon_key" mapstructure:"anon_key" validate:"required"`
	// CookieName defaults to sb-<project-ref>-auth-token.
	CookieName string `yaml:"cookie_name" mapstructure:"cookie_name"`
	// Timeout bounds each call to GoTrue. Defaults to 10s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// VerifyMode defaults to remote.
	VerifyMode VerifyMode `yaml:"verify_mode" mapstructure:"verify_mode" validate:"omitempty,oneof=remote secret jwks"`
	// JWTSecret is required for secret mode. In jwks mode it additionally
	// allows HS256 tokens to be verified locally.
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	// JWKSCacheTTL is how long fetched signing keys are trusted.
	JWKSCacheTTL time.Duration `yaml:"jwks_cache_ttl" mapstructure:"jwks_cache_ttl"`
	// RefreshMargin refreshes sessions expiring within this window. Defaults to 90s.
	RefreshMargin time.Duration `yaml:"refresh_margin" mapstructure:"refresh_margin"`
	// MaxFailures consecutive unavailability errors open the circuit breaker.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures" validate:"gte=0"`
	// ResetTimeout is how long the breaker stays open before probing again.
	ResetTimeout time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`

	Cookie CookieOptions `yaml:"cookie" mapstructure:"cookie"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	c.URL = strings.TrimRight(c.URL, "/")
	if c.CookieName == "" {
		c.CookieName = DefaultCookieName(c.URL)
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.VerifyMode == "" {
		c.VerifyMode = VerifyRemote
	}
	if c.RefreshMargin <= 0 {
		c.RefreshMargin = defaultRefreshMargin
	}
	if c.MaxFailures == 0 {
		c.MaxFailures = defaultMaxFailures
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = defaultResetTimeout
	}
	if c.Cookie.Path == "" {
		c.Cookie.Path = "/"
	}
	if c.Cookie.MaxAge == 0 {
		c.Cookie.MaxAge = defaultCookieMaxAge
	}
	if c.Cookie.SameSite == "" {
		c.Cookie.SameSite = "lax"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if c.VerifyMode == VerifySecret && c.JWTSecret == "" {
		return fmt.Errorf("supabase: jwt_secret is required when verify_mode is %q", VerifySecret)
	}
	if c.CookieName == "" {
		return fmt.Errorf("supabase: cookie_name could not be derived from url %q", c.URL)
	}
	return nil
}

// DefaultCookieName returns the cookie name the Supabase JavaScript client
// uses for projectURL: sb-<first host label>-auth-token.
func DefaultCookieName(projectURL string) string {
	u, err := url.Parse(projectURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	ref, _, _ := strings.Cut(u.Hostname(), ".")
	return "sb-" + ref + "-auth-token"
}
