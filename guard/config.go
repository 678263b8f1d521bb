package guard

import (
	"fmt"
	"slices"

	"github.com/kbukum/authguard/validation"
)

// Default route sets.
var (
	DefaultProtectedPrefixes = []string{"/dashboard", "/account"}
	DefaultAuthOnlyPrefixes  = []string{"/login", "/register", "/forgot-password", "/reset-password"}
)

const (
	DefaultLoginPath     = "/login"
	DefaultPostLoginPath = "/dashboard"
)

// Config is the route guard configuration. It is copied into the Guard at
// construction and never changes afterwards.
type Config struct {
	// ProtectedPrefixes require a session. Matching is a plain,
	// case-sensitive string prefix test, so "/dashboard" also covers
	// "/dashboard2".
	ProtectedPrefixes []string `yaml:"protected_prefixes" mapstructure:"protected_prefixes" validate:"dive,required,urlpath"`
	// AuthOnlyPrefixes are pages for signed-out callers only (login,
	// register). Despite the name they match by exact equality.
	AuthOnlyPrefixes []string `yaml:"auth_only_prefixes" mapstructure:"auth_only_prefixes" validate:"dive,required,urlpath"`
	// LoginPath is where unauthenticated callers of protected routes go.
	LoginPath string `yaml:"login_path" mapstructure:"login_path" validate:"required,urlpath"`
	// PostLoginPath is where authenticated callers of auth-only routes go.
	PostLoginPath string `yaml:"post_login_path" mapstructure:"post_login_path" validate:"required,urlpath"`
	// SkipPrefixes bypass the guard entirely: no probe, no decision.
	SkipPrefixes []string `yaml:"skip_prefixes" mapstructure:"skip_prefixes" validate:"dive,required,urlpath"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills nil route sets and empty paths. A non-nil empty slice
// is kept, which disables that route class.
func (c *Config) ApplyDefaults() {
	if c.ProtectedPrefixes == nil {
		c.ProtectedPrefixes = slices.Clone(DefaultProtectedPrefixes)
	}
	if c.AuthOnlyPrefixes == nil {
		c.AuthOnlyPrefixes = slices.Clone(DefaultAuthOnlyPrefixes)
	}
	if c.LoginPath == "" {
		c.LoginPath = DefaultLoginPath
	}
	if c.PostLoginPath == "" {
		c.PostLoginPath = DefaultPostLoginPath
	}
}

// Validate checks field formats, and rejects skip prefixes that would
// switch off protection for a protected route.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	for _, skip := range c.SkipPrefixes {
		if Classify(skip, *c) == Protected {
			return fmt.Errorf("guard: skip prefix %q lies inside a protected prefix", skip)
		}
	}
	return nil
}

func (c Config) clone() Config {
	c.ProtectedPrefixes = slices.Clone(c.ProtectedPrefixes)
	c.AuthOnlyPrefixes = slices.Clone(c.AuthOnlyPrefixes)
	c.SkipPrefixes = slices.Clone(c.SkipPrefixes)
	return c
}
