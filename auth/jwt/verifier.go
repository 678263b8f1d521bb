package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/kbukum/authguard/errors"
)

// Config configures token verification.
type Config struct {
	// Secret is the project's JWT secret for HS256 tokens.
	Secret string
	// Keys verifies asymmetric tokens. Nil rejects them.
	Keys *KeySet
	// Issuer, when set, must match the iss claim.
	Issuer string
	// Audience, when set, must appear in the aud claim. GoTrue uses "authenticated".
	Audience string
	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration
}

// Verifier checks access token signatures and time claims.
type Verifier struct {
	cfg    Config
	parser *gojwt.Parser
}

// NewVerifier creates a Verifier. At least one of Secret or Keys is required.
func NewVerifier(cfg Config) (*Verifier, error) {
	var methods []string
	if cfg.Secret != "" {
		methods = append(methods, "HS256", "HS384", "HS512")
	}
	if cfg.Keys != nil {
		methods = append(methods, "RS256", "RS384", "RS512", "ES256", "ES384", "ES512")
	}
	if len(methods) == 0 {
		return nil, errors.New("jwt: secret or key set is required")
	}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods(methods),
		gojwt.WithExpirationRequired(),
		gojwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(cfg.Audience))
	}
	return &Verifier{cfg: cfg, parser: gojwt.NewParser(opts...)}, nil
}

// Verify parses and validates token. Errors are *errors.AppError:
// TOKEN_EXPIRED or INVALID_TOKEN when the token is bad, and an availability
// code when signing keys could not be fetched.
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *gojwt.Token) (any, error) {
		return v.key(ctx, t)
	})
	if err != nil {
		return nil, classify(err)
	}
	return claims, nil
}

func (v *Verifier) key(ctx context.Context, t *gojwt.Token) (any, error) {
	alg := t.Method.Alg()
	if strings.HasPrefix(alg, "HS") {
		return []byte(v.cfg.Secret), nil
	}
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("%s token without kid", alg)
	}
	return v.cfg.Keys.Key(ctx, kid)
}

func classify(err error) error {
	if ae, ok := apperrors.AsAppError(err); ok && ae.Retryable {
		return ae
	}
	if errors.Is(err, gojwt.ErrTokenExpired) {
		return apperrors.TokenExpired().WithCause(err)
	}
	return apperrors.InvalidToken().WithCause(err)
}
