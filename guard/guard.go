package guard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authguard/auth/authctx"
	"github.com/kbukum/authguard/logger"
	"github.com/kbukum/authguard/observability"
	"github.com/kbukum/authguard/server/middleware"
)

// Guard evaluates requests against a Config using a Backend. It holds no
// per-request state and is safe for concurrent use.
type Guard struct {
	cfg     Config
	backend Backend
	log     *logger.Logger
	metrics *observability.GuardMetrics
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(g *Guard) { g.log = l }
}

// WithMetrics records decisions and probe timings.
func WithMetrics(m *observability.GuardMetrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// New creates a Guard. Defaults are applied to cfg before it is validated.
func New(cfg Config, backend Backend, opts ...Option) (*Guard, error) {
	if backend == nil {
		return nil, errors.New("guard: backend is required")
	}
	cfg = cfg.clone()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Guard{cfg: cfg, backend: backend}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.GetGlobalLogger()
	}
	g.log = g.log.WithComponent("guard")
	return g, nil
}

// Config returns a copy of the effective configuration.
func (g *Guard) Config() Config {
	return g.cfg.clone()
}

// Result is the full outcome of evaluating one request.
type Result struct {
	Class    RouteClass
	Decision Decision
	Identity *Identity
	// Cookies are the cookies to relay, exactly as the backend returned them.
	Cookies []*http.Cookie
	// ProbeErr is the swallowed backend error, if any.
	ProbeErr error
	// Skipped is set when the path matched a skip prefix.
	Skipped bool
}

// Evaluate classifies r, probes the backend and decides. It writes nothing.
func (g *Guard) Evaluate(r *http.Request) Result {
	path := r.URL.Path
	if skipped(path, g.cfg) {
		return Result{Class: Neither, Decision: Decision{Kind: Continue}, Skipped: true}
	}

	ctx := r.Context()
	class := Classify(path, g.cfg)
	pr := g.probe(ctx, r)
	dec := Decide(class, pr.identity, path, g.cfg)

	g.metrics.RecordDecision(ctx, class.String(), dec.Kind.String())
	g.log.WithContext(ctx).Debug("Route decision", logger.Fields(
		logger.FieldPath, path,
		"route_class", class.String(),
		logger.FieldDecision, dec.Kind.String(),
		logger.FieldLocation, dec.Location(),
	))

	return Result{
		Class:    class,
		Decision: dec,
		Identity: pr.identity,
		Cookies:  pr.cookies,
		ProbeErr: pr.err,
	}
}

// Middleware returns net/http middleware enforcing the guard. Redirects are
// 307 Temporary Redirect. On Continue the caller's identity is stored in the
// request context (see authctx) and relayed cookies are visible on the
// forwarded request.
func (g *Guard) Middleware() middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := g.Evaluate(r)
			RelayCookies(w, res.Cookies)

			if res.Decision.IsRedirect() {
				w.Header().Set("Location", res.Decision.Location())
				w.Header().Set("Cache-Control", "no-store")
				w.WriteHeader(http.StatusTemporaryRedirect)
				return
			}

			applyToRequest(r, res.Cookies)
			if res.Identity != nil {
				ctx := authctx.Set(r.Context(), res.Identity)
				ctx = logger.ContextWithUserID(ctx, res.Identity.UserID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Gin returns the guard as Gin middleware.
func (g *Guard) Gin() gin.HandlerFunc {
	return middleware.GinWrap(g.Middleware())
}

// IdentityFromContext returns the identity the guard stored for this request.
func IdentityFromContext(r *http.Request) (*Identity, bool) {
	return authctx.Get[*Identity](r.Context())
}
