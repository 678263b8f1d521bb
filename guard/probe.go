package guard

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kbukum/authguard/logger"
	"github.com/kbukum/authguard/observability"
)

type probeResult struct {
	identity *Identity
	cookies  []*http.Cookie
	err      error
}

func (p probeResult) outcome() string {
	switch {
	case p.err != nil:
		return "error"
	case p.identity != nil:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// probe asks the backend for the caller. A failing backend yields no
// identity; cookies it returned alongside the error are still relayed.
func (g *Guard) probe(ctx context.Context, r *http.Request) probeResult {
	ctx, span := observability.StartSpan(ctx, observability.SpanProbe)
	defer span.End()

	start := time.Now()
	id, cookies, err := g.backend.GetUser(ctx, r.Cookies())
	elapsed := time.Since(start)

	res := probeResult{identity: id, cookies: cookies, err: err}
	if err != nil {
		res.identity = nil
		span.RecordError(err)
		span.SetStatus(codes.Error, "auth backend unavailable")
		g.log.WithContext(ctx).Warn("Session probe failed, treating caller as signed out", logger.Fields(
			logger.FieldPath, r.URL.Path,
			logger.FieldError, err.Error(),
			logger.FieldDuration, elapsed.Milliseconds(),
		))
	}
	span.SetAttributes(attribute.String(observability.AttrOutcome, res.outcome()))
	if res.identity != nil {
		span.SetAttributes(attribute.String(observability.AttrUserID, res.identity.UserID))
	}
	g.metrics.RecordProbe(ctx, res.outcome(), elapsed)
	return res
}
