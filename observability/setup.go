package observability

import (
	"context"
	"errors"
)

// ShutdownFunc flushes and stops telemetry providers.
type ShutdownFunc func(ctx context.Context) error

// Setup initializes tracing and metrics when cfg.Enabled is set. The
// returned ShutdownFunc is always non-nil.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return noopShutdown, err
	}
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	tp, err := InitTracer(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}
	mp, err := InitMeter(ctx, cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return noopShutdown, err
	}

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func noopShutdown(context.Context) error { return nil }
