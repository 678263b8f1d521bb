package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/authguard/logger"
)

// InitMeter installs a global meter provider exporting over OTLP HTTP.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))
	return mp, nil
}

// Meter returns the authguard meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// GuardMetrics holds the instruments the route guard records.
type GuardMetrics struct {
	decisions     metric.Int64Counter
	probeDuration metric.Float64Histogram
	probeFailures metric.Int64Counter
}

// NewGuardMetrics creates the guard instruments on meter.
func NewGuardMetrics(meter metric.Meter) (*GuardMetrics, error) {
	decisions, err := meter.Int64Counter("guard.decisions",
		metric.WithDescription("Routing decisions by route class and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating guard.decisions counter: %w", err)
	}

	probeDuration, err := meter.Float64Histogram("guard.probe.duration",
		metric.WithDescription("Duration of session probes against the auth backend"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating guard.probe.duration histogram: %w", err)
	}

	probeFailures, err := meter.Int64Counter("guard.probe.failures",
		metric.WithDescription("Session probes that failed and were treated as signed out"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating guard.probe.failures counter: %w", err)
	}

	return &GuardMetrics{
		decisions:     decisions,
		probeDuration: probeDuration,
		probeFailures: probeFailures,
	}, nil
}

// RecordDecision counts one routing decision.
func (m *GuardMetrics) RecordDecision(ctx context.Context, routeClass, decision string) {
	if m == nil {
		return
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrRouteClass, routeClass),
		attribute.String(AttrDecision, decision),
	))
}

// RecordProbe records a probe's duration and outcome: "authenticated",
// "anonymous" or "error". Errors also count as failures.
func (m *GuardMetrics) RecordProbe(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.probeDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
	if outcome == "error" {
		m.probeFailures.Add(ctx, 1)
	}
}
