// Package observability wires OpenTelemetry tracing and metrics for
// authguard and defines the instruments the guard records.
//
// Setup installs global tracer and meter providers that export over OTLP
// HTTP. When telemetry is disabled, the otel globals stay no-ops and every
// instrument created here is free to call.
//
//	shutdown, err := observability.Setup(ctx, cfg)
//	defer shutdown(context.Background())
package observability
