package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/kbukum/authguard/bootstrap"
	"github.com/kbukum/authguard/guard"
	"github.com/kbukum/authguard/logger"
	"github.com/kbukum/authguard/observability"
	"github.com/kbukum/authguard/server"
	"github.com/kbukum/authguard/server/middleware"
	"github.com/kbukum/authguard/supabase"
	"github.com/kbukum/authguard/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the demo application behind the guard",
		Long: `Serve a small set of pages behind the session guard, backed by Supabase Auth.
Protected pages redirect anonymous callers to the login page; auth pages
redirect signed-in callers to the post-login page.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAppConfig(opts)
			if err != nil {
				return err
			}
			app, err := bootstrap.NewApp(cfg, bootstrap.WithVersion(version.String()))
			if err != nil {
				return err
			}
			app.OnConfigure(configureServe)
			return app.Run(cmd.Context())
		},
	}
}

// configureServe wires telemetry, the Supabase backend, the guard and the
// HTTP server into app.
func configureServe(ctx context.Context, app *bootstrap.App[*AppConfig]) error {
	cfg := app.Cfg
	log := app.Logger
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg.Observability.ServiceVersion = app.Version
	shutdownTelemetry, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	app.OnStop(bootstrap.Hook(shutdownTelemetry))

	metrics, err := observability.NewGuardMetrics(observability.Meter())
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	backend, err := supabase.New(cfg.Supabase, supabase.WithLogger(log))
	if err != nil {
		return fmt.Errorf("supabase: %w", err)
	}
	app.AddHealthChecker(backend)

	g, err := guard.New(cfg.Guard, backend, guard.WithLogger(log), guard.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("guard: %w", err)
	}

	srv := server.New(cfg.Server, log)
	srv.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		g.Middleware(),
	)
	srv.RegisterHealth(app.Name, app.Version, app.HealthCheckers()...)
	supabase.NewHandlers(backend, g.Config(), log).Register(srv.Engine())
	registerPages(srv.Engine(), g.Config())

	app.OnReady(func(ctx context.Context) error {
		if err := srv.Start(ctx); err != nil {
			return err
		}
		app.OnStop(srv.Stop)
		log.Info("Guard active", logger.Fields(
			"addr", srv.Addr(),
			"protected", g.Config().ProtectedPrefixes,
			"auth_only", g.Config().AuthOnlyPrefixes,
			"verify_mode", string(backend.Config().VerifyMode),
		))
		return nil
	})
	return nil
}
