package bootstrap

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kbukum/authguard/config"
	"github.com/kbukum/authguard/logger"
	"github.com/kbukum/authguard/observability"
)

// testConfig is a minimal config satisfying Config.
type testConfig struct {
	config.ServiceConfig
}

type staticChecker observability.Health

func (s staticChecker) CheckHealth(context.Context) observability.Health {
	return observability.Health(s)
}

func newTestApp(t *testing.T, opts ...Option) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "test-svc"}}
	opts = append([]Option{WithLogger(logger.NewNop())}, opts...)
	app, err := NewApp(cfg, opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t, WithVersion("1.2.3"))
	if app.Name != "test-svc" || app.Version != "1.2.3" {
		t.Errorf("unexpected app %q %q", app.Name, app.Version)
	}
	if app.Cfg.Environment != "development" {
		t.Errorf("expected defaults applied, got %q", app.Cfg.Environment)
	}
	if app.gracefulTimeout != 15*time.Second {
		t.Errorf("expected default graceful timeout, got %v", app.gracefulTimeout)
	}
}

func TestNewAppValidation(t *testing.T) {
	_, err := NewApp(&testConfig{}, WithLogger(logger.NewNop()))
	if err == nil {
		t.Error("expected error for missing name")
	}
}

func TestWithGracefulTimeout(t *testing.T) {
	app := newTestApp(t, WithGracefulTimeout(time.Second))
	if app.gracefulTimeout != time.Second {
		t.Errorf("expected 1s, got %v", app.gracefulTimeout)
	}
}

func TestRunTask_Lifecycle(t *testing.T) {
	app := newTestApp(t)
	var order []string
	record := func(name string) Hook {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	app.OnStart(record("start"))
	app.OnConfigure(func(_ context.Context, a *App[*testConfig]) error {
		order = append(order, "configure")
		a.OnStop(record("stop-1"), record("stop-2"))
		return nil
	})
	app.OnReady(record("ready"))

	err := app.RunTask(context.Background(), func(context.Context) error {
		order = append(order, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"start", "configure", "ready", "task", "stop-2", "stop-1"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestRunTask_ConfigureErrorStillStops(t *testing.T) {
	app := newTestApp(t)
	stopped := false
	app.OnStop(func(context.Context) error { stopped = true; return nil })
	app.OnConfigure(func(context.Context, *App[*testConfig]) error { return errors.New("boom") })

	ran := false
	err := app.RunTask(context.Background(), func(context.Context) error { ran = true; return nil })
	if err == nil || ran {
		t.Errorf("expected configure error before the task, got %v ran=%v", err, ran)
	}
	if !stopped {
		t.Error("stop hooks must run after a failed startup")
	}
}

func TestRunTask_ErrorsPropagate(t *testing.T) {
	app := newTestApp(t)
	taskErr := errors.New("task failed")
	if err := app.RunTask(context.Background(), func(context.Context) error { return taskErr }); !errors.Is(err, taskErr) {
		t.Errorf("expected task error, got %v", err)
	}

	app = newTestApp(t)
	stopErr := errors.New("stop failed")
	app.OnStop(func(context.Context) error { return stopErr })
	if err := app.RunTask(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, stopErr) {
		t.Errorf("expected stop error, got %v", err)
	}
}

func TestReadyCheck(t *testing.T) {
	app := newTestApp(t)
	if err := app.ReadyCheck(context.Background()); err != nil {
		t.Errorf("no checkers should be ready, got %v", err)
	}

	app.AddHealthChecker(
		staticChecker{Name: "cache", Status: observability.HealthStatusUp},
		staticChecker{Name: "supabase_auth", Status: observability.HealthStatusDown, Message: "connection refused"},
	)
	err := app.ReadyCheck(context.Background())
	if err == nil || err.Error() != "unhealthy components: [supabase_auth=down(connection refused)]" {
		t.Errorf("unexpected ready check result: %v", err)
	}
	if len(app.HealthCheckers()) != 2 {
		t.Error("expected checkers to be exposed")
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	app := newTestApp(t)
	stopped := make(chan struct{})
	app.OnStop(func(context.Context) error { close(stopped); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	select {
	case <-stopped:
	default:
		t.Error("stop hooks did not run")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	app := newTestApp(t)
	calls := 0
	app.OnStop(func(context.Context) error { calls++; return nil })
	_ = app.Shutdown()
	_ = app.Shutdown()
	if calls != 1 {
		t.Errorf("expected one stop call, got %d", calls)
	}
}
