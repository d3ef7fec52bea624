package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rabitem/MailAssistantService-sub002/pkg/config"
	"github.com/rabitem/MailAssistantService-sub002/pkg/debug"
	"github.com/rabitem/MailAssistantService-sub002/pkg/observability"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider/factory"
	"github.com/rabitem/MailAssistantService-sub002/pkg/retry"
	"github.com/rabitem/MailAssistantService-sub002/pkg/secrets"
)

// app holds everything a command needs, built from configuration.
type app struct {
	cfg      *config.Config
	store    secrets.Store
	registry *provider.Registry
	closers  []func(context.Context) error
}

// setup loads configuration, installs logging, tracing and the metrics
// endpoint, opens the secret store and builds the provider registry. When
// withRegistry is false only the store is opened.
func setup(ctx context.Context, configPath string, stderr io.Writer, withRegistry bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	debug.Init(debug.Options{
		Categories: cfg.Debug.Categories,
		Level:      cfg.Debug.Level,
		Format:     cfg.Debug.Format,
		Output:     stderr,
	})
	if cats := debug.Categories(); len(cats) > 0 {
		slog.Debug("debug categories enabled", "categories", cats)
	}

	a := &app{cfg: cfg}

	if cfg.Observability.Tracing.Enabled {
		if err := a.startTracing(cfg.Observability.Tracing, stderr); err != nil {
			a.close()
			return nil, fmt.Errorf("initializing tracing: %w", err)
		}
	}
	if cfg.Observability.Metrics.Enabled {
		if err := a.startMetrics(cfg.Observability.Metrics); err != nil {
			a.close()
			return nil, fmt.Errorf("starting metrics server: %w", err)
		}
	}

	store, err := factory.OpenSecrets(ctx, cfg.Secrets)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("opening secret store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })

	if !withRegistry {
		return a, nil
	}

	reg, err := factory.Build(cfg, factory.Options{
		Metrics: cfg.Observability.Metrics.Enabled,
		Tracing: cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("building providers: %w", err)
	}
	a.registry = reg
	a.closers = append(a.closers, func(context.Context) error { return reg.Close() })

	if err := reg.LoadCredentials(ctx, factory.Credentials(store, cfg)); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) startTracing(cfg config.TracingConfig, stderr io.Writer) error {
	out := stderr
	if cfg.Output != "" {
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { return f.Close() })
		out = f
	}
	shutdown, err := observability.InitTracer("mailassist", out, slog.Default())
	if err != nil {
		return err
	}
	a.closers = append(a.closers, shutdown)
	return nil
}

func (a *app) startMetrics(cfg config.MetricsConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "error", err)
		}
	}()
	slog.Info("metrics endpoint listening", "addr", ln.Addr().String(), "path", cfg.Path)
	a.closers = append(a.closers, srv.Shutdown)
	return nil
}

// retryPolicy converts the configured retry section.
func (a *app) retryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:      a.cfg.Retry.MaxRetries,
		InitialInterval: a.cfg.Retry.InitialInterval,
		MaxInterval:     a.cfg.Retry.MaxInterval,
		MaxRetryAfter:   a.cfg.Retry.MaxRetryAfter,
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			slog.Warn("cleanup failed", "error", err)
		}
	}
	a.closers = nil
}
