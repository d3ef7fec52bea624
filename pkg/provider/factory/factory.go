// Package factory turns configuration into a provider registry and a
// credential store.
package factory

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rabitem/MailAssistantService-sub002/pkg/config"
	"github.com/rabitem/MailAssistantService-sub002/pkg/debug"
	"github.com/rabitem/MailAssistantService-sub002/pkg/observability"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider/kimi"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider/local"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider/openai"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider/openaicompat"
	"github.com/rabitem/MailAssistantService-sub002/pkg/secrets"
	"github.com/rabitem/MailAssistantService-sub002/pkg/secrets/envfile"
	"github.com/rabitem/MailAssistantService-sub002/pkg/secrets/memory"
	"github.com/rabitem/MailAssistantService-sub002/pkg/secrets/postgres"
	"github.com/rabitem/MailAssistantService-sub002/pkg/secrets/sqlite"
)

// Options tunes how providers talk to the network.
type Options struct {
	// Transport is the base round tripper (nil for http.DefaultTransport).
	Transport http.RoundTripper

	// Metrics wraps the transport with Prometheus instrumentation.
	Metrics bool

	// Tracing wraps the transport with OpenTelemetry spans.
	Tracing bool
}

func (o Options) transport() http.RoundTripper {
	rt := o.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	if o.Metrics {
		rt = observability.MetricsTransport(rt)
	}
	if o.Tracing {
		rt = observability.TracingTransport(rt)
	}
	return rt
}

// Build creates one provider per configured entry and registers them in
// configuration order. Inline credentials from the config seed the
// providers; the secret store overrides them in LoadCredentials.
func Build(cfg *config.Config, opts Options) (*provider.Registry, error) {
	reg := provider.NewRegistry()
	rt := opts.transport()

	for i, pc := range cfg.Providers {
		p, err := New(pc, rt)
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("providers[%d]: %w", i, err)
		}
		if err := reg.Register(p); err != nil {
			reg.Close()
			return nil, fmt.Errorf("providers[%d]: %w", i, err)
		}
		debug.Log("providers", "registered provider", "id", pc.ID, "kind", pc.Kind,
			"base_url", p.Descriptor().BaseURL)
	}
	return reg, nil
}

// New creates the provider for a single config entry.
func New(pc config.ProviderConfig, rt http.RoundTripper) (*openaicompat.Provider, error) {
	switch pc.Kind {
	case config.KindOpenAI:
		return openai.New(openai.Config{
			ID:               pc.ID,
			BaseURL:          pc.BaseURL,
			APIKey:           pc.Credential,
			Models:           pc.Models,
			Timeout:          pc.Timeout,
			ResourceTimeout:  pc.ResourceTimeout,
			Transport:        rt,
			DisableStreaming: pc.DisableStreaming,
			ModelMapping:     pc.ModelMapping,
		})
	case config.KindKimi:
		return kimi.New(kimi.Config{
			ID:               pc.ID,
			BaseURL:          pc.BaseURL,
			APIKey:           pc.Credential,
			Models:           pc.Models,
			DisableStreaming: pc.DisableStreaming,
			Timeout:          pc.Timeout,
			ResourceTimeout:  pc.ResourceTimeout,
			Transport:        rt,
		})
	case config.KindLocal:
		return local.New(local.Config{
			ID:               pc.ID,
			BaseURL:          pc.BaseURL,
			APIKey:           pc.Credential,
			Models:           pc.Models,
			DisableStreaming: pc.DisableStreaming,
			KeepPenalties:    pc.KeepPenalties,
			Timeout:          pc.Timeout,
			ResourceTimeout:  pc.ResourceTimeout,
			Transport:        rt,
		})
	default:
		return nil, fmt.Errorf("unknown provider kind %q", pc.Kind)
	}
}

// OpenSecrets opens the credential store selected by cfg.
func OpenSecrets(ctx context.Context, cfg config.SecretsConfig) (secrets.Store, error) {
	switch cfg.Type {
	case config.SecretsMemory:
		return memory.New(nil), nil
	case config.SecretsSQLite:
		return sqlite.New(cfg.Path)
	case config.SecretsEnvFile:
		return envfile.New(cfg.Path), nil
	case config.SecretsPostgres:
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
	default:
		return nil, fmt.Errorf("unknown secrets type %q", cfg.Type)
	}
}

// Credentials returns a source that reads store first and falls back to the
// inline credentials of cfg.
func Credentials(store secrets.Store, cfg *config.Config) provider.CredentialSource {
	inline := make(map[string]string)
	for _, pc := range cfg.Providers {
		if pc.Credential != "" {
			inline[pc.ID] = pc.Credential
		}
	}
	return &layered{primary: store, fallback: memory.New(inline)}
}

type layered struct {
	primary  provider.CredentialSource
	fallback provider.CredentialSource
}

func (l *layered) Get(ctx context.Context, providerID string) (string, error) {
	v, err := l.primary.Get(ctx, providerID)
	if errors.Is(err, secrets.ErrNotFound) {
		return l.fallback.Get(ctx, providerID)
	}
	return v, err
}
