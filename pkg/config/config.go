// Package config provides configuration for the mail assistant's provider
// layer.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (MAILASSIST_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Provider kinds understood by the factory.
const (
	KindOpenAI = "openai"
	KindKimi   = "kimi"
	KindLocal  = "local"
)

// Secret store types.
const (
	SecretsMemory   = "memory"
	SecretsSQLite   = "sqlite"
	SecretsPostgres = "postgres"
	SecretsEnvFile  = "envfile"
)

// Config holds all configuration for the provider layer.
type Config struct {
	DefaultProvider string              `yaml:"default_provider"`
	Providers       []ProviderConfig    `yaml:"providers"`
	Secrets         SecretsConfig       `yaml:"secrets"`
	Retry           RetryConfig         `yaml:"retry"`
	Observability   ObservabilityConfig `yaml:"observability"`
	Debug           DebugConfig         `yaml:"debug"`
}

// ProviderConfig describes one configured backend. Several entries may share
// a kind, e.g. an OpenAI-compatible proxy next to OpenAI itself.
type ProviderConfig struct {
	ID      string   `yaml:"id"`
	Kind    string   `yaml:"kind"`     // "openai", "kimi" or "local"
	BaseURL string   `yaml:"base_url"` // default: the kind's endpoint
	Models  []string `yaml:"models"`   // default: the kind's model list

	DisableStreaming bool `yaml:"disable_streaming"`
	KeepPenalties    bool `yaml:"keep_penalties"` // local only

	Timeout         time.Duration `yaml:"timeout"`
	ResourceTimeout time.Duration `yaml:"resource_timeout"`

	// ModelMapping rewrites model names before they are sent (openai only).
	ModelMapping map[string]string `yaml:"model_mapping"`

	// Credential seeds the provider when the secret store has none.
	Credential     string `yaml:"credential"`
	CredentialFile string `yaml:"credential_file"` // _file variant for credential
}

// SecretsConfig selects the credential store.
type SecretsConfig struct {
	Type     string         `yaml:"type"` // default: "sqlite"
	Path     string         `yaml:"path"` // sqlite database or env file
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 4
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// RetryConfig controls caller-side retries of retryable failures.
type RetryConfig struct {
	MaxRetries      int           `yaml:"max_retries"`      // default: 2
	InitialInterval time.Duration `yaml:"initial_interval"` // default: 500ms
	MaxInterval     time.Duration `yaml:"max_interval"`     // default: 5s
	MaxRetryAfter   time.Duration `yaml:"max_retry_after"`  // default: 30s
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: false
	Addr    string `yaml:"addr"`    // default: "127.0.0.1:9464"
	Path    string `yaml:"path"`    // default: "/metrics"
}

// TracingConfig enables the stdout span exporter.
type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"` // file path; default: stderr
}

// DebugConfig configures pkg/debug.
type DebugConfig struct {
	Categories string `yaml:"categories"`
	Level      string `yaml:"level"`  // default: "INFO"
	Format     string `yaml:"format"` // "text" or "json"
}

// Defaults returns a Config with all default values filled in. The default
// provider list holds one entry per built-in kind.
func Defaults() Config {
	return Config{
		DefaultProvider: KindOpenAI,
		Providers: []ProviderConfig{
			{ID: KindOpenAI, Kind: KindOpenAI},
			{ID: KindKimi, Kind: KindKimi},
			{ID: KindLocal, Kind: KindLocal},
		},
		Secrets: SecretsConfig{
			Type: SecretsSQLite,
			Postgres: PostgresConfig{
				MaxConns:       4,
				MigrateOnStart: true,
			},
		},
		Retry: RetryConfig{
			MaxRetries:      2,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			MaxRetryAfter:   30 * time.Second,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Addr: "127.0.0.1:9464",
				Path: "/metrics",
			},
		},
		Debug: DebugConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// Provider returns the entry with the given ID.
func (c *Config) Provider(id string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderConfig{}, false
}
