package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rabitem/MailAssistantService-sub002/pkg/debug"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MAILASSIST_"

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, MAILASSIST_CONFIG env, ./config.yaml,
//     $XDG_CONFIG_HOME/mailassist/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Derived defaults (sqlite database location)
//  6. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if cfg.Secrets.Type == SecretsSQLite && cfg.Secrets.Path == "" {
		if dir := userConfigDir(); dir != "" {
			cfg.Secrets.Path = filepath.Join(dir, "credentials.db")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// userConfigDir returns the mailassist directory under the user's config
// directory, or "" when the platform has none.
func userConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mailassist")
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. MAILASSIST_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. config.yaml in the user's mailassist config directory
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv(EnvPrefix + "CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{"config.yaml"}
	if dir := userConfigDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values; a
// providers list in the file replaces the default list.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// envName maps a provider ID to its override prefix, e.g. "my-proxy" to
// MAILASSIST_MY_PROXY_.
func envName(id string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return EnvPrefix + strings.ToUpper(r.Replace(id)) + "_"
}

// applyEnvOverrides maps environment variables to config fields.
func applyEnvOverrides(cfg *Config) error {
	// MAILASSIST_PROVIDERS: JSON array replacing the provider list.
	if v := os.Getenv(EnvPrefix + "PROVIDERS"); v != "" {
		providers, err := parseProvidersJSON(v)
		if err != nil {
			return err
		}
		cfg.Providers = providers
	}

	if v := os.Getenv(EnvPrefix + "PROVIDER"); v != "" {
		cfg.DefaultProvider = v
	}
	if v := os.Getenv(EnvPrefix + "SECRETS"); v != "" {
		cfg.Secrets.Type = v
	}
	if v := os.Getenv(EnvPrefix + "SECRETS_PATH"); v != "" {
		cfg.Secrets.Path = v
	}
	if v := os.Getenv(EnvPrefix + "POSTGRES_DSN"); v != "" {
		cfg.Secrets.Postgres.DSN = v
	}
	if v := os.Getenv(EnvPrefix + "MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_RETRIES: %w", EnvPrefix, err)
		}
		cfg.Retry.MaxRetries = n
	}
	if v := os.Getenv(EnvPrefix + "METRICS_ADDR"); v != "" {
		cfg.Observability.Metrics.Enabled = true
		cfg.Observability.Metrics.Addr = v
	}
	if v := os.Getenv(EnvPrefix + "TRACING"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sTRACING: %w", EnvPrefix, err)
		}
		cfg.Observability.Tracing.Enabled = enabled
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Debug.Level = v
	}
	if v := os.Getenv(EnvPrefix + "DEBUG"); v != "" {
		cfg.Debug.Categories = v
	}

	// Per-provider endpoint overrides, e.g. MAILASSIST_LOCAL_BASE_URL.
	for i := range cfg.Providers {
		prefix := envName(cfg.Providers[i].ID)
		if v := os.Getenv(prefix + "BASE_URL"); v != "" {
			cfg.Providers[i].BaseURL = v
		}
	}
	return nil
}

// parseProvidersJSON parses a JSON array of provider configurations.
func parseProvidersJSON(jsonStr string) ([]ProviderConfig, error) {
	var raw []struct {
		ID               string            `json:"id"`
		Kind             string            `json:"kind"`
		BaseURL          string            `json:"base_url"`
		Models           []string          `json:"models"`
		DisableStreaming bool              `json:"disable_streaming"`
		ModelMapping     map[string]string `json:"model_mapping"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("parsing providers JSON: %w", err)
	}
	out := make([]ProviderConfig, 0, len(raw))
	for _, p := range raw {
		out = append(out, ProviderConfig{
			ID:               p.ID,
			Kind:             p.Kind,
			BaseURL:          p.BaseURL,
			Models:           p.Models,
			DisableStreaming: p.DisableStreaming,
			ModelMapping:     p.ModelMapping,
		})
	}
	return out, nil
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. An explicit value wins over its file reference.
func resolveFileReferences(cfg *Config) error {
	if cfg.Secrets.Postgres.DSNFile != "" && cfg.Secrets.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Secrets.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("secrets.postgres.dsn_file: %w", err)
		}
		cfg.Secrets.Postgres.DSN = val
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.CredentialFile != "" && p.Credential == "" {
			val, err := readSecretFile(p.CredentialFile)
			if err != nil {
				return fmt.Errorf("providers[%d].credential_file: %w", i, err)
			}
			p.Credential = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
