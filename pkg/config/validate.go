package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Every failure is reported with its field path.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Providers) == 0 {
		errs = append(errs, errors.New("providers must contain at least one entry"))
	}

	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("providers[%d].id is required", i))
		} else if seen[p.ID] {
			errs = append(errs, fmt.Errorf("providers[%d].id %q is duplicated", i, p.ID))
		}
		seen[p.ID] = true

		switch p.Kind {
		case KindOpenAI, KindKimi, KindLocal:
		default:
			errs = append(errs, fmt.Errorf("providers[%d].kind must be \"openai\", \"kimi\", or \"local\", got %q", i, p.Kind))
		}

		if p.Timeout < 0 {
			errs = append(errs, fmt.Errorf("providers[%d].timeout must not be negative", i))
		}
		if p.ResourceTimeout < 0 {
			errs = append(errs, fmt.Errorf("providers[%d].resource_timeout must not be negative", i))
		}
		if len(p.ModelMapping) > 0 && p.Kind != KindOpenAI {
			errs = append(errs, fmt.Errorf("providers[%d].model_mapping is only supported for kind \"openai\"", i))
		}
	}

	if c.DefaultProvider != "" && !seen[c.DefaultProvider] {
		errs = append(errs, fmt.Errorf("default_provider %q is not a configured provider", c.DefaultProvider))
	}

	switch c.Secrets.Type {
	case SecretsMemory, SecretsEnvFile:
	case SecretsSQLite:
		if c.Secrets.Path == "" {
			errs = append(errs, errors.New("secrets.path is required when secrets.type is \"sqlite\""))
		}
	case SecretsPostgres:
		if c.Secrets.Postgres.DSN == "" && c.Secrets.Postgres.DSNFile == "" {
			errs = append(errs, errors.New("secrets.postgres.dsn or secrets.postgres.dsn_file is required when secrets.type is \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("secrets.type must be \"memory\", \"sqlite\", \"postgres\", or \"envfile\", got %q", c.Secrets.Type))
	}

	if c.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("retry.max_retries must be >= 0, got %d", c.Retry.MaxRetries))
	}

	if c.Observability.Metrics.Enabled && c.Observability.Metrics.Addr == "" {
		errs = append(errs, errors.New("observability.metrics.addr is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}
