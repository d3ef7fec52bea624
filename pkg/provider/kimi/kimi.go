package kimi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider/openaicompat"
)

// Defaults for the Moonshot platform.
const (
	ID             = "kimi"
	DefaultBaseURL = "https://api.moonshot.cn/v1"
)

// DefaultModels are offered when the configuration lists none.
var DefaultModels = []string{"moonshot-v1-8k", "moonshot-v1-32k", "moonshot-v1-128k", "kimi-k2-0711-preview"}

// Config holds configuration for the Kimi adapter.
type Config struct {
	// ID overrides the provider ID. Defaults to "kimi".
	ID string

	// BaseURL defaults to DefaultBaseURL. Use https://api.moonshot.ai/v1
	// for the international platform.
	BaseURL string

	// APIKey is the initial credential.
	APIKey string

	// Models overrides DefaultModels.
	Models []string

	DisableStreaming bool

	Timeout         time.Duration
	ResourceTimeout time.Duration
	Transport       http.RoundTripper
}

// New creates the Kimi provider. Moonshot reports usage inside the final
// choice rather than through stream_options, so no stream quirk is set.
func New(cfg Config) (*openaicompat.Provider, error) {
	if cfg.ID == "" {
		cfg.ID = ID
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := openaicompat.NormalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.ID, err)
	}
	models := cfg.Models
	if len(models) == 0 {
		models = DefaultModels
	}

	desc := provider.Descriptor{
		ID:                cfg.ID,
		DisplayName:       "Kimi (Moonshot AI)",
		BaseURL:           base,
		AvailableModels:   models,
		SupportsStreaming: !cfg.DisableStreaming,
	}
	return openaicompat.NewProvider(desc, openaicompat.Config{
		Credential:      cfg.APIKey,
		Timeout:         cfg.Timeout,
		ResourceTimeout: cfg.ResourceTimeout,
		Transport:       cfg.Transport,
	}), nil
}
