package openai

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider/openaicompat"
)

// Defaults for the hosted OpenAI API.
const (
	ID             = "openai"
	DefaultBaseURL = "https://api.openai.com/v1"
)

// DefaultModels are offered when the configuration lists none.
var DefaultModels = []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini", "gpt-4.1"}

// Config holds configuration for the OpenAI adapter.
type Config struct {
	// ID overrides the provider ID, for running several OpenAI-compatible
	// endpoints side by side. Defaults to "openai".
	ID string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is the initial credential. Usually loaded from the secret store.
	APIKey string

	// Models overrides DefaultModels.
	Models []string

	// Timeout and ResourceTimeout default to the openaicompat values.
	Timeout         time.Duration
	ResourceTimeout time.Duration

	// Transport is the HTTP transport (nil for the default).
	Transport http.RoundTripper

	// DisableStreaming makes Registry.Send use Complete.
	DisableStreaming bool

	// ModelMapping maps requested model names to upstream identifiers,
	// e.g. {"fast": "gpt-4o-mini"} or, behind LiteLLM,
	// {"gpt-4o": "openai/gpt-4o"}. Unmapped names pass through.
	ModelMapping map[string]string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ID:      ID,
		BaseURL: DefaultBaseURL,
		Timeout: openaicompat.DefaultTimeout,
	}
}

// New creates the OpenAI provider.
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
		DisplayName:       "OpenAI",
		BaseURL:           base,
		AvailableModels:   models,
		SupportsStreaming: !cfg.DisableStreaming,
	}
	return openaicompat.NewProvider(desc, openaicompat.Config{
		Credential:      cfg.APIKey,
		Timeout:         cfg.Timeout,
		ResourceTimeout: cfg.ResourceTimeout,
		Transport:       cfg.Transport,
		Quirks: openaicompat.Quirks{
			IncludeStreamUsage: true,
			ModelMapper:        openaicompat.MapModels(cfg.ModelMapping),
		},
	}), nil
}
