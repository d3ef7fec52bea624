package local

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider/openaicompat"
)

// Defaults for a local Ollama installation.
const (
	ID             = "local"
	DefaultBaseURL = "http://localhost:11434/v1"
)

// Local runtimes load models from disk; the first request after a model
// switch can take far longer than a hosted API.
const defaultTimeout = 5 * time.Minute

// Config holds configuration for the local runtime adapter.
type Config struct {
	// ID overrides the provider ID. Defaults to "local".
	ID string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is optional (vLLM --api-key, LM Studio auth).
	APIKey string

	// Models lists the models offered to the user. When empty, callers
	// should discover them with ListModels.
	Models []string

	// DisableStreaming makes Registry.Send use Complete, for runtimes with
	// a broken SSE implementation.
	DisableStreaming bool

	// KeepPenalties sends frequency_penalty and presence_penalty, which
	// some runtimes reject. Off by default.
	KeepPenalties bool

	Timeout         time.Duration
	ResourceTimeout time.Duration
	Transport       http.RoundTripper
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: defaultTimeout,
	}
}

// New creates the local runtime provider.
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
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	desc := provider.Descriptor{
		ID:                 cfg.ID,
		DisplayName:        "Local runtime",
		BaseURL:            base,
		AvailableModels:    cfg.Models,
		SupportsStreaming:  !cfg.DisableStreaming,
		CredentialOptional: true,
	}
	return openaicompat.NewProvider(desc, openaicompat.Config{
		Credential:      cfg.APIKey,
		Timeout:         cfg.Timeout,
		ResourceTimeout: cfg.ResourceTimeout,
		Transport:       cfg.Transport,
		Quirks: openaicompat.Quirks{
			IncludeStreamUsage: true,
			DropPenalties:      !cfg.KeepPenalties,
		},
	}), nil
}
