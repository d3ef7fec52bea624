package openaicompat

import (
	"slices"

	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
)

// Provider pairs a Client with its descriptor and implements
// provider.Provider. Adapters construct one with their defaults.
type Provider struct {
	*Client
	desc provider.Descriptor
}

// Ensure Provider implements provider.Provider at compile time.
var _ provider.Provider = (*Provider)(nil)

// NewProvider creates a Provider. The client is named after the descriptor ID
// and inherits its credential-optional flag.
func NewProvider(desc provider.Descriptor, cfg Config) *Provider {
	cfg.Name = desc.ID
	cfg.CredentialOptional = desc.CredentialOptional
	if cfg.BaseURL == "" {
		cfg.BaseURL = desc.BaseURL
	}
	desc.AvailableModels = slices.Clone(desc.AvailableModels)
	return &Provider{Client: NewClient(cfg), desc: desc}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.desc.ID
}

// Descriptor returns the description of this provider. BaseURL follows
// SetBaseURL.
func (p *Provider) Descriptor() provider.Descriptor {
	d := p.desc
	d.BaseURL = p.Client.BaseURL()
	d.AvailableModels = slices.Clone(p.desc.AvailableModels)
	return d
}

// MapModels returns a ModelMapper for a static alias table. Unknown names
// pass through unchanged.
func MapModels(mapping map[string]string) func(string) string {
	if len(mapping) == 0 {
		return nil
	}
	m := make(map[string]string, len(mapping))
	for k, v := range mapping {
		m[k] = v
	}
	return func(model string) string {
		if mapped, ok := m[model]; ok {
			return mapped
		}
		return model
	}
}
