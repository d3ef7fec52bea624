package provider

import "slices"

// Descriptor declares what a configured provider offers. It is configuration,
// not runtime state: the registry uses it to pick the decode path and to
// decide whether a missing credential is an error.
type Descriptor struct {
	// ID is the registry key and the secret store key for the credential.
	ID string

	// DisplayName is a human-readable label.
	DisplayName string

	// BaseURL is the endpoint root, without trailing slash.
	BaseURL string

	// AvailableModels lists the models offered to the user, in display order.
	AvailableModels []string

	// SupportsStreaming selects Stream over Complete in Registry.Send.
	SupportsStreaming bool

	// CredentialOptional is set for local runtimes that accept
	// unauthenticated requests.
	CredentialOptional bool
}

// HasModel reports whether model is listed in AvailableModels. An empty list
// accepts every model.
func (d Descriptor) HasModel(model string) bool {
	if len(d.AvailableModels) == 0 {
		return true
	}
	return slices.Contains(d.AvailableModels, model)
}

// DefaultModel returns the first available model, or "" when none is listed.
func (d Descriptor) DefaultModel() string {
	if len(d.AvailableModels) == 0 {
		return ""
	}
	return d.AvailableModels[0]
}
