// Package secrets defines the credential store consumed by the provider
// registry. Credentials are opaque strings keyed by provider ID. Store
// implementations live in the subpackages (memory, envfile, sqlite,
// postgres); clients only ever hold short-lived in-memory copies.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get and Delete when no credential is stored
// for the provider ID.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes provider credentials.
type Store interface {
	// Get returns the credential for providerID or ErrNotFound.
	Get(ctx context.Context, providerID string) (string, error)

	// Set stores or replaces the credential for providerID.
	Set(ctx context.Context, providerID, credential string) error

	// Delete removes the credential for providerID or returns ErrNotFound.
	Delete(ctx context.Context, providerID string) error

	// Close releases store resources.
	Close() error
}

// ValidateKey checks that a provider ID is usable as a store key.
func ValidateKey(providerID string) error {
	if strings.TrimSpace(providerID) == "" {
		return errors.New("provider id must not be empty")
	}
	for _, r := range providerID {
		if !(r == '-' || r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return fmt.Errorf("provider id %q contains invalid character %q", providerID, r)
		}
	}
	return nil
}

// ValidateCredential checks that a credential is non-blank.
func ValidateCredential(credential string) error {
	if strings.TrimSpace(credential) == "" {
		return errors.New("credential must not be empty")
	}
	return nil
}
