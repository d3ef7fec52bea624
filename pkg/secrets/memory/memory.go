// Package memory provides an in-memory secrets.Store for tests and for
// sessions where credentials must not outlive the process.
package memory

import (
	"context"
	"sync"

	"github.com/rabitem/MailAssistantService-sub002/pkg/secrets"
)

// Store is a mutex-guarded map of provider ID to credential.
type Store struct {
	mu      sync.RWMutex
	entries map[string]string
}

// Ensure Store implements secrets.Store at compile time.
var _ secrets.Store = (*Store)(nil)

// New creates an empty store, optionally seeded with initial credentials.
func New(initial map[string]string) *Store {
	entries := make(map[string]string, len(initial))
	for k, v := range initial {
		entries[k] = v
	}
	return &Store{entries: entries}
}

// Get returns the credential for providerID.
func (s *Store) Get(_ context.Context, providerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.entries[providerID]
	if !ok {
		return "", secrets.ErrNotFound
	}
	return v, nil
}

// Set stores or replaces the credential for providerID.
func (s *Store) Set(_ context.Context, providerID, credential string) error {
	if err := secrets.ValidateKey(providerID); err != nil {
		return err
	}
	if err := secrets.ValidateCredential(credential); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[providerID] = credential
	return nil
}

// Delete removes the credential for providerID.
func (s *Store) Delete(_ context.Context, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[providerID]; !ok {
		return secrets.ErrNotFound
	}
	delete(s.entries, providerID)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
