// Package envfile provides a secrets.Store backed by a dotenv file. Each
// provider's credential lives under MAILASSIST_<ID>_API_KEY, with the ID
// upper-cased and '-' and '.' mapped to '_'. A variable of the same name in
// the process environment takes precedence over the file.
package envfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/rabitem/MailAssistantService-sub002/pkg/secrets"
)

// Store reads and writes credentials in a dotenv file.
type Store struct {
	mu   sync.Mutex
	path string
}

var _ secrets.Store = (*Store)(nil)

// New returns a store for the file at path. The file need not exist yet; it
// is created on the first Set.
func New(path string) *Store {
	return &Store{path: path}
}

// VarName returns the environment variable that holds providerID's credential.
func VarName(providerID string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return "MAILASSIST_" + strings.ToUpper(r.Replace(providerID)) + "_API_KEY"
}

// Get returns the credential for providerID.
func (s *Store) Get(_ context.Context, providerID string) (string, error) {
	name := VarName(providerID)
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read()
	if err != nil {
		return "", err
	}
	v, ok := env[name]
	if !ok || v == "" {
		return "", secrets.ErrNotFound
	}
	return v, nil
}

// Set writes the credential for providerID to the file.
func (s *Store) Set(_ context.Context, providerID, credential string) error {
	if err := secrets.ValidateKey(providerID); err != nil {
		return err
	}
	if err := secrets.ValidateCredential(credential); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read()
	if err != nil {
		return err
	}
	env[VarName(providerID)] = credential
	return s.write(env)
}

// Delete removes providerID's credential from the file. Variables set in the
// process environment are left alone.
func (s *Store) Delete(_ context.Context, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read()
	if err != nil {
		return err
	}
	name := VarName(providerID)
	if _, ok := env[name]; !ok {
		return secrets.ErrNotFound
	}
	delete(env, name)
	return s.write(env)
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) read() (map[string]string, error) {
	env, err := godotenv.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return env, nil
}

func (s *Store) write(env map[string]string) error {
	if err := godotenv.Write(env, s.path); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	// Credentials are owner-only.
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("restricting permissions on %s: %w", s.path, err)
	}
	return nil
}
