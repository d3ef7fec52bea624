// Package sqlite provides a secrets.Store backed by a local SQLite file,
// using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rabitem/MailAssistantService-sub002/pkg/secrets"
)

// Store keeps credentials in a single SQLite table.
type Store struct {
	db *sql.DB
}

var _ secrets.Store = (*Store)(nil)

// New opens (or creates) the database at path and ensures the schema exists.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS credentials (
		provider_id TEXT PRIMARY KEY,
		credential  TEXT NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`)
	return err
}

// Get returns the credential for providerID.
func (s *Store) Get(ctx context.Context, providerID string) (string, error) {
	var credential string
	err := s.db.QueryRowContext(ctx,
		`SELECT credential FROM credentials WHERE provider_id = ?`, providerID,
	).Scan(&credential)
	if errors.Is(err, sql.ErrNoRows) {
		return "", secrets.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying credential: %w", err)
	}
	return credential, nil
}

// Set stores or replaces the credential for providerID.
func (s *Store) Set(ctx context.Context, providerID, credential string) error {
	if err := secrets.ValidateKey(providerID); err != nil {
		return err
	}
	if err := secrets.ValidateCredential(credential); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (provider_id, credential, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(provider_id) DO UPDATE SET credential = excluded.credential, updated_at = excluded.updated_at`,
		providerID, credential, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}
	return nil
}

// Delete removes the credential for providerID.
func (s *Store) Delete(ctx context.Context, providerID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE provider_id = ?`, providerID)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	if n == 0 {
		return secrets.ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
