// Package postgres provides a secrets.Store backed by PostgreSQL, for
// deployments where several MailAssist instances share one credential set.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rabitem/MailAssistantService-sub002/pkg/secrets"
)

// Store is a PostgreSQL-backed credential store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements secrets.Store at compile time.
var _ secrets.Store = (*Store)(nil)

// New connects to the database described by cfg. If MigrateOnStart is set,
// pending migrations are applied before returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Get returns the credential for providerID.
func (s *Store) Get(ctx context.Context, providerID string) (string, error) {
	var credential string
	err := s.pool.QueryRow(ctx,
		`SELECT credential FROM provider_credentials WHERE provider_id = $1`,
		providerID,
	).Scan(&credential)
	if errors.Is(err, pgx.ErrNoRows) {
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

	_, err := s.pool.Exec(ctx, `
		INSERT INTO provider_credentials (provider_id, credential, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (provider_id)
		DO UPDATE SET credential = EXCLUDED.credential, updated_at = now()
	`, providerID, credential)
	if err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}
	return nil
}

// Delete removes the credential for providerID.
func (s *Store) Delete(ctx context.Context, providerID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM provider_credentials WHERE provider_id = $1`,
		providerID,
	)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return secrets.ErrNotFound
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
