package postgres

import (
	"context"
	"fmt"
	"log/slog"
)

type migration struct {
	version int
	name    string
	sql     string
}

// migrations are applied in order; a version is never edited once released.
var migrations = []migration{
	{
		version: 1,
		name:    "create_schema_migrations",
		sql: `CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
	{
		version: 2,
		name:    "create_provider_credentials",
		sql: `CREATE TABLE IF NOT EXISTS provider_credentials (
			provider_id TEXT PRIMARY KEY,
			credential  TEXT NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
}

// migrate applies pending migrations, tracking applied versions in the
// schema_migrations table.
func (s *Store) migrate(ctx context.Context) error {
	for _, m := range migrations {
		var exists bool
		err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			m.version,
		).Scan(&exists)
		// The first migration creates schema_migrations, so the lookup fails
		// on an empty database.
		if err != nil {
			exists = false
		}
		if exists {
			continue
		}

		slog.Info("applying migration", "name", m.name, "version", m.version)

		if _, err := s.pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("applying migration %s: %w", m.name, err)
		}
		if _, err := s.pool.Exec(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING",
			m.version,
		); err != nil {
			return fmt.Errorf("recording migration %s: %w", m.name, err)
		}
	}
	return nil
}
