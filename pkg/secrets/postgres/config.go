package postgres

import "time"

// Config holds PostgreSQL connection settings for the credential store.
type Config struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// MaxConns is the maximum number of pooled connections (default: 4).
	MaxConns int32

	// MinConns is the number of idle connections kept open (default: 0).
	MinConns int32

	// MaxConnLifetime is how long a connection lives before it is replaced
	// (default: 30 minutes).
	MaxConnLifetime time.Duration

	// MigrateOnStart applies schema migrations when the store is opened.
	MigrateOnStart bool
}

func (c *Config) defaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 4
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = 30 * time.Minute
	}
}
