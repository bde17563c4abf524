package migrations

import (
	"context"
	"fmt"

	"bizmetrics/internal/storage/postgres"
)

const createVersionsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version     TEXT PRIMARY KEY,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// RunPostgresMigrations applies the embedded SQL files not yet recorded in
// schema_migrations, in lexical order, and returns the versions it applied.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	migrations, err := readMigrations(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, createVersionsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []string
	for _, m := range migrations {
		var done bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version,
		).Scan(&done)
		if err != nil {
			return applied, fmt.Errorf("check migration %s: %w", m.Version, err)
		}
		if done {
			continue
		}

		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
			return applied, fmt.Errorf("record migration %s: %w", m.Version, err)
		}
		applied = append(applied, m.Version)
	}

	return applied, nil
}
