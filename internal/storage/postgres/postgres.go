package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bizmetrics/internal/storage"
)

// Pool defaults. Publishing runs a single writer.
const (
	defaultMaxConns    = 4
	defaultPingTimeout = 5 * time.Second
)

// Pool is the shared connection pool of the snapshot stores.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to dsn and pings the server. A pool_max_conns parameter
// in the DSN overrides the default pool size.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if !strings.Contains(dsn, "pool_max_conns") {
		cfg.MaxConns = defaultMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// inTx runs fn in a transaction and commits when it returns nil.
func (p *Pool) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := p.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation     = "23505" // unique_violation
	pgErrForeignKeyViolation = "23503" // foreign_key_violation
)

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	return hasCode(err, pgErrUniqueViolation)
}

// isMissingSnapshotError checks if a row references an unknown snapshot.
func isMissingSnapshotError(err error) bool {
	return hasCode(err, pgErrForeignKeyViolation)
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// insertError maps constraint violations of a bulk insert to storage errors.
func insertError(op string, err error) error {
	switch {
	case isDuplicateKeyError(err):
		return storage.ErrDuplicateKey
	case isMissingSnapshotError(err):
		return fmt.Errorf("%s: snapshot %w", op, storage.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// nullDate maps the zero time to SQL NULL.
func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// dateOrZero maps SQL NULL back to the zero time.
func dateOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
