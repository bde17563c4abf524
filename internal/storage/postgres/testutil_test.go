package postgres

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"bizmetrics/internal/domain"
)

// setupTestDB starts a disposable PostgreSQL with the schema applied.
// The container is terminated when the test ends.
func setupTestDB(t *testing.T) *Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("bizmetrics"),
		tcpostgres.WithUsername("bizmetrics"),
		tcpostgres.WithPassword("bizmetrics"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := ctr.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "connect")
	t.Cleanup(pool.Close)

	// The migrations package imports this one, so the schema is read from disk.
	for _, path := range schemaFiles(t) {
		sql, err := os.ReadFile(path)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, "apply %s", filepath.Base(path))
	}
	return pool
}

// schemaFiles lists the PostgreSQL migrations in apply order.
func schemaFiles(t *testing.T) []string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for ; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		require.NotEqual(t, dir, filepath.Dir(dir), "go.mod not found above test directory")
	}
	files, err := filepath.Glob(filepath.Join(dir, "internal", "storage", "migrations", "postgres", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	return files
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// insertSnapshot stores the parent row that business and deal rows reference.
func insertSnapshot(t *testing.T, pool *Pool, id string) {
	t.Helper()
	require.NoError(t, NewSnapshotStore(pool).Insert(context.Background(), &domain.Snapshot{
		SnapshotID:  id,
		AsOf:        day(2023, 3, 1),
		GeneratedAt: time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC),
	}))
}
