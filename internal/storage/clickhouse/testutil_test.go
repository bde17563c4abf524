package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const clickhouseImage = "clickhouse/clickhouse-server:24.8-alpine"

// setupTestDB starts a disposable ClickHouse with the schema applied.
// The container is terminated when the test ends.
func setupTestDB(t *testing.T) *Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        clickhouseImage,
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"CLICKHOUSE_DB":                        "bizmetrics",
				"CLICKHOUSE_USER":                      "bizmetrics",
				"CLICKHOUSE_PASSWORD":                  "bizmetrics",
				"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1",
			},
			WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start clickhouse container")
	t.Cleanup(func() {
		if err := ctr.Terminate(ctx); err != nil {
			t.Logf("terminate clickhouse container: %v", err)
		}
	})

	endpoint, err := ctr.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://bizmetrics:bizmetrics@%s/bizmetrics", endpoint))
	require.NoError(t, err, "connect")
	t.Cleanup(func() { _ = conn.Close() })

	// The migrations package imports this one, so the schema is read from
	// disk. The files hold no semicolons inside literals.
	for _, path := range schemaFiles(t) {
		sql, err := os.ReadFile(path)
		require.NoError(t, err)
		for _, stmt := range strings.Split(string(sql), ";") {
			if !hasCode(stmt) {
				continue
			}
			require.NoError(t, conn.Exec(ctx, stmt), "apply %s", filepath.Base(path))
		}
	}
	return conn
}

// hasCode reports whether stmt holds anything besides blank and comment lines.
func hasCode(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return true
		}
	}
	return false
}

// schemaFiles lists the ClickHouse migrations in apply order.
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
	files, err := filepath.Glob(filepath.Join(dir, "internal", "storage", "migrations", "clickhouse", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	return files
}
