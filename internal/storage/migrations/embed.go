// Package migrations embeds and applies the SQL schema of both storage backends.
package migrations

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Schema files, applied in file name order.
var (
	//go:embed postgres/*.sql
	PostgresFS embed.FS

	//go:embed clickhouse/*.sql
	ClickhouseFS embed.FS
)

// migration is one embedded SQL file.
type migration struct {
	Version string // file name without extension, e.g. 001_snapshots
	SQL     string
}

// readMigrations returns the non-empty .sql files directly under dir,
// ordered by file name.
func readMigrations(fsys fs.FS, dir string) ([]migration, error) {
	paths, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list %s migrations: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no migrations under %s", dir)
	}

	out := make([]migration, 0, len(paths))
	for _, p := range paths {
		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", p, err)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			continue
		}
		out = append(out, migration{
			Version: strings.TrimSuffix(path.Base(p), ".sql"),
			SQL:     string(body),
		})
	}
	return out, nil
}
