package migrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	chstore "bizmetrics/internal/storage/clickhouse"
)

// ErrUnterminatedString is returned for a migration whose quotes do not balance.
var ErrUnterminatedString = errors.New("unterminated string literal")

// RunClickhouseMigrations creates the DSN's database when missing and applies
// every embedded ClickHouse file. The schema uses IF NOT EXISTS throughout, so
// a rerun changes nothing. The returned connection targets the DSN database.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := chstore.Database(dsn)
	if err != nil {
		return nil, err
	}
	if err := createDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	files, err := readMigrations(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}
	// Split up front so a malformed file fails before anything is applied.
	plan := make([][]string, len(files))
	for i, m := range files {
		if plan[i], err = splitStatements(m.SQL); err != nil {
			return nil, fmt.Errorf("parse migration %s: %w", m.Version, err)
		}
	}

	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return nil, err
	}
	for i, m := range files {
		for _, stmt := range plan[i] {
			if err := conn.Exec(ctx, stmt); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", m.Version, err)
			}
		}
	}
	return conn, nil
}

func createDatabase(ctx context.Context, dsn, name string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return err
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	return nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// splitStatements breaks a file into single statements, since the native
// driver executes one statement per call. Semicolons inside single-quoted
// literals do not split, and "--" comments are dropped up to end of line.
func splitStatements(sql string) ([]string, error) {
	var (
		stmts   []string
		cur     strings.Builder
		quoted  bool
		comment bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case comment:
			if ch == '\n' {
				comment = false
				cur.WriteByte(ch)
			}
		case quoted:
			cur.WriteByte(ch)
			if ch == '\\' && i+1 < len(sql) {
				i++
				cur.WriteByte(sql[i])
			} else if ch == '\'' {
				quoted = false
			}
		case ch == '\'':
			quoted = true
			cur.WriteByte(ch)
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			comment = true
			i++
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if quoted {
		return nil, ErrUnterminatedString
	}
	flush()
	return stmts, nil
}
