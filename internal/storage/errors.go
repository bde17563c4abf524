package storage

import "errors"

// Snapshot storage errors. Every store is append-only: a published snapshot
// is never updated, only superseded by a newer one.
var (
	// ErrNotFound is returned for an unknown snapshot ID. The PostgreSQL
	// stores also return it for rows of a snapshot that was never inserted.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a snapshot ID, or a row key within one
	// snapshot, is already stored.
	ErrDuplicateKey = errors.New("duplicate key: snapshots are append-only")

	// ErrInvalidInput is returned for rows missing their identifying fields.
	ErrInvalidInput = errors.New("invalid input")
)
