package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `snapshot_id, as_of, generated_at, businesses, deals`

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.SnapshotID == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO snapshots (` + snapshotColumns + `) VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		snap.SnapshotID, snap.AsOf, snap.GeneratedAt, snap.Businesses, snap.Deals,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(ctx context.Context, snapshotID string) (*domain.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE snapshot_id = $1`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, snapshotID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by id: %w", err)
	}
	return snap, nil
}

// GetLatest retrieves the most recently generated snapshot.
func (s *SnapshotStore) GetLatest(ctx context.Context) (*domain.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		ORDER BY generated_at DESC, created_at ASC
		LIMIT 1
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

func scanSnapshot(row pgx.Row) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := row.Scan(&snap.SnapshotID, &snap.AsOf, &snap.GeneratedAt, &snap.Businesses, &snap.Deals); err != nil {
		return nil, err
	}
	snap.AsOf = snap.AsOf.UTC()
	snap.GeneratedAt = snap.GeneratedAt.UTC()
	return &snap, nil
}
