package memory

import (
	"context"
	"sync"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Snapshot // keyed by snapshot_id
	latest string
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.Snapshot),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.SnapshotID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snap.SnapshotID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *snap
	s.data[snap.SnapshotID] = &cp

	// Later generation wins; equal times keep the first inserted.
	if cur, ok := s.data[s.latest]; !ok || cp.GeneratedAt.After(cur.GeneratedAt) {
		s.latest = snap.SnapshotID
	}
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(_ context.Context, snapshotID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[snapshotID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}

// GetLatest retrieves the most recently generated snapshot.
func (s *SnapshotStore) GetLatest(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()

	if latest == "" {
		return nil, storage.ErrNotFound
	}
	return s.GetByID(ctx, latest)
}
