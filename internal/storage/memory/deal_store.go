package memory

import (
	"context"
	"sync"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/storage"
)

// DealStore is an in-memory implementation of storage.DealStore.
type DealStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.Deal // keyed by snapshot_id, insertion order
}

// NewDealStore creates a new in-memory deal store.
func NewDealStore() *DealStore {
	return &DealStore{
		data: make(map[string][]*domain.Deal),
	}
}

// Compile-time interface check.
var _ storage.DealStore = (*DealStore)(nil)

// InsertBulk adds the deals of one snapshot atomically, preserving input order.
func (s *DealStore) InsertBulk(_ context.Context, snapshotID string, deals []*domain.Deal) error {
	if snapshotID == "" {
		return storage.ErrInvalidInput
	}
	for _, d := range deals {
		if d == nil || d.BusinessID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range deals {
		cp := *d
		s.data[snapshotID] = append(s.data[snapshotID], &cp)
	}
	return nil
}

// GetBySnapshot retrieves all deals of a snapshot in insertion order.
func (s *DealStore) GetBySnapshot(_ context.Context, snapshotID string) ([]*domain.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.data[snapshotID]
	result := make([]*domain.Deal, 0, len(rows))
	for _, d := range rows {
		cp := *d
		result = append(result, &cp)
	}
	return result, nil
}
