package memory

import (
	"context"
	"sort"
	"sync"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/storage"
)

type businessKey struct {
	id, name, industry string
	region             domain.Region
}

// BusinessStore is an in-memory implementation of storage.BusinessStore.
type BusinessStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.Business // keyed by snapshot_id
}

// NewBusinessStore creates a new in-memory business store.
func NewBusinessStore() *BusinessStore {
	return &BusinessStore{
		data: make(map[string][]*domain.Business),
	}
}

// Compile-time interface check.
var _ storage.BusinessStore = (*BusinessStore)(nil)

// InsertBulk adds the businesses of one snapshot atomically. Fails entire batch on any duplicate.
func (s *BusinessStore) InsertBulk(_ context.Context, snapshotID string, businesses []*domain.Business) error {
	if snapshotID == "" {
		return storage.ErrInvalidInput
	}
	if len(businesses) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[snapshotID]
	seen := make(map[businessKey]struct{}, len(existing)+len(businesses))
	for _, b := range existing {
		seen[keyOf(b)] = struct{}{}
	}

	// First pass: check for duplicates (existing + intra-batch)
	for _, b := range businesses {
		if b == nil || b.BusinessID == "" {
			return storage.ErrInvalidInput
		}
		k := keyOf(b)
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Second pass: insert all
	for _, b := range businesses {
		existing = append(existing, copyBusiness(b))
	}
	s.data[snapshotID] = existing
	return nil
}

// GetBySnapshot retrieves all businesses of a snapshot, ordered by business_id ASC.
func (s *BusinessStore) GetBySnapshot(_ context.Context, snapshotID string) ([]*domain.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.data[snapshotID]
	result := make([]*domain.Business, 0, len(rows))
	for _, b := range rows {
		result = append(result, copyBusiness(b))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].BusinessID < result[j].BusinessID
	})
	return result, nil
}

func keyOf(b *domain.Business) businessKey {
	return businessKey{id: b.BusinessID, name: b.Name, industry: b.Industry, region: b.Region}
}

func copyBusiness(b *domain.Business) *domain.Business {
	cp := *b
	if b.AnnualizedValue != nil {
		cp.AnnualizedValue = domain.Float(*b.AnnualizedValue)
	}
	return &cp
}
