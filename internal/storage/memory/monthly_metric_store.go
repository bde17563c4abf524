package memory

import (
	"context"
	"sort"
	"sync"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/storage"
)

type seriesKey struct{ snapshotID, series string }

type cellKey struct{ period, measure string }

// MonthlyMetricStore keeps monthly points in memory, grouped by series.
type MonthlyMetricStore struct {
	mu     sync.RWMutex
	series map[seriesKey]map[cellKey]domain.MetricPoint
}

// NewMonthlyMetricStore creates an empty store.
func NewMonthlyMetricStore() *MonthlyMetricStore {
	return &MonthlyMetricStore{series: make(map[seriesKey]map[cellKey]domain.MetricPoint)}
}

var _ storage.MonthlyMetricStore = (*MonthlyMetricStore)(nil)

// InsertBulk stores copies of the points. Nothing is stored when any point is
// invalid, repeats within the batch, or is already present.
func (s *MonthlyMetricStore) InsertBulk(_ context.Context, points []*domain.MetricPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[seriesKey]map[cellKey]struct{})
	for _, p := range points {
		if p == nil || p.SnapshotID == "" || p.Series == "" {
			return storage.ErrInvalidInput
		}
		sk, ck := seriesKey{p.SnapshotID, p.Series}, cellKey{p.Period, p.Measure}
		if _, stored := s.series[sk][ck]; stored {
			return storage.ErrDuplicateKey
		}
		if pending[sk] == nil {
			pending[sk] = make(map[cellKey]struct{})
		}
		if _, dup := pending[sk][ck]; dup {
			return storage.ErrDuplicateKey
		}
		pending[sk][ck] = struct{}{}
	}

	for _, p := range points {
		sk := seriesKey{p.SnapshotID, p.Series}
		cells := s.series[sk]
		if cells == nil {
			cells = make(map[cellKey]domain.MetricPoint)
			s.series[sk] = cells
		}
		cells[cellKey{p.Period, p.Measure}] = *p
	}
	return nil
}

// GetBySeries returns copies of one series' points ordered by period, then measure.
func (s *MonthlyMetricStore) GetBySeries(_ context.Context, snapshotID, series string) ([]*domain.MetricPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cells := s.series[seriesKey{snapshotID, series}]
	if len(cells) == 0 {
		return nil, nil
	}
	out := make([]*domain.MetricPoint, 0, len(cells))
	for _, p := range cells {
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period == out[j].Period {
			return out[i].Measure < out[j].Measure
		}
		return out[i].Period < out[j].Period
	})
	return out, nil
}
