package storage

import (
	"context"

	"bizmetrics/internal/domain"
)

// SnapshotStore provides access to snapshots storage.
type SnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
	Insert(ctx context.Context, s *domain.Snapshot) error

	// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, snapshotID string) (*domain.Snapshot, error)

	// GetLatest retrieves the most recently generated snapshot. Returns ErrNotFound if empty.
	GetLatest(ctx context.Context) (*domain.Snapshot, error)
}

// BusinessStore provides access to businesses storage.
type BusinessStore interface {
	// InsertBulk adds the businesses of one snapshot atomically.
	// Fails entire batch on duplicate (snapshot_id, business_id, name, industry, region).
	InsertBulk(ctx context.Context, snapshotID string, businesses []*domain.Business) error

	// GetBySnapshot retrieves all businesses of a snapshot, ordered by business_id ASC.
	GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.Business, error)
}

// DealStore provides access to deals storage.
type DealStore interface {
	// InsertBulk adds the deals of one snapshot atomically, preserving input order.
	InsertBulk(ctx context.Context, snapshotID string, deals []*domain.Deal) error

	// GetBySnapshot retrieves all deals of a snapshot in insertion order.
	GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.Deal, error)
}

// MonthlyMetricStore provides access to monthly_metrics storage.
type MonthlyMetricStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (snapshot_id, series, period, measure).
	InsertBulk(ctx context.Context, points []*domain.MetricPoint) error

	// GetBySeries retrieves the points of one series, ordered by period ASC, measure ASC.
	GetBySeries(ctx context.Context, snapshotID, series string) ([]*domain.MetricPoint, error)
}
