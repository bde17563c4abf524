package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/observability"
	"bizmetrics/internal/storage"
)

// ErrIncompleteSnapshot is returned when a stored snapshot lacks rows its
// content implies, e.g. after a publish that failed part way.
var ErrIncompleteSnapshot = errors.New("incomplete snapshot")

// Stores groups the storage backends a snapshot is published to.
// Monthly may be nil to skip the time-series tables.
type Stores struct {
	Snapshots  storage.SnapshotStore
	Businesses storage.BusinessStore
	Deals      storage.DealStore
	Monthly    storage.MonthlyMetricStore
}

// Publisher stores pipeline results as append-only snapshots.
type Publisher struct {
	backend string
	stores  Stores
	logger  *zap.Logger
	metrics *observability.Metrics
	newID   func() string
}

// NewPublisher creates a publisher. backend labels logs and metrics.
func NewPublisher(backend string, stores Stores, logger *zap.Logger, m *observability.Metrics) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		backend: backend,
		stores:  stores,
		logger:  logger,
		metrics: m,
		newID:   uuid.NewString,
	}
}

// WithIDGenerator sets a custom snapshot ID generator for deterministic output.
func (p *Publisher) WithIDGenerator(newID func() string) *Publisher {
	p.newID = newID
	return p
}

// Publish stores r under a new snapshot ID and returns the snapshot.
// The snapshot row is written first so relational stores can reference it.
func (p *Publisher) Publish(ctx context.Context, r *Result) (*domain.Snapshot, error) {
	if p.stores.Snapshots == nil || p.stores.Businesses == nil || p.stores.Deals == nil {
		return nil, fmt.Errorf("publish: %w: relational stores are required", storage.ErrInvalidInput)
	}

	snap := r.Snapshot
	snap.SnapshotID = p.newID()

	if err := p.timed(ctx, "insert_snapshot", func(ctx context.Context) error {
		return p.stores.Snapshots.Insert(ctx, &snap)
	}); err != nil {
		return nil, fmt.Errorf("publish snapshot: %w", err)
	}

	if err := p.timed(ctx, "insert_businesses", func(ctx context.Context) error {
		return p.stores.Businesses.InsertBulk(ctx, snap.SnapshotID, r.Businesses)
	}); err != nil {
		return nil, fmt.Errorf("publish businesses: %w", err)
	}

	if err := p.timed(ctx, "insert_deals", func(ctx context.Context) error {
		return p.stores.Deals.InsertBulk(ctx, snap.SnapshotID, r.Deals)
	}); err != nil {
		return nil, fmt.Errorf("publish deals: %w", err)
	}

	points := 0
	if p.stores.Monthly != nil {
		for _, t := range r.Tables() {
			pts := t.Points(snap.SnapshotID)
			if err := p.timed(ctx, "insert_monthly_metrics", func(ctx context.Context) error {
				return p.stores.Monthly.InsertBulk(ctx, pts)
			}); err != nil {
				return nil, fmt.Errorf("publish %s metrics: %w", t.Series, err)
			}
			points += len(pts)
		}
	}

	p.metrics.RecordSnapshot(p.backend)
	p.logger.Info("published snapshot",
		zap.String("backend", p.backend),
		zap.String("snapshot_id", snap.SnapshotID),
		zap.Int("businesses", len(r.Businesses)),
		zap.Int("deals", len(r.Deals)),
		zap.Int("metric_points", points),
	)
	return &snap, nil
}

// Confirm checks that snapshot id holds every row of r. It is used when a
// content-derived ID is already taken: a complete snapshot is returned, a
// partial one yields ErrIncompleteSnapshot.
func (p *Publisher) Confirm(ctx context.Context, id string, r *Result) (*domain.Snapshot, error) {
	snap, err := p.stores.Snapshots.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}

	businesses, err := p.stores.Businesses.GetBySnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load businesses: %w", err)
	}
	if len(businesses) != len(r.Businesses) {
		return nil, fmt.Errorf("snapshot %s: %w: %d of %d businesses stored",
			id, ErrIncompleteSnapshot, len(businesses), len(r.Businesses))
	}

	deals, err := p.stores.Deals.GetBySnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load deals: %w", err)
	}
	if len(deals) != len(r.Deals) {
		return nil, fmt.Errorf("snapshot %s: %w: %d of %d deals stored",
			id, ErrIncompleteSnapshot, len(deals), len(r.Deals))
	}

	if p.stores.Monthly != nil {
		for _, t := range r.Tables() {
			stored, err := p.stores.Monthly.GetBySeries(ctx, id, t.Series)
			if err != nil {
				return nil, fmt.Errorf("load %s metrics: %w", t.Series, err)
			}
			if want := len(t.Rows) * len(t.Measures); len(stored) != want {
				return nil, fmt.Errorf("snapshot %s: %w: %d of %d %s points stored",
					id, ErrIncompleteSnapshot, len(stored), want, t.Series)
			}
		}
	}
	return snap, nil
}

func (p *Publisher) timed(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	p.metrics.RecordDBQuery(p.backend, op, time.Since(start).Seconds(), err)
	return err
}
