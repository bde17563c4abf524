package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/idhash"
	"bizmetrics/internal/observability"
	"bizmetrics/internal/storage"
	"bizmetrics/internal/storage/memory"
)

type mockSnapshotStore struct {
	mock.Mock
}

func (m *mockSnapshotStore) Insert(ctx context.Context, s *domain.Snapshot) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockSnapshotStore) GetByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	args := m.Called(ctx, id)
	snap, _ := args.Get(0).(*domain.Snapshot)
	return snap, args.Error(1)
}

func (m *mockSnapshotStore) GetLatest(ctx context.Context) (*domain.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*domain.Snapshot)
	return snap, args.Error(1)
}

func memoryStores() Stores {
	return Stores{
		Snapshots:  memory.NewSnapshotStore(),
		Businesses: memory.NewBusinessStore(),
		Deals:      memory.NewDealStore(),
		Monthly:    memory.NewMonthlyMetricStore(),
	}
}

func TestPublisher_Publish(t *testing.T) {
	cfg := writeFixtures(t)
	res, err := New(cfg, nil, nil).WithClock(fixedClock).Run(context.Background())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("test", reg)
	stores := memoryStores()
	pub := NewPublisher("memory", stores, nil, m).WithIDGenerator(func() string { return "snap-1" })

	ctx := context.Background()
	snap, err := pub.Publish(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, "snap-1", snap.SnapshotID)
	assert.Equal(t, res.Snapshot.AsOf, snap.AsOf)
	assert.Empty(t, res.Snapshot.SnapshotID, "result is not modified")

	latest, err := stores.Snapshots.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, latest)

	businesses, err := stores.Businesses.GetBySnapshot(ctx, "snap-1")
	require.NoError(t, err)
	assert.Len(t, businesses, len(res.Businesses))

	deals, err := stores.Deals.GetBySnapshot(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, res.Deals, deals)

	acv, err := stores.Monthly.GetBySeries(ctx, "snap-1", ACVSeries)
	require.NoError(t, err)
	assert.Len(t, acv, monthsOfData)

	fields, err := stores.Monthly.GetBySeries(ctx, "snap-1", "fields")
	require.NoError(t, err)
	assert.Len(t, fields, 3*2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotsPublished.WithLabelValues("memory")))

	// Publishing the same ID twice is rejected by the append-only stores.
	_, err = pub.Publish(ctx, res)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPublisher_SkipsMonthlyWithoutStore(t *testing.T) {
	cfg := writeFixtures(t)
	res, err := New(cfg, nil, nil).WithClock(fixedClock).Run(context.Background())
	require.NoError(t, err)

	stores := memoryStores()
	stores.Monthly = nil

	snap, err := NewPublisher("postgres", stores, nil, nil).Publish(context.Background(), res)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.SnapshotID)
}

func TestPublisher_MissingStores(t *testing.T) {
	_, err := NewPublisher("memory", Stores{}, nil, nil).Publish(context.Background(), &Result{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestPublisher_SnapshotFailure(t *testing.T) {
	boom := errors.New("connection refused")
	snapshots := new(mockSnapshotStore)
	snapshots.On("Insert", mock.Anything, mock.MatchedBy(func(s *domain.Snapshot) bool {
		return s.SnapshotID == "snap-1"
	})).Return(boom)

	stores := memoryStores()
	stores.Snapshots = snapshots

	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("test", reg)
	pub := NewPublisher("postgres", stores, nil, m).WithIDGenerator(func() string { return "snap-1" })

	_, err := pub.Publish(context.Background(), &Result{})
	assert.ErrorIs(t, err, boom)
	snapshots.AssertExpectations(t)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "insert_snapshot")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SnapshotsPublished.WithLabelValues("postgres")))
}

func TestPublisher_Confirm(t *testing.T) {
	cfg := writeFixtures(t)
	res, err := New(cfg, nil, nil).WithClock(fixedClock).Run(context.Background())
	require.NoError(t, err)

	ctx := context.Background()
	stores := memoryStores()
	pub := NewPublisher("memory", stores, nil, nil).WithIDGenerator(func() string { return "snap-1" })
	published, err := pub.Publish(ctx, res)
	require.NoError(t, err)

	snap, err := pub.Confirm(ctx, "snap-1", res)
	require.NoError(t, err)
	assert.Equal(t, published, snap)

	_, err = pub.Confirm(ctx, "snap-2", res)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPublisher_Confirm_PartialWrite(t *testing.T) {
	cfg := writeFixtures(t)
	res, err := New(cfg, nil, nil).WithClock(fixedClock).Run(context.Background())
	require.NoError(t, err)

	ctx := context.Background()
	stores := memoryStores()
	snap := res.Snapshot
	snap.SnapshotID = "snap-1"
	require.NoError(t, stores.Snapshots.Insert(ctx, &snap))
	require.NoError(t, stores.Businesses.InsertBulk(ctx, "snap-1", res.Businesses))

	pub := NewPublisher("memory", stores, nil, nil).WithIDGenerator(func() string { return "snap-1" })
	_, err = pub.Publish(ctx, res)
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = pub.Confirm(ctx, "snap-1", res)
	assert.ErrorIs(t, err, ErrIncompleteSnapshot)
	assert.Contains(t, err.Error(), "deals")

	require.NoError(t, stores.Deals.InsertBulk(ctx, "snap-1", res.Deals))
	_, err = pub.Confirm(ctx, "snap-1", res)
	assert.ErrorIs(t, err, ErrIncompleteSnapshot)
	assert.Contains(t, err.Error(), ACVSeries)
}

func TestResult_ContentFollowsRegionMapping(t *testing.T) {
	cfg := writeFixtures(t)
	base, err := New(cfg, nil, nil).WithClock(fixedClock).Run(context.Background())
	require.NoError(t, err)
	again, err := New(cfg, nil, nil).WithClock(fixedClock).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, idhash.SnapshotID(base.Content()), idhash.SnapshotID(again.Content()))

	cfg.Regions = map[string]string{"USD": "NA", "EUR": "EMEA", "BRL": "LATAM"}
	remapped, err := New(cfg, nil, nil).WithClock(fixedClock).Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, idhash.SnapshotID(base.Content()), idhash.SnapshotID(remapped.Content()))

	tables := base.Tables()
	require.Len(t, tables, 1+len(base.Features))
	assert.Equal(t, ACVSeries, tables[0].Series)
}
