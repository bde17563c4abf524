package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/storage"
)

func acvTable() *domain.MonthlyTable {
	return &domain.MonthlyTable{
		Series:        "acv",
		Measures:      []string{"ACTIVE_ACV"},
		GrowthMeasure: "ACTIVE_ACV",
		Rows: []domain.MonthlyRow{
			{Period: "2023-01", Date: time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), Values: []domain.Measure{domain.Some(100)}},
			{Period: "2023-02", Date: time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), Values: []domain.Measure{domain.Some(110)}, MoM: domain.Float(10)},
			{Period: "2023-03", Date: time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC), Values: []domain.Measure{{}}},
		},
	}
}

func TestMonthlyMetricStore_InsertBulkAndGet(t *testing.T) {
	conn := setupTestDB(t)

	store := NewMonthlyMetricStore(conn)
	ctx := context.Background()

	points := acvTable().Points("snap-1")
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetBySeries(ctx, "snap-1", "acv")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, points, got)

	other, err := store.GetBySeries(ctx, "snap-2", "acv")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMonthlyMetricStore_Duplicates(t *testing.T) {
	conn := setupTestDB(t)

	store := NewMonthlyMetricStore(conn)
	ctx := context.Background()

	points := acvTable().Points("snap-1")

	err := store.InsertBulk(ctx, append(points, points[0]))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.InsertBulk(ctx, points))
	err = store.InsertBulk(ctx, points[1:2])
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []*domain.MetricPoint{{Series: "acv"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
