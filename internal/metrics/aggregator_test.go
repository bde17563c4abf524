package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizmetrics/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthSeries builds one ACTIVE_ACV reading per month starting January 2021.
func monthSeries(values ...float64) *domain.Series {
	s := &domain.Series{Name: "acv", Measures: []string{"ACTIVE_ACV"}}
	for i, v := range values {
		s.Points = append(s.Points, domain.DailyPoint{
			Date:   day(2021, time.January+time.Month(i), 28),
			Values: []domain.Measure{domain.Some(v)},
		})
	}
	return s
}

func TestAggregate_MoM(t *testing.T) {
	table, err := Aggregate(monthSeries(100, 110, 121), "ACTIVE_ACV", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)

	assert.Nil(t, table.Rows[0].MoM)
	require.NotNil(t, table.Rows[1].MoM)
	require.NotNil(t, table.Rows[2].MoM)
	assert.InDelta(t, 0.10, *table.Rows[1].MoM, 1e-9)
	assert.InDelta(t, 0.10, *table.Rows[2].MoM, 1e-9)
	assert.Equal(t, "2021-01", table.Rows[0].Period)
	assert.Equal(t, "2021-03", table.Rows[2].Period)
}

func TestAggregate_YoYUndefinedForFirstYear(t *testing.T) {
	values := make([]float64, 14)
	for i := range values {
		values[i] = float64(100 + 10*i)
	}

	table, err := Aggregate(monthSeries(values...), "ACTIVE_ACV", DefaultOptions())
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		assert.Nil(t, table.Rows[i].YoY, "row %d", i)
	}
	require.NotNil(t, table.Rows[12].YoY)
	assert.InDelta(t, (220.0-100.0)/100.0, *table.Rows[12].YoY, 1e-9)
	require.NotNil(t, table.Rows[13].YoY)
	assert.InDelta(t, (230.0-110.0)/110.0, *table.Rows[13].YoY, 1e-9)
}

func TestAggregate_CompoundDoubling(t *testing.T) {
	values := make([]float64, 13)
	for i := range values {
		values[i] = 100 * math.Pow(2, float64(i)/12)
	}

	table, err := Aggregate(monthSeries(values...), "ACTIVE_ACV", DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, table.TrailingFrom)
	assert.Nil(t, table.Rows[0].CMGR, "baseline row carries no compound metric")
	assert.Nil(t, table.Rows[0].CAGR)

	last := table.Rows[12]
	require.NotNil(t, last.CAGR)
	require.NotNil(t, last.CMGR)
	assert.InDelta(t, 1.0, *last.CAGR, 1e-9)
	assert.InDelta(t, math.Pow(2, 1.0/12)-1, *last.CMGR, 1e-9)

	trailing := table.Trailing()
	require.Len(t, trailing, 12)
	assert.Equal(t, table.Rows[1].Period, trailing[0].Period)
}

func TestAggregate_CompoundUsesTrailingWindow(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(100 + i)
	}

	table, err := Aggregate(monthSeries(values...), "ACTIVE_ACV", DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 8, table.TrailingFrom)
	assert.Nil(t, table.Rows[7].CMGR)
	require.NotNil(t, table.Rows[8].CMGR)
	assert.InDelta(t, 108.0/107.0-1, *table.Rows[8].CMGR, 1e-9)
	assert.Len(t, table.Trailing(), 12)
}

func TestAggregate_ShortTableUsesAllRows(t *testing.T) {
	table, err := Aggregate(monthSeries(100, 110, 120, 130, 140), "ACTIVE_ACV", DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, table.TrailingFrom)
	assert.Len(t, table.Trailing(), 4)
}

func TestAggregate_CustomWindow(t *testing.T) {
	opts := DefaultOptions()
	opts.Window = 4

	table, err := Aggregate(monthSeries(100, 110, 120, 130, 140, 150), "ACTIVE_ACV", opts)
	require.NoError(t, err)

	assert.Equal(t, 3, table.TrailingFrom)
	require.NotNil(t, table.Rows[5].CMGR)
	assert.InDelta(t, math.Pow(150.0/120.0, 1.0/3)-1, *table.Rows[5].CMGR, 1e-9)
}

func TestAggregate_NonPositiveBaselineIsUndefined(t *testing.T) {
	table, err := Aggregate(monthSeries(0, 10, 20), "ACTIVE_ACV", DefaultOptions())
	require.NoError(t, err)

	for _, r := range table.Rows {
		assert.Nil(t, r.CMGR)
		assert.Nil(t, r.CAGR)
	}
	// MoM after a zero reading is undefined too.
	assert.Nil(t, table.Rows[1].MoM)
	require.NotNil(t, table.Rows[2].MoM)
	assert.InDelta(t, 1.0, *table.Rows[2].MoM, 1e-9)
}

func TestAggregate_LastNonNullWithinMonth(t *testing.T) {
	s := &domain.Series{
		Name:     "usage",
		Measures: []string{"DAUS", "MAUS"},
		Points: []domain.DailyPoint{
			{Date: day(2022, 1, 31), Values: []domain.Measure{{}, {}}},
			{Date: day(2022, 1, 5), Values: []domain.Measure{domain.Some(10), domain.Some(1)}},
			{Date: day(2022, 1, 20), Values: []domain.Measure{domain.Some(20), {}}},
			{Date: day(2022, 2, 3), Values: []domain.Measure{domain.Some(30), domain.Some(3)}},
		},
	}

	table, err := Aggregate(s, "", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	jan := table.Rows[0]
	assert.Equal(t, day(2022, 1, 31), jan.Date)
	assert.Equal(t, domain.Some(20), jan.Values[0])
	assert.Equal(t, domain.Some(1), jan.Values[1])
	assert.Empty(t, table.GrowthMeasure)
	assert.Nil(t, table.Rows[1].MoM)
}

func TestAggregate_DailyModeKeepsRowsAndSkipsGrowth(t *testing.T) {
	s := monthSeries(100, 110)
	s.Points = append(s.Points, domain.DailyPoint{
		Date:   day(2021, 2, 1),
		Values: []domain.Measure{domain.Some(105)},
	})

	table, err := Aggregate(s, "ACTIVE_ACV", Options{})
	require.NoError(t, err)

	require.Len(t, table.Rows, 3)
	assert.Equal(t, "2021-01-28", table.Rows[0].Period)
	assert.Equal(t, "2021-02-01", table.Rows[1].Period)
	assert.Empty(t, table.GrowthMeasure)
	for _, r := range table.Rows {
		assert.Nil(t, r.MoM)
		assert.Nil(t, r.CMGR)
	}
	assert.Nil(t, table.Trailing())
}

func TestAggregate_SelectedDerivations(t *testing.T) {
	table, err := Aggregate(monthSeries(100, 110, 121), "ACTIVE_ACV", Options{Derive: Monthly | MoM})
	require.NoError(t, err)

	assert.NotNil(t, table.Rows[1].MoM)
	assert.Nil(t, table.Rows[2].CMGR)
	assert.Zero(t, table.TrailingFrom)
}

func TestAggregate_UnknownMeasure(t *testing.T) {
	_, err := Aggregate(monthSeries(1, 2), "NOPE", DefaultOptions())
	assert.ErrorIs(t, err, ErrUnknownMeasure)
}

func TestAggregate_EmptySeries(t *testing.T) {
	table, err := Aggregate(&domain.Series{Name: "acv", Measures: []string{"ACTIVE_ACV"}}, "ACTIVE_ACV", DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
	assert.Nil(t, table.Trailing())
}

func TestAggregate_DoesNotReorderInput(t *testing.T) {
	s := monthSeries(100, 110, 121)
	s.Points[0], s.Points[2] = s.Points[2], s.Points[0]
	first := s.Points[0].Date

	table, err := Aggregate(s, "ACTIVE_ACV", DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, first, s.Points[0].Date)
	assert.Equal(t, "2021-01", table.Rows[0].Period)
}

func TestRecords_GrowthColumns(t *testing.T) {
	table, err := Aggregate(monthSeries(100, 110), "ACTIVE_ACV", DefaultOptions())
	require.NoError(t, err)

	recs := table.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "2021-02", recs[1]["period"])
	assert.Equal(t, domain.Some(110), recs[1]["ACTIVE_ACV"])
	assert.Contains(t, recs[1], "mom_growth")
	assert.Contains(t, recs[1], "cagr")
}
