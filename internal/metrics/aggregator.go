package metrics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"bizmetrics/internal/domain"
)

// ErrUnknownMeasure is returned when the growth measure is not a series column.
var ErrUnknownMeasure = errors.New("unknown measure")

// Derivation selects which columns Aggregate computes.
type Derivation uint8

const (
	// Monthly collapses daily points to one row per calendar month.
	// Without it the series stays daily and no growth columns are derived.
	Monthly Derivation = 1 << iota
	MoM
	YoY
	Compound
)

// DefaultDerivations computes every column.
const DefaultDerivations = Monthly | MoM | YoY | Compound

// DefaultWindow is the trailing window for compound growth: 13 rows give
// 12 compounding periods after the baseline.
const DefaultWindow = 13

// yoyLag is the row lag for year-over-year growth on a monthly table.
const yoyLag = 12

// Has reports whether every flag in f is set.
func (d Derivation) Has(f Derivation) bool {
	return d&f == f
}

// Options configures Aggregate.
type Options struct {
	Derive Derivation
	Window int // trailing rows for CMGR/CAGR, DefaultWindow when <= 1
}

// DefaultOptions returns every derivation with the default window.
func DefaultOptions() Options {
	return Options{Derive: DefaultDerivations, Window: DefaultWindow}
}

// Aggregate rolls a daily series up to months and derives growth columns
// for growthMeasure. An empty growthMeasure skips growth derivation.
//
// Each month carries the last observed value of every measure (point-in-time
// balances, not flow totals). A measure that is null on the month's last
// date falls back to the last non-null value inside that month.
func Aggregate(series *domain.Series, growthMeasure string, opts Options) (*domain.MonthlyTable, error) {
	growthIdx := -1
	if growthMeasure != "" {
		growthIdx = series.MeasureIndex(growthMeasure)
		if growthIdx < 0 {
			return nil, fmt.Errorf("series %s: %w %q", series.Name, ErrUnknownMeasure, growthMeasure)
		}
	}

	periodKey := dailyKey
	if opts.Derive.Has(Monthly) {
		periodKey = monthKey
	}

	table := &domain.MonthlyTable{
		Series:   series.Name,
		Measures: append([]string(nil), series.Measures...),
		Rows:     rollup(series, periodKey),
	}

	if growthIdx < 0 || !opts.Derive.Has(Monthly) {
		return table, nil
	}
	table.GrowthMeasure = growthMeasure

	values := make([]domain.Measure, len(table.Rows))
	for i, r := range table.Rows {
		values[i] = r.Values[growthIdx]
	}

	if opts.Derive.Has(MoM) {
		for i := 1; i < len(values); i++ {
			table.Rows[i].MoM = pctChange(values[i], values[i-1])
		}
	}
	if opts.Derive.Has(YoY) {
		for i := yoyLag; i < len(values); i++ {
			table.Rows[i].YoY = pctChange(values[i], values[i-yoyLag])
		}
	}
	if opts.Derive.Has(Compound) && len(values) > 1 {
		window := opts.Window
		if window <= 1 {
			window = DefaultWindow
		}
		start := len(values) - window
		if start < 0 {
			start = 0
		}
		base := values[start]
		for n := 1; start+n < len(values); n++ {
			row := &table.Rows[start+n]
			row.CMGR = compoundRate(values[start+n], base, float64(n))
			row.CAGR = compoundRate(values[start+n], base, float64(n)/12)
		}
		table.TrailingFrom = start + 1
	}

	return table, nil
}

// ToSeries turns an aggregated table back into a series of its rows,
// dated by each row's last observed date.
func ToSeries(t *domain.MonthlyTable) *domain.Series {
	s := &domain.Series{
		Name:     t.Series,
		Measures: append([]string(nil), t.Measures...),
		Points:   make([]domain.DailyPoint, len(t.Rows)),
	}
	for i, r := range t.Rows {
		s.Points[i] = domain.DailyPoint{
			Date:   r.Date,
			Values: append([]domain.Measure(nil), r.Values...),
		}
	}
	return s
}

func monthKey(t time.Time) string { return t.Format("2006-01") }

func dailyKey(t time.Time) string { return t.Format("2006-01-02") }

// rollup groups points by period and keeps the last observation of each
// measure in date order. Rows come out ordered by period ascending.
func rollup(series *domain.Series, key func(time.Time) string) []domain.MonthlyRow {
	points := make([]domain.DailyPoint, len(series.Points))
	copy(points, series.Points)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	var rows []domain.MonthlyRow
	for _, p := range points {
		k := key(p.Date)
		if len(rows) == 0 || rows[len(rows)-1].Period != k {
			rows = append(rows, domain.MonthlyRow{
				Period: k,
				Values: make([]domain.Measure, len(series.Measures)),
			})
		}
		cur := &rows[len(rows)-1]
		cur.Date = p.Date
		for j, v := range p.Values {
			if j < len(cur.Values) && v.Valid {
				cur.Values[j] = v
			}
		}
	}
	return rows
}
