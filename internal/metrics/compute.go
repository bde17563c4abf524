package metrics

import (
	"errors"
	"fmt"
	"math"

	"bizmetrics/internal/domain"
)

// ErrInsufficientData is returned when a window holds no valid readings.
var ErrInsufficientData = errors.New("insufficient data")

// pctChange returns (cur - prev) / prev, or nil when either reading is null
// or prev is zero.
func pctChange(cur, prev domain.Measure) *float64 {
	if !cur.Valid || !prev.Valid || prev.Value == 0 {
		return nil
	}
	return finite((cur.Value - prev.Value) / prev.Value)
}

// compoundRate returns (cur / base)^(1/periods) - 1.
// Undefined (nil) for a null reading or a non-positive baseline.
func compoundRate(cur, base domain.Measure, periods float64) *float64 {
	if !cur.Valid || !base.Valid || base.Value <= 0 || periods <= 0 {
		return nil
	}
	return finite(math.Pow(cur.Value/base.Value, 1/periods) - 1)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// computeMean calculates the arithmetic mean of the valid readings.
func computeMean(values []domain.Measure) (float64, bool) {
	sum := 0.0
	n := 0
	for _, v := range values {
		if v.Valid {
			sum += v.Value
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// roundTo rounds half away from zero to the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Adoption compares mean usage of a recent window against the window
// immediately before it.
type Adoption struct {
	Measure   string   `json:"measure"`
	Recent    int      `json:"recent"`     // truncated mean over the recent rows
	Prior     int      `json:"prior"`      // truncated mean over the prior rows
	GrowthPct *float64 `json:"growth_pct"` // (Recent - Prior) / Prior * 100, 2 decimals; nil when Prior is 0
}

// WindowGrowth takes the last `recent` rows and the `prior` rows before them,
// truncates each window's mean to an integer and reports the growth between
// them. Windows shorter than requested use what the table has.
func WindowGrowth(t *domain.MonthlyTable, measure string, recent, prior int) (*Adoption, error) {
	col := t.Column(measure)
	if col == nil {
		return nil, fmt.Errorf("series %s: %w %q", t.Series, ErrUnknownMeasure, measure)
	}

	n := len(col)
	recentFrom := clamp(n-recent, 0, n)
	priorFrom := clamp(recentFrom-prior, 0, recentFrom)

	recentMean, ok := computeMean(col[recentFrom:])
	if !ok {
		return nil, fmt.Errorf("%s recent window: %w", measure, ErrInsufficientData)
	}
	priorMean, ok := computeMean(col[priorFrom:recentFrom])
	if !ok {
		return nil, fmt.Errorf("%s prior window: %w", measure, ErrInsufficientData)
	}

	a := &Adoption{
		Measure: measure,
		Recent:  int(recentMean),
		Prior:   int(priorMean),
	}
	if a.Prior != 0 {
		g := roundTo(float64(a.Recent-a.Prior)/float64(a.Prior)*100, 2)
		a.GrowthPct = &g
	}
	return a, nil
}

// Lookback returns the reading `back` rows before the last one
// (0 is the last row). Out-of-range lookups are null.
func Lookback(t *domain.MonthlyTable, measure string, back int) domain.Measure {
	idx := t.MeasureIndex(measure)
	pos := len(t.Rows) - 1 - back
	if idx < 0 || back < 0 || pos < 0 {
		return domain.Measure{}
	}
	return t.Rows[pos].Values[idx]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
