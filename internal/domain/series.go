package domain

import (
	"encoding/json"
	"time"
)

// Measure is a nullable numeric reading.
type Measure struct {
	Value float64
	Valid bool
}

// Some returns a valid measure.
func Some(v float64) Measure {
	return Measure{Value: v, Valid: true}
}

// MarshalJSON encodes invalid measures as null.
func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON decodes null as an invalid measure.
func (m *Measure) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Measure{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Some(v)
	return nil
}

// DailyPoint is one snapshot row. Values align with Series.Measures.
type DailyPoint struct {
	Date   time.Time
	Values []Measure
}

// Series is a daily snapshot export, e.g. active ACV or feature usage.
type Series struct {
	Name     string
	Measures []string
	Points   []DailyPoint
}

// MeasureIndex returns the column position of a measure, or -1.
func (s *Series) MeasureIndex(name string) int {
	return indexOf(s.Measures, name)
}

// MonthlyRow is one period of an aggregated series.
// Growth fields are nil when undefined for the row.
type MonthlyRow struct {
	Period string    // YYYY-MM (or YYYY-MM-DD for daily tables)
	Date   time.Time // last observed date in the period
	Values []Measure
	MoM    *float64
	YoY    *float64
	CMGR   *float64
	CAGR   *float64
}

// MonthlyTable is the aggregator output, ordered by period ascending.
type MonthlyTable struct {
	Series        string
	Measures      []string
	GrowthMeasure string // measure the growth columns are derived from
	Rows          []MonthlyRow

	// TrailingFrom is the index of the first row carrying compound metrics.
	// The row before it is the compounding baseline. Zero when compound
	// metrics were not derived.
	TrailingFrom int
}

// Trailing returns the rows of the compounding window, baseline excluded.
func (t *MonthlyTable) Trailing() []MonthlyRow {
	if t.TrailingFrom <= 0 || t.TrailingFrom > len(t.Rows) {
		return nil
	}
	return t.Rows[t.TrailingFrom:]
}

// MeasureIndex returns the column position of a measure, or -1.
func (t *MonthlyTable) MeasureIndex(name string) int {
	return indexOf(t.Measures, name)
}

// Column returns the values of one measure in row order.
func (t *MonthlyTable) Column(name string) []Measure {
	idx := t.MeasureIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]Measure, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Values[idx]
	}
	return out
}

// Records returns the table as row objects keyed by stable column names.
func (t *MonthlyTable) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, r := range t.Rows {
		rec := map[string]any{
			"period": r.Period,
			"date":   r.Date.Format("2006-01-02"),
		}
		for j, m := range t.Measures {
			rec[m] = r.Values[j]
		}
		if t.GrowthMeasure != "" {
			rec["mom_growth"] = r.MoM
			rec["yoy_growth"] = r.YoY
			rec["cmgr"] = r.CMGR
			rec["cagr"] = r.CAGR
		}
		out[i] = rec
	}
	return out
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
