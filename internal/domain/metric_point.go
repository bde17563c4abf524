package domain

import "time"

// MetricPoint is one (period, measure) cell of an aggregated table in long
// format, as stored in the analytical backend.
type MetricPoint struct {
	SnapshotID string    `json:"snapshot_id"`
	Series     string    `json:"series"`
	Period     string    `json:"period"`
	Date       time.Time `json:"date"`
	Measure    string    `json:"measure"`
	Value      *float64  `json:"value"`

	// Growth columns are set only on points of the table's growth measure.
	MoM  *float64 `json:"mom_growth,omitempty"`
	YoY  *float64 `json:"yoy_growth,omitempty"`
	CMGR *float64 `json:"cmgr,omitempty"`
	CAGR *float64 `json:"cagr,omitempty"`
}

// Points flattens the table into one point per row and measure.
func (t *MonthlyTable) Points(snapshotID string) []*MetricPoint {
	out := make([]*MetricPoint, 0, len(t.Rows)*len(t.Measures))
	for _, r := range t.Rows {
		for j, m := range t.Measures {
			p := &MetricPoint{
				SnapshotID: snapshotID,
				Series:     t.Series,
				Period:     r.Period,
				Date:       r.Date,
				Measure:    m,
			}
			if v := r.Values[j]; v.Valid {
				p.Value = Float(v.Value)
			}
			if m == t.GrowthMeasure {
				p.MoM, p.YoY, p.CMGR, p.CAGR = r.MoM, r.YoY, r.CMGR, r.CAGR
			}
			out = append(out, p)
		}
	}
	return out
}
