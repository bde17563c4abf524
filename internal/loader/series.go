package loader

import (
	"bizmetrics/internal/domain"
)

// LoadSeries reads a daily snapshot export keyed by CALENDAR_DATE.
// Each requested measure must be a header in the file. Empty cells load as
// invalid measures and rows with an empty date are rejected.
func LoadSeries(name, path string, measures ...Column) (*domain.Series, error) {
	required := append([]Column{ColCalendarDate}, measures...)
	t, err := readTable(path, required)
	if err != nil {
		return nil, err
	}

	series := &domain.Series{
		Name:     name,
		Measures: make([]string, len(measures)),
		Points:   make([]domain.DailyPoint, 0, len(t.rows)),
	}
	for i, m := range measures {
		series.Measures[i] = string(m)
	}

	for i := range t.rows {
		d, err := t.date(i, ColCalendarDate)
		if err != nil {
			return nil, err
		}
		if d.IsZero() {
			return nil, &SourceError{Path: path, Column: ColCalendarDate, Row: i + 1, Err: ErrParse}
		}

		point := domain.DailyPoint{Date: d, Values: make([]domain.Measure, len(measures))}
		for j, m := range measures {
			v, ok, err := t.number(i, m)
			if err != nil {
				return nil, err
			}
			point.Values[j] = domain.Measure{Value: v, Valid: ok}
		}
		series.Points = append(series.Points, point)
	}
	return series, nil
}

// Columns converts measure names to typed columns.
func Columns(names ...string) []Column {
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = Column(n)
	}
	return out
}
