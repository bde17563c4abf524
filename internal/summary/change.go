package summary

import (
	"sort"

	"bizmetrics/internal/domain"
)

// YearChange is the booked value of one group in one close year.
type YearChange struct {
	Key        string   `json:"key"`
	Year       int      `json:"year"`
	NetValue   float64  `json:"net_value"`
	Cumulative float64  `json:"cumulative_net_value"`
	Change     *float64 `json:"change"` // vs. the group's previous year; nil on its first year
}

// ChangeByYear totals businesses per (key, close year) and tracks how the
// running total of each key grows from one close year to the next.
// Rows are ordered by key, then year.
func ChangeByYear(businesses []*domain.Business, dim Dimension) []YearChange {
	type cell struct {
		key  string
		year int
	}
	totals := make(map[cell]float64)
	for _, b := range businesses {
		totals[cell{dim.Key(b), b.CloseYear}] += b.TotalNetValue
	}

	cells := make([]cell, 0, len(totals))
	for c := range totals {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].key != cells[j].key {
			return cells[i].key < cells[j].key
		}
		return cells[i].year < cells[j].year
	})

	rows := make([]YearChange, 0, len(cells))
	for i, c := range cells {
		row := YearChange{Key: c.key, Year: c.year, NetValue: totals[c], Cumulative: totals[c]}
		if i > 0 && cells[i-1].key == c.key {
			prev := rows[i-1].Cumulative
			row.Cumulative += prev
			if prev != 0 {
				ch := (row.Cumulative - prev) / prev
				row.Change = &ch
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// ForYear keeps the rows of one close year.
func ForYear(rows []YearChange, year int) []YearChange {
	var out []YearChange
	for _, r := range rows {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out
}
