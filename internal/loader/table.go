package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing date cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	"01/02/2006",
	"1/2/2006",
}

// table is a parsed CSV file with a header index.
type table struct {
	path   string
	header map[Column]int
	rows   [][]string
}

// readTable reads a comma-separated file and verifies required headers.
func readTable(path string, required []Column) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SourceError{Path: path, Err: ErrFileNotFound}
		}
		return nil, &SourceError{Path: path, Err: err}
	}
	defer f.Close()

	return parseTable(path, f, required)
}

func parseTable(path string, r io.Reader, required []Column) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, &SourceError{Path: path, Err: fmt.Errorf("%w: %v", ErrParse, err)}
	}
	if len(records) == 0 {
		return nil, &SourceError{Path: path, Err: fmt.Errorf("%w: empty file, no header row", ErrParse)}
	}

	header := make(map[Column]int, len(records[0]))
	for i, name := range records[0] {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		header[Column(strings.TrimSpace(name))] = i
	}

	for _, col := range required {
		if _, ok := header[col]; !ok {
			return nil, &SourceError{Path: path, Column: col, Err: ErrMissingColumn}
		}
	}

	return &table{path: path, header: header, rows: records[1:]}, nil
}

// has reports whether the column is present in the header.
func (t *table) has(col Column) bool {
	_, ok := t.header[col]
	return ok
}

// cell returns the trimmed value of col in row i, or "" if the column is absent.
func (t *table) cell(i int, col Column) string {
	idx, ok := t.header[col]
	if !ok || idx >= len(t.rows[i]) {
		return ""
	}
	return strings.TrimSpace(t.rows[i][idx])
}

// date parses col in row i. Empty cells yield the zero time.
func (t *table) date(i int, col Column) (time.Time, error) {
	raw := t.cell(i, col)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := ParseDate(raw)
	if err != nil {
		return time.Time{}, &SourceError{Path: t.path, Column: col, Row: i + 1, Err: err}
	}
	return d, nil
}

// nullTokens are the cell values spreadsheet and dataframe exports write
// for a missing number.
var nullTokens = map[string]struct{}{
	"NA": {}, "N/A": {}, "n/a": {}, "#N/A": {}, "#NA": {}, "<NA>": {},
	"NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"NULL": {}, "null": {}, "None": {},
}

// number parses col in row i. Empty cells and null tokens yield an invalid
// measure. Infinite values are a parse error.
func (t *table) number(i int, col Column) (float64, bool, error) {
	raw := t.cell(i, col)
	if raw == "" {
		return 0, false, nil
	}
	if _, null := nullTokens[raw]; null {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
		err = fmt.Errorf("non-finite number %q", raw)
	}
	if err != nil {
		return 0, false, &SourceError{Path: t.path, Column: col, Row: i + 1, Err: fmt.Errorf("%w: %v", ErrParse, err)}
	}
	return v, true, nil
}

// ParseDate parses a date cell in any supported layout and returns the UTC calendar date.
func ParseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			y, m, day := d.Date()
			return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", ErrParse, raw)
}
