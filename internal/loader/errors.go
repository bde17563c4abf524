package loader

import (
	"errors"
	"fmt"
)

// Loader errors. Callers match them with errors.Is.
var (
	// ErrFileNotFound is returned when the source path does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("missing required column")

	// ErrParse is returned when a cell or the file itself cannot be parsed.
	ErrParse = errors.New("parse error")
)

// SourceError names the file, and where known the column and row, of a load failure.
type SourceError struct {
	Path   string
	Column Column
	Row    int // 1-based data row, 0 when not row specific
	Err    error
}

func (e *SourceError) Error() string {
	switch {
	case e.Column != "" && e.Row > 0:
		return fmt.Sprintf("%s: column %s row %d: %v", e.Path, e.Column, e.Row, e.Err)
	case e.Column != "":
		return fmt.Sprintf("%s: column %s: %v", e.Path, e.Column, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
