package domain

import "time"

// Snapshot identifies one published pipeline run.
type Snapshot struct {
	SnapshotID  string    `json:"snapshot_id"`  // UUID
	AsOf        time.Time `json:"as_of"`        // reference date used for the active flag
	GeneratedAt time.Time `json:"generated_at"` // wall-clock time the run finished
	Businesses  int       `json:"businesses"`   // row counts, for quick sanity checks
	Deals       int       `json:"deals"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
