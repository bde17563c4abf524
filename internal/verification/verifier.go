// Package verification checks that a published snapshot matches a fresh
// pipeline run over the same inputs.
package verification

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/pipeline"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and recomputed values.
type FieldDivergence struct {
	Table    string // businesses, deals, snapshot or a series name
	Key      string // row identity within the table
	Field    string
	Expected interface{} // stored value
	Actual   interface{} // recomputed value
}

// VerificationReport contains the result of verifying one snapshot.
type VerificationReport struct {
	SnapshotID  string
	Businesses  int // stored rows compared
	Deals       int
	Points      int
	Match       bool
	Divergences []FieldDivergence
}

// Verifier reads snapshots back from the stores they were published to.
type Verifier struct {
	stores pipeline.Stores
}

// NewVerifier creates a verifier. stores.Monthly may be nil to skip series.
func NewVerifier(stores pipeline.Stores) *Verifier {
	return &Verifier{stores: stores}
}

// Verify compares the stored snapshot with a recomputed result.
// Returns storage.ErrNotFound when the snapshot does not exist.
func (v *Verifier) Verify(ctx context.Context, snapshotID string, computed *pipeline.Result) (*VerificationReport, error) {
	snap, err := v.stores.Snapshots.GetByID(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", snapshotID, err)
	}
	report := &VerificationReport{SnapshotID: snapshotID}
	report.Divergences = append(report.Divergences, CompareSnapshots(snap, &computed.Snapshot)...)

	businesses, err := v.stores.Businesses.GetBySnapshot(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("get businesses: %w", err)
	}
	report.Businesses = len(businesses)
	report.Divergences = append(report.Divergences, CompareBusinesses(businesses, computed.Businesses)...)

	deals, err := v.stores.Deals.GetBySnapshot(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("get deals: %w", err)
	}
	report.Deals = len(deals)
	report.Divergences = append(report.Divergences, CompareDeals(deals, computed.Deals)...)

	if v.stores.Monthly != nil {
		tables := []*domain.MonthlyTable{computed.ACV}
		for _, f := range computed.Features {
			tables = append(tables, f.Table)
		}
		for _, t := range tables {
			stored, err := v.stores.Monthly.GetBySeries(ctx, snapshotID, t.Series)
			if err != nil {
				return nil, fmt.Errorf("get %s metrics: %w", t.Series, err)
			}
			report.Points += len(stored)
			report.Divergences = append(report.Divergences, ComparePoints(t.Series, stored, t.Points(snapshotID))...)
		}
	}

	report.Match = len(report.Divergences) == 0
	return report, nil
}

// CompareSnapshots compares snapshot headers. GeneratedAt is not compared.
func CompareSnapshots(stored, computed *domain.Snapshot) []FieldDivergence {
	var divergences []FieldDivergence
	if !sameDay(stored.AsOf, computed.AsOf) {
		divergences = append(divergences, FieldDivergence{
			Table:    "snapshot",
			Field:    "AsOf",
			Expected: stored.AsOf,
			Actual:   computed.AsOf,
		})
	}
	return divergences
}

// CompareBusinesses matches businesses by (id, name, industry, region) and
// compares their aggregates. Missing and extra rows are reported under the
// "row" field.
func CompareBusinesses(stored, computed []*domain.Business) []FieldDivergence {
	index := make(map[string]*domain.Business, len(computed))
	for _, b := range computed {
		index[businessKey(b)] = b
	}

	var divergences []FieldDivergence
	add := func(key, field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{
			Table: "businesses", Key: key, Field: field, Expected: expected, Actual: actual,
		})
	}

	seen := make(map[string]bool, len(stored))
	for _, s := range stored {
		key := businessKey(s)
		seen[key] = true
		c, ok := index[key]
		if !ok {
			add(key, "row", "present", "missing")
			continue
		}
		if !floatEquals(s.TotalNetValue, c.TotalNetValue) {
			add(key, "TotalNetValue", s.TotalNetValue, c.TotalNetValue)
		}
		if !floatPtrEquals(s.AnnualizedValue, c.AnnualizedValue) {
			add(key, "AnnualizedValue", optional(s.AnnualizedValue), optional(c.AnnualizedValue))
		}
		if !sameDay(s.FirstCloseDate, c.FirstCloseDate) {
			add(key, "FirstCloseDate", s.FirstCloseDate, c.FirstCloseDate)
		}
		if !sameDay(s.StartDate, c.StartDate) {
			add(key, "StartDate", s.StartDate, c.StartDate)
		}
		if !sameDay(s.EndDate, c.EndDate) {
			add(key, "EndDate", s.EndDate, c.EndDate)
		}
		if s.IsActive != c.IsActive {
			add(key, "IsActive", s.IsActive, c.IsActive)
		}
		if s.CloseYear != c.CloseYear {
			add(key, "CloseYear", s.CloseYear, c.CloseYear)
		}
	}

	var extra []string
	for key := range index {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		add(key, "row", "missing", "present")
	}
	return divergences
}

// CompareDeals compares deals position by position; stored deals keep
// their publish order.
func CompareDeals(stored, computed []*domain.Deal) []FieldDivergence {
	var divergences []FieldDivergence
	if len(stored) != len(computed) {
		divergences = append(divergences, FieldDivergence{
			Table: "deals", Field: "count", Expected: len(stored), Actual: len(computed),
		})
	}

	add := func(i int, field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{
			Table: "deals", Key: fmt.Sprintf("#%d", i), Field: field, Expected: expected, Actual: actual,
		})
	}
	for i := 0; i < min(len(stored), len(computed)); i++ {
		s, c := stored[i], computed[i]
		if s.BusinessID != c.BusinessID {
			add(i, "BusinessID", s.BusinessID, c.BusinessID)
		}
		if !floatEquals(s.NetValue, c.NetValue) {
			add(i, "NetValue", s.NetValue, c.NetValue)
		}
		if s.DealType != c.DealType {
			add(i, "DealType", s.DealType, c.DealType)
		}
		if s.Region != c.Region {
			add(i, "Region", s.Region, c.Region)
		}
		if !sameDay(s.CloseDate, c.CloseDate) {
			add(i, "CloseDate", s.CloseDate, c.CloseDate)
		}
		if !sameDay(s.FirstCloseDate, c.FirstCloseDate) {
			add(i, "FirstCloseDate", s.FirstCloseDate, c.FirstCloseDate)
		}
	}
	return divergences
}

// ComparePoints matches metric points of one series by (period, measure).
func ComparePoints(series string, stored, computed []*domain.MetricPoint) []FieldDivergence {
	index := make(map[string]*domain.MetricPoint, len(computed))
	for _, p := range computed {
		index[p.Period+"/"+p.Measure] = p
	}

	var divergences []FieldDivergence
	add := func(key, field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{
			Table: series, Key: key, Field: field, Expected: expected, Actual: actual,
		})
	}

	seen := make(map[string]bool, len(stored))
	for _, s := range stored {
		key := s.Period + "/" + s.Measure
		seen[key] = true
		c, ok := index[key]
		if !ok {
			add(key, "row", "present", "missing")
			continue
		}
		if !floatPtrEquals(s.Value, c.Value) {
			add(key, "Value", optional(s.Value), optional(c.Value))
		}
		if !floatPtrEquals(s.MoM, c.MoM) {
			add(key, "MoM", optional(s.MoM), optional(c.MoM))
		}
		if !floatPtrEquals(s.YoY, c.YoY) {
			add(key, "YoY", optional(s.YoY), optional(c.YoY))
		}
		if !floatPtrEquals(s.CMGR, c.CMGR) {
			add(key, "CMGR", optional(s.CMGR), optional(c.CMGR))
		}
		if !floatPtrEquals(s.CAGR, c.CAGR) {
			add(key, "CAGR", optional(s.CAGR), optional(c.CAGR))
		}
	}

	var extra []string
	for key := range index {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		add(key, "row", "missing", "present")
	}
	return divergences
}

func businessKey(b *domain.Business) string {
	return b.BusinessID + "|" + b.Name + "|" + b.Industry + "|" + string(b.Region)
}

// floatEquals compares two float64 values with tolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

// floatPtrEquals compares two *float64 values with tolerance.
func floatPtrEquals(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return floatEquals(*a, *b)
}

// optional dereferences v for reporting; nil stays nil.
func optional(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// sameDay compares calendar dates; zero only matches zero.
func sameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() == b.IsZero()
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
