package summary

import (
	"sort"
	"time"

	"bizmetrics/internal/domain"
)

// TopN returns the first n items. The input order is the ranking.
func TopN[T any](items []T, n int) []T {
	if n < 0 || n >= len(items) {
		return items
	}
	return items[:n]
}

// BusinessTotal is an all-time rollup of one business across every deal,
// regardless of region or industry.
type BusinessTotal struct {
	BusinessID    string    `json:"business_id"`
	Name          string    `json:"name"`
	TotalNetValue float64   `json:"total_net_value"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	CloseDate     time.Time `json:"close_date"` // first close
	Tier          string    `json:"tier"`       // last non-empty tier in deal order
}

// TopBusinesses ranks businesses by summed deal value, descending.
// Ties keep ascending (id, name) order.
func TopBusinesses(deals []*domain.Deal, n int) []BusinessTotal {
	type key struct{ id, name string }
	index := make(map[key]*BusinessTotal)
	for _, d := range deals {
		k := key{d.BusinessID, d.Name}
		t, ok := index[k]
		if !ok {
			t = &BusinessTotal{BusinessID: d.BusinessID, Name: d.Name}
			index[k] = t
		}
		t.TotalNetValue += d.NetValue
		t.StartDate = domain.EarliestDate(t.StartDate, d.StartDate)
		t.EndDate = domain.LatestDate(t.EndDate, d.EndDate)
		t.CloseDate = domain.EarliestDate(t.CloseDate, d.CloseDate)
		if d.Tier != "" {
			t.Tier = d.Tier
		}
	}

	keys := make([]key, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].id != keys[j].id {
			return keys[i].id < keys[j].id
		}
		return keys[i].name < keys[j].name
	})

	out := make([]BusinessTotal, len(keys))
	for i, k := range keys {
		out[i] = *index[k]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalNetValue > out[j].TotalNetValue
	})
	return TopN(out, n)
}

// RecentDeals returns the n most recently closed deals of one type.
// Deals closed on the same date keep their input order.
func RecentDeals(deals []*domain.Deal, dealType domain.DealType, n int) []*domain.Deal {
	var out []*domain.Deal
	for _, d := range deals {
		if d.DealType == dealType {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CloseDate.After(out[j].CloseDate)
	})
	return TopN(out, n)
}

// Detail is the contract history of a single business.
type Detail struct {
	BusinessID      string         `json:"business_id"`
	Name            string         `json:"name"`
	AccountType     string         `json:"account_type"`
	Industry        string         `json:"industry"`
	TotalNetValue   float64        `json:"total_net_value"`
	FirstCloseDate  time.Time      `json:"first_close_date"`
	ContractedUntil time.Time      `json:"contracted_until"`
	Deals           []*domain.Deal `json:"deals"` // by start date ascending
}

// BusinessDetail collects every deal of one business id.
// It returns false when the id has no deals.
func BusinessDetail(deals []*domain.Deal, businessID string) (*Detail, bool) {
	var lines []*domain.Deal
	for _, d := range deals {
		if d.BusinessID == businessID {
			lines = append(lines, d)
		}
	}
	if len(lines) == 0 {
		return nil, false
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].StartDate.Before(lines[j].StartDate)
	})

	first := lines[0]
	det := &Detail{
		BusinessID:  businessID,
		Name:        first.Name,
		AccountType: first.AccountType,
		Industry:    first.Industry,
		Deals:       lines,
	}
	for _, d := range lines {
		det.TotalNetValue += d.NetValue
		det.FirstCloseDate = domain.EarliestDate(det.FirstCloseDate, d.CloseDate)
		det.ContractedUntil = domain.LatestDate(det.ContractedUntil, d.EndDate)
	}
	return det, true
}

// ClosedInMonth sums the value of deals closed in a YYYY-MM month.
func ClosedInMonth(deals []*domain.Deal, month string) float64 {
	sum := 0.0
	for _, d := range deals {
		if !d.CloseDate.IsZero() && d.CloseDate.Format("2006-01") == month {
			sum += d.NetValue
		}
	}
	return sum
}
