// Package summary reduces business and deal tables to grouped totals,
// rankings, and retention figures.
package summary

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"bizmetrics/internal/domain"
)

// ErrUnknownDimension is returned for a dimension name that ParseDimension does not know.
var ErrUnknownDimension = errors.New("unknown dimension")

// Dimension is a business attribute to group by.
type Dimension string

const (
	Industry  Dimension = "industry"
	CloseYear Dimension = "close_year"
	Region    Dimension = "region"
	Business  Dimension = "business"
)

// Dimensions lists every dimension in report order.
var Dimensions = []Dimension{Industry, CloseYear, Region, Business}

// ParseDimension resolves a dimension name.
func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDimension, s)
}

// Key returns the grouping key of a business for this dimension.
func (d Dimension) Key(b *domain.Business) string {
	switch d {
	case Industry:
		return b.Industry
	case CloseYear:
		return strconv.Itoa(b.CloseYear)
	case Region:
		return string(b.Region)
	case Business:
		return b.BusinessID
	}
	return ""
}

// Group is one row of a grouped summary.
type Group struct {
	Key             string   `json:"key"`
	Count           int      `json:"count"`
	ActiveCount     int      `json:"active_count"`
	TotalNetValue   float64  `json:"total_net_value"`
	TotalAnnualized float64  `json:"total_annualized_value"`
	Retention       float64  `json:"retention"` // mean of the active flag
	Share           *float64 `json:"share"`     // fraction of the overall net value; nil on a zero total
}

// GroupBy reduces businesses along one dimension. Groups are ordered by
// total net value descending; ties keep ascending key order.
// Businesses without an annualized value contribute nothing to TotalAnnualized.
func GroupBy(businesses []*domain.Business, dim Dimension) []Group {
	index := make(map[string]*Group)
	total := 0.0
	for _, b := range businesses {
		k := dim.Key(b)
		g, ok := index[k]
		if !ok {
			g = &Group{Key: k}
			index[k] = g
		}
		g.Count++
		if b.IsActive {
			g.ActiveCount++
		}
		g.TotalNetValue += b.TotalNetValue
		if b.AnnualizedValue != nil {
			g.TotalAnnualized += *b.AnnualizedValue
		}
		total += b.TotalNetValue
	}

	keys := make([]string, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		g := index[k]
		g.Retention = float64(g.ActiveCount) / float64(g.Count)
		g.Share = ShareOf(g.TotalNetValue, total)
		groups = append(groups, *g)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].TotalNetValue > groups[j].TotalNetValue
	})
	return groups
}

// RetentionSummary is the active share of a set of businesses.
type RetentionSummary struct {
	Active int     `json:"active"`
	Total  int     `json:"total"`
	Rate   float64 `json:"rate"` // Active / Total, 0 for no businesses
}

// Retention counts active businesses.
func Retention(businesses []*domain.Business) RetentionSummary {
	r := RetentionSummary{Total: len(businesses)}
	for _, b := range businesses {
		if b.IsActive {
			r.Active++
		}
	}
	if r.Total > 0 {
		r.Rate = float64(r.Active) / float64(r.Total)
	}
	return r
}

// Active returns the businesses whose contracts run through the as-of date.
func Active(businesses []*domain.Business) []*domain.Business {
	var out []*domain.Business
	for _, b := range businesses {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out
}

// ShareOf returns part / total as a fraction, nil when total is zero.
func ShareOf(part, total float64) *float64 {
	if total == 0 {
		return nil
	}
	s := part / total
	return &s
}

// TotalNetValue sums the net value of the given businesses.
func TotalNetValue(businesses []*domain.Business) float64 {
	sum := 0.0
	for _, b := range businesses {
		sum += b.TotalNetValue
	}
	return sum
}
