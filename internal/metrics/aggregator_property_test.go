package metrics

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"bizmetrics/internal/domain"
)

type pointSpec struct {
	Offset int
	Value  float64
	Valid  bool
}

func genPointSpec() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 900),
		gen.Float64Range(0, 1e6),
		gen.Bool(),
	).Map(func(v []interface{}) pointSpec {
		return pointSpec{Offset: v[0].(int), Value: v[1].(float64), Valid: v[2].(bool)}
	})
}

func buildSeries(specs []pointSpec) *domain.Series {
	s := &domain.Series{Name: "acv", Measures: []string{"ACTIVE_ACV"}}
	base := day(2020, 1, 1)
	for _, p := range specs {
		s.Points = append(s.Points, domain.DailyPoint{
			Date:   base.AddDate(0, 0, p.Offset),
			Values: []domain.Measure{{Value: p.Value, Valid: p.Valid}},
		})
	}
	return s
}

func TestAggregateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("monthly aggregation is idempotent", prop.ForAll(
		func(specs []pointSpec) bool {
			first, err := Aggregate(buildSeries(specs), "ACTIVE_ACV", DefaultOptions())
			if err != nil {
				return false
			}
			second, err := Aggregate(ToSeries(first), "ACTIVE_ACV", DefaultOptions())
			if err != nil {
				return false
			}
			return reflect.DeepEqual(first.Rows, second.Rows) && first.TrailingFrom == second.TrailingFrom
		},
		gen.SliceOf(genPointSpec()),
	))

	properties.Property("one row per month in ascending order", prop.ForAll(
		func(specs []pointSpec) bool {
			table, err := Aggregate(buildSeries(specs), "ACTIVE_ACV", DefaultOptions())
			if err != nil {
				return false
			}
			months := make(map[string]bool)
			for _, p := range specs {
				months[monthKey(day(2020, 1, 1).AddDate(0, 0, p.Offset))] = true
			}
			if len(table.Rows) != len(months) {
				return false
			}
			for i := 1; i < len(table.Rows); i++ {
				if table.Rows[i-1].Period >= table.Rows[i].Period {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genPointSpec()),
	))

	properties.Property("baseline row never carries compound metrics", prop.ForAll(
		func(specs []pointSpec) bool {
			table, err := Aggregate(buildSeries(specs), "ACTIVE_ACV", DefaultOptions())
			if err != nil {
				return false
			}
			if table.TrailingFrom == 0 {
				return len(table.Rows) <= 1
			}
			base := table.Rows[table.TrailingFrom-1]
			return base.CMGR == nil && base.CAGR == nil && len(table.Trailing()) <= DefaultWindow-1
		},
		gen.SliceOf(genPointSpec()),
	))

	properties.TestingRun(t)
}
