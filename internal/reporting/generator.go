package reporting

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/metrics"
	"bizmetrics/internal/summary"
)

// Input is everything the pipeline computed for one run.
type Input struct {
	AsOf          time.Time
	ContractLines int // raw lines loaded, before any exclusion
	Deals         []*domain.Deal
	Businesses    []*domain.Business
	Drops         map[string]int

	ACV        *domain.MonthlyTable
	ACVMeasure string

	Features []FeatureInput
}

// FeatureInput is one aggregated feature usage table.
type FeatureInput struct {
	Name    string
	Table   *domain.MonthlyTable
	Measure string // usage measure to summarize
	Recent  int    // adoption window in rows; 0 disables adoption
	Prior   int
}

// Options sizes the report lists.
type Options struct {
	RecentDeals   int // per deal type
	TopBusinesses int
	ChangeYear    int // close year for YoY change tables; 0 means the latest close year
}

// DefaultOptions returns the list sizes of the dashboard.
func DefaultOptions() Options {
	return Options{RecentDeals: 20, TopBusinesses: 10}
}

// Generator produces reports from pipeline output.
type Generator struct {
	opts Options
	now  func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(opts Options) *Generator {
	return &Generator{
		opts: opts,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report.
func (g *Generator) Generate(in *Input) (*Report, error) {
	if in.ACV == nil {
		return nil, errors.New("generate report: ACV table is required")
	}

	features, err := g.generateFeatures(in.Features)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		AsOf:        in.AsOf,
		Overview:    g.generateOverview(in),
		Customers:   g.generateCustomers(in.Businesses),
		Deals: DealsSection{
			RecentNewLogos: summary.RecentDeals(in.Deals, domain.DealTypeNewLogo, g.opts.RecentDeals),
			RecentRenewals: summary.RecentDeals(in.Deals, domain.DealTypeRenewal, g.opts.RecentDeals),
			TopBusinesses:  summary.TopBusinesses(in.Deals, g.opts.TopBusinesses),
		},
		Features:    features,
		DataQuality: generateDataQuality(in),
	}, nil
}

// generateOverview reads headline figures off the last ACV rows.
func (g *Generator) generateOverview(in *Input) Overview {
	acv := in.ACV
	o := Overview{
		LatestACV:   metrics.Lookback(acv, in.ACVMeasure, 0),
		PreviousACV: metrics.Lookback(acv, in.ACVMeasure, 1),
		YearAgoACV:  metrics.Lookback(acv, in.ACVMeasure, 12),
	}
	if n := len(acv.Rows); n > 0 {
		last := acv.Rows[n-1]
		o.LatestPeriod = last.Period
		o.MoM = last.MoM
		o.YoY = last.YoY
	}

	idx := acv.MeasureIndex(in.ACVMeasure)
	for _, r := range acv.Trailing() {
		row := TrailingRow{Period: r.Period, CMGR: r.CMGR, CAGR: r.CAGR}
		if idx >= 0 {
			row.ACV = r.Values[idx]
		}
		o.Trailing = append(o.Trailing, row)
	}
	if n := len(o.Trailing); n > 0 {
		o.CMGR = o.Trailing[n-1].CMGR
		o.CAGR = o.Trailing[n-1].CAGR
	}

	for _, d := range in.Deals {
		o.TotalTCV += d.NetValue
	}

	month := time.Date(in.AsOf.Year(), in.AsOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	o.LastMonth = month.AddDate(0, -1, 0).Format("2006-01")
	o.PreviousMonth = month.AddDate(0, -2, 0).Format("2006-01")
	o.YearAgoMonth = month.AddDate(0, -13, 0).Format("2006-01")
	o.ClosedLastMonth = summary.ClosedInMonth(in.Deals, o.LastMonth)
	o.ClosedPreviousMonth = summary.ClosedInMonth(in.Deals, o.PreviousMonth)
	o.ClosedYearAgo = summary.ClosedInMonth(in.Deals, o.YearAgoMonth)

	return o
}

func (g *Generator) generateCustomers(businesses []*domain.Business) CustomerSummary {
	year := g.opts.ChangeYear
	if year == 0 {
		for _, b := range businesses {
			if b.CloseYear > year {
				year = b.CloseYear
			}
		}
	}

	return CustomerSummary{
		Retention:        summary.Retention(businesses),
		Industries:       summary.GroupBy(businesses, summary.Industry),
		ActiveByIndustry: summary.GroupBy(summary.Active(businesses), summary.Industry),
		CloseYears:       summary.GroupBy(businesses, summary.CloseYear),
		Regions:          summary.GroupBy(businesses, summary.Region),
		ChangeYear:       year,
		IndustryChange:   summary.ForYear(summary.ChangeByYear(businesses, summary.Industry), year),
		RegionChange:     summary.ForYear(summary.ChangeByYear(businesses, summary.Region), year),
	}
}

func (g *Generator) generateFeatures(inputs []FeatureInput) ([]FeatureAdoption, error) {
	out := make([]FeatureAdoption, 0, len(inputs))
	for _, f := range inputs {
		fa := FeatureAdoption{
			Name:    f.Name,
			Measure: f.Measure,
			Periods: len(f.Table.Rows),
			Latest:  metrics.Lookback(f.Table, f.Measure, 0),
		}
		if f.Recent > 0 && f.Prior > 0 {
			a, err := metrics.WindowGrowth(f.Table, f.Measure, f.Recent, f.Prior)
			switch {
			case errors.Is(err, metrics.ErrInsufficientData):
				// Too little history; the feature is listed without adoption.
			case err != nil:
				return nil, fmt.Errorf("feature %s: %w", f.Name, err)
			default:
				fa.Adoption = a
			}
		}
		out = append(out, fa)
	}
	return out, nil
}

func generateDataQuality(in *Input) DataQuality {
	dq := DataQuality{
		ContractLines: in.ContractLines,
		Deals:         len(in.Deals),
		Businesses:    len(in.Businesses),
	}
	for reason, n := range in.Drops {
		dq.Drops = append(dq.Drops, DropCount{Reason: reason, Count: n})
	}
	sort.Slice(dq.Drops, func(i, j int) bool {
		return dq.Drops[i].Reason < dq.Drops[j].Reason
	})
	return dq
}
