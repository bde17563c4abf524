package reporting

import (
	"time"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/metrics"
	"bizmetrics/internal/summary"
)

// Report represents the business metrics report.
type Report struct {
	// Metadata
	GeneratedAt time.Time `json:"generated_at"`
	AsOf        time.Time `json:"as_of"`

	Overview    Overview          `json:"overview"`
	Customers   CustomerSummary   `json:"customers"`
	Deals       DealsSection      `json:"deals"`
	Features    []FeatureAdoption `json:"features"` // config order
	DataQuality DataQuality       `json:"data_quality"`
}

// Overview holds the headline ACV and TCV figures.
type Overview struct {
	LatestPeriod string         `json:"latest_period"` // YYYY-MM of the last ACV row
	LatestACV    domain.Measure `json:"latest_acv"`
	PreviousACV  domain.Measure `json:"previous_acv"` // one month back
	YearAgoACV   domain.Measure `json:"year_ago_acv"` // twelve months back
	MoM          *float64       `json:"mom_growth"`
	YoY          *float64       `json:"yoy_growth"`
	CMGR         *float64       `json:"cmgr"` // last row of the trailing window
	CAGR         *float64       `json:"cagr"`

	TotalTCV float64 `json:"total_tcv"` // all deals since inception

	// TCV closed in the month before the as-of date, the month before that,
	// and twelve months before the first.
	LastMonth           string  `json:"last_month"`
	ClosedLastMonth     float64 `json:"closed_last_month"`
	PreviousMonth       string  `json:"previous_month"`
	ClosedPreviousMonth float64 `json:"closed_previous_month"`
	YearAgoMonth        string  `json:"year_ago_month"`
	ClosedYearAgo       float64 `json:"closed_year_ago"`

	Trailing []TrailingRow `json:"trailing"`
}

// TrailingRow is one month of the trailing ACV window.
type TrailingRow struct {
	Period string         `json:"period"`
	ACV    domain.Measure `json:"acv"`
	CMGR   *float64       `json:"cmgr"`
	CAGR   *float64       `json:"cagr"`
}

// CustomerSummary breaks businesses down by industry, sign-up year and region.
type CustomerSummary struct {
	Retention summary.RetentionSummary `json:"retention"`

	Industries       []summary.Group `json:"industries"`
	ActiveByIndustry []summary.Group `json:"active_by_industry"` // shares of active TCV
	CloseYears       []summary.Group `json:"close_years"`
	Regions          []summary.Group `json:"regions"`

	ChangeYear     int                  `json:"change_year"`
	IndustryChange []summary.YearChange `json:"industry_change"`
	RegionChange   []summary.YearChange `json:"region_change"`
}

// DealsSection lists recent bookings and the largest customers.
type DealsSection struct {
	RecentNewLogos []*domain.Deal          `json:"recent_new_logos"`
	RecentRenewals []*domain.Deal          `json:"recent_renewals"`
	TopBusinesses  []summary.BusinessTotal `json:"top_businesses"`
}

// FeatureAdoption summarizes usage of one tracked feature.
type FeatureAdoption struct {
	Name     string            `json:"name"`
	Measure  string            `json:"measure"`
	Periods  int               `json:"periods"` // rows in the feature table
	Latest   domain.Measure    `json:"latest"`
	Adoption *metrics.Adoption `json:"adoption,omitempty"` // nil without an adoption window
}

// DataQuality counts loaded and excluded rows.
type DataQuality struct {
	ContractLines int         `json:"contract_lines"`
	Deals         int         `json:"deals"`
	Businesses    int         `json:"businesses"`
	Drops         []DropCount `json:"drops"` // sorted by reason
}

// DropCount is the number of rows excluded for one reason.
type DropCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}
