package api

import (
	"time"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/reporting"
	"bizmetrics/internal/summary"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"unknown dimension \"planet\""`
}

// OverviewResponse wraps the headline figures with run metadata.
type OverviewResponse struct {
	AsOf        time.Time                `json:"as_of"`
	GeneratedAt time.Time                `json:"generated_at"`
	Overview    reporting.Overview       `json:"overview"`
	Retention   summary.RetentionSummary `json:"retention"`
}

// BusinessesResponse lists normalized businesses.
type BusinessesResponse struct {
	Count      int                `json:"count"`
	Businesses []*domain.Business `json:"businesses"`
}

// TopBusinessesResponse ranks businesses by total contract value.
type TopBusinessesResponse struct {
	Limit      int                     `json:"limit"`
	Businesses []summary.BusinessTotal `json:"businesses"`
}

// GroupsResponse is one business breakdown.
type GroupsResponse struct {
	Dimension summary.Dimension `json:"dimension"`
	Groups    []summary.Group   `json:"groups"`
}

// ChangesResponse is the year-over-year change of one breakdown.
type ChangesResponse struct {
	Dimension summary.Dimension    `json:"dimension"`
	Year      int                  `json:"year,omitempty"`
	Changes   []summary.YearChange `json:"changes"`
}

// DealsResponse lists deals, most recent first when filtered by type.
type DealsResponse struct {
	Type  string         `json:"type,omitempty"`
	Count int            `json:"count"`
	Deals []*domain.Deal `json:"deals"`
}

// TableResponse is an aggregated time series as row records.
type TableResponse struct {
	Series        string           `json:"series"`
	Measures      []string         `json:"measures"`
	GrowthMeasure string           `json:"growth_measure,omitempty"`
	Rows          []map[string]any `json:"rows"`
}

// FeaturesResponse lists feature adoption summaries.
type FeaturesResponse struct {
	Features []reporting.FeatureAdoption `json:"features"`
}

func tableResponse(t *domain.MonthlyTable) TableResponse {
	return TableResponse{
		Series:        t.Series,
		Measures:      t.Measures,
		GrowthMeasure: t.GrowthMeasure,
		Rows:          t.Records(),
	}
}
