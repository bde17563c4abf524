package domain

import "time"

// DealType classifies a contract line relative to the business's first booking.
type DealType string

const (
	DealTypeNewLogo DealType = "New Logo"
	DealTypeRenewal DealType = "Renewal"
)

// ContractLine represents one quote/order line from the contract export.
// Empty strings and zero dates stand for null cells.
type ContractLine struct {
	BusinessID  string    `json:"business_id"`
	Name        string    `json:"name"`
	Industry    string    `json:"industry"`     // empty when unknown
	Currency    string    `json:"currency"`     // ISO code of the booking
	NetValue    float64   `json:"net_value"`    // USD
	Tier        string    `json:"tier"`         // empty when the line is an add-on
	StartDate   time.Time `json:"start_date"`   // calendar date, UTC
	EndDate     time.Time `json:"end_date"`     // calendar date, UTC
	CloseDate   time.Time `json:"close_date"`   // signing/booking date
	AccountType string    `json:"account_type"` // account segment label
}

// HasTerm reports whether both start and end dates are present.
func (c *ContractLine) HasTerm() bool {
	return !c.StartDate.IsZero() && !c.EndDate.IsZero()
}

// InvertedTerm reports whether the end date precedes the start date.
func (c *ContractLine) InvertedTerm() bool {
	return c.HasTerm() && c.EndDate.Before(c.StartDate)
}

// Deal is a contract line enriched with classification and geography.
type Deal struct {
	ContractLine
	FirstCloseDate time.Time `json:"first_close_date"` // earliest close date across the business's lines
	DealType       DealType  `json:"deal_type"`        // New Logo when CloseDate == FirstCloseDate
	Region         Region    `json:"region"`           // mapped from Currency, empty when unresolved
}

// Business is one customer aggregated from its deals.
type Business struct {
	BusinessID      string    `json:"business_id"`
	Name            string    `json:"name"`
	Industry        string    `json:"industry"`
	Region          Region    `json:"region"`
	TotalNetValue   float64   `json:"total_net_value"`  // TCV
	FirstCloseDate  time.Time `json:"first_close_date"` // min(close date)
	StartDate       time.Time `json:"start_date"`       // min(start date)
	EndDate         time.Time `json:"end_date"`         // max(end date)
	AnnualizedValue *float64  `json:"annualized_value"` // ACV, nil when the term is unknown
	IsActive        bool      `json:"is_active"`        // EndDate >= as-of date
	CloseYear       int       `json:"close_year"`       // year of FirstCloseDate
}

// DurationDays returns the whole days between StartDate and EndDate.
func (b *Business) DurationDays() int {
	return DaysBetween(b.StartDate, b.EndDate)
}

// DaysBetween returns the number of whole calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

// TruncateDay drops the clock part of t and returns a UTC calendar date.
func TruncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EarliestDate returns the earlier of a and b. Zero (null) dates are ignored.
func EarliestDate(a, b time.Time) time.Time {
	if a.IsZero() || (!b.IsZero() && b.Before(a)) {
		return b
	}
	return a
}

// LatestDate returns the later of a and b. Zero (null) dates are ignored.
func LatestDate(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
