package normalization

import (
	"math"
	"time"

	"bizmetrics/internal/domain"
)

// DropReason names why a contract line or business row was excluded.
type DropReason string

const (
	DropNonPositiveValue DropReason = "non_positive_value" // net value <= 0 or null
	DropNonFiniteValue   DropReason = "non_finite_value"   // net value is +Inf
	DropNullIndustry     DropReason = "null_industry"      // business without industry
	DropNullCloseDate    DropReason = "null_close_date"    // business without any close date
	DropNullRegion       DropReason = "null_region"        // business booked in an unmapped currency
)

// MinDurationDays is the floor applied to a business term before annualizing.
// A zero-length term would otherwise divide by zero.
const MinDurationDays = 1

// Options configures Normalize.
type Options struct {
	AsOf    time.Time           // reference date for the active flag
	Regions domain.RegionLookup // currency → region; nil means domain.DefaultRegions
}

// Result is the normalizer output.
type Result struct {
	Deals      []*domain.Deal     // every revenue line, classified and region-mapped
	Businesses []*domain.Business // one row per (id, name, industry, region)
	Drops      map[DropReason]int // excluded rows per reason

	// InvertedTerms counts kept lines whose end date precedes their start
	// date. They add to TCV but not to the business term.
	InvertedTerms int
}

// DroppedLines returns the number of contract lines removed before classification.
func (r *Result) DroppedLines() int {
	return r.Drops[DropNonPositiveValue] + r.Drops[DropNonFiniteValue]
}

// Normalize derives deal- and business-level facts from raw contract lines.
// The input slice and its elements are not modified.
//
// Steps:
//  1. drop lines with net value <= 0, NaN or +Inf
//  2. first close date per business id, over all remaining lines
//  3. New Logo when close date == first close date, else Renewal
//  4. currency → region
//  5. group by (business id, name, industry, region)
//  6. ACV = TCV / (max(end) - min(start) in days / 365), term floored at MinDurationDays;
//     lines with an inverted term count toward TCV but not toward the term
//  7. active when max(end) >= AsOf
//  8. drop businesses with null industry, close date or region
func Normalize(lines []*domain.ContractLine, opts Options) *Result {
	regions := opts.Regions
	if regions == nil {
		regions = domain.DefaultRegions
	}
	asOf := domain.TruncateDay(opts.AsOf)

	res := &Result{Drops: make(map[DropReason]int)}

	kept := make([]*domain.ContractLine, 0, len(lines))
	for _, l := range lines {
		switch {
		case !(l.NetValue > 0):
			res.Drops[DropNonPositiveValue]++
			continue
		case math.IsInf(l.NetValue, 1):
			res.Drops[DropNonFiniteValue]++
			continue
		}
		if l.InvertedTerm() {
			res.InvertedTerms++
		}
		kept = append(kept, l)
	}

	firstClose := firstCloseDates(kept)

	res.Deals = make([]*domain.Deal, 0, len(kept))
	for _, l := range kept {
		deal := &domain.Deal{
			ContractLine:   *l,
			FirstCloseDate: firstClose[l.BusinessID],
			DealType:       classify(l.CloseDate, firstClose[l.BusinessID]),
		}
		if r, ok := regions.Resolve(l.Currency); ok {
			deal.Region = r
		}
		res.Deals = append(res.Deals, deal)
	}

	for _, b := range groupBusinesses(res.Deals) {
		finalizeBusiness(b, asOf)
		if reason, drop := excluded(b); drop {
			res.Drops[reason]++
			continue
		}
		res.Businesses = append(res.Businesses, b)
	}

	return res
}

// firstCloseDates returns the minimum non-null close date per business id.
func firstCloseDates(lines []*domain.ContractLine) map[string]time.Time {
	first := make(map[string]time.Time)
	for _, l := range lines {
		if l.CloseDate.IsZero() {
			continue
		}
		cur, ok := first[l.BusinessID]
		if !ok || l.CloseDate.Before(cur) {
			first[l.BusinessID] = l.CloseDate
		}
	}
	return first
}

// classify compares by equality so every line sharing the minimum close date is a New Logo.
func classify(closeDate, firstClose time.Time) domain.DealType {
	if !closeDate.IsZero() && closeDate.Equal(firstClose) {
		return domain.DealTypeNewLogo
	}
	return domain.DealTypeRenewal
}

type businessKey struct {
	id       string
	name     string
	industry string
	region   domain.Region
}

// groupBusinesses aggregates deals in first-appearance order of their key.
func groupBusinesses(deals []*domain.Deal) []*domain.Business {
	index := make(map[businessKey]*domain.Business)
	var out []*domain.Business

	for _, d := range deals {
		k := businessKey{id: d.BusinessID, name: d.Name, industry: d.Industry, region: d.Region}
		b, ok := index[k]
		if !ok {
			b = &domain.Business{
				BusinessID: d.BusinessID,
				Name:       d.Name,
				Industry:   d.Industry,
				Region:     d.Region,
			}
			index[k] = b
			out = append(out, b)
		}

		b.TotalNetValue += d.NetValue
		b.FirstCloseDate = domain.EarliestDate(b.FirstCloseDate, d.CloseDate)
		if !d.InvertedTerm() {
			b.StartDate = domain.EarliestDate(b.StartDate, d.StartDate)
			b.EndDate = domain.LatestDate(b.EndDate, d.EndDate)
		}
	}
	return out
}

func finalizeBusiness(b *domain.Business, asOf time.Time) {
	if !b.StartDate.IsZero() && !b.EndDate.IsZero() {
		days := b.DurationDays()
		if days < MinDurationDays {
			days = MinDurationDays
		}
		b.AnnualizedValue = domain.Float(b.TotalNetValue / (float64(days) / 365))
	}
	b.IsActive = !b.EndDate.IsZero() && !b.EndDate.Before(asOf)
	if !b.FirstCloseDate.IsZero() {
		b.CloseYear = b.FirstCloseDate.Year()
	}
}

func excluded(b *domain.Business) (DropReason, bool) {
	switch {
	case b.Industry == "":
		return DropNullIndustry, true
	case b.FirstCloseDate.IsZero():
		return DropNullCloseDate, true
	case b.Region == "":
		return DropNullRegion, true
	}
	return "", false
}
