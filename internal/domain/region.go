package domain

// Region is the sales geography a booking currency maps to.
type Region string

const (
	RegionNA    Region = "NA"
	RegionEMEA  Region = "EMEA"
	RegionJapan Region = "Japan"
	RegionANZ   Region = "ANZ"
)

// DefaultRegions is the fixed currency → region lookup.
var DefaultRegions = map[string]Region{
	"USD": RegionNA,
	"CAD": RegionNA,
	"EUR": RegionEMEA,
	"GBP": RegionEMEA,
	"JPY": RegionJapan,
	"AUD": RegionANZ,
}

// RegionLookup maps currency codes to regions.
type RegionLookup map[string]Region

// Resolve returns the region for a currency. The second result is false
// when the currency is not in the lookup.
func (l RegionLookup) Resolve(currency string) (Region, bool) {
	r, ok := l[currency]
	if !ok || r == "" {
		return "", false
	}
	return r, true
}
