package reporting

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"bizmetrics/internal/domain"
)

// Unit is the scale a currency amount is shown in.
type Unit string

const (
	Millions  Unit = "M"
	Thousands Unit = "K"
	Dollars   Unit = ""
)

var printer = message.NewPrinter(language.English)

// FormatUSD renders a dollar amount: $1.2M, $1.2K, or $1,234.
// Non-finite amounts render as "n/a".
func FormatUSD(v float64, unit Unit) string {
	if !finite(v) {
		return "n/a"
	}
	d := decimal.NewFromFloat(v)
	switch unit {
	case Millions:
		return "$" + groupFixed(d.Shift(-6), 1) + "M"
	case Thousands:
		return "$" + groupFixed(d.Shift(-3), 1) + "K"
	}
	return "$" + groupFixed(d, 0)
}

// FormatMeasure renders a nullable amount in millions, "n/a" when null.
func FormatMeasure(m domain.Measure, unit Unit) string {
	if !m.Valid {
		return "n/a"
	}
	return FormatUSD(m.Value, unit)
}

// FormatPercentage renders a fraction as a percentage with one decimal (0.123 -> 12.3%).
func FormatPercentage(v float64) string {
	if !finite(v) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).Shift(2).StringFixed(1) + "%"
}

// FormatRate is FormatPercentage for an optional rate, "n/a" when undefined.
func FormatRate(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return FormatPercentage(*v)
}

// FormatMonthYear renders a date as "January, 2023".
func FormatMonthYear(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.Format("January, 2006")
}

// FormatPeriod renders a YYYY-MM period as "January, 2023".
func FormatPeriod(period string) string {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return period
	}
	return FormatMonthYear(t)
}

// groupFixed rounds half away from zero and groups the integer digits.
func groupFixed(d decimal.Decimal, places int32) string {
	r := d.Round(places)
	sign := ""
	if r.IsNegative() {
		sign = "-"
		r = r.Abs()
	}
	whole := r.Truncate(0)
	frac := r.Sub(whole).StringFixed(places)[1:] // drop the leading 0
	return sign + printer.Sprintf("%d", whole.IntPart()) + frac
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
