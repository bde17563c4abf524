// Package idhash derives deterministic identifiers from pipeline content.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"bizmetrics/internal/domain"
)

// Namespace scopes content-derived snapshot IDs.
var Namespace = uuid.MustParse("3f1c2a9e-5b7d-4c1e-9a60-2d8f4b7e1c05")

const dateLayout = "2006-01-02"

// Content is everything a snapshot publishes.
type Content struct {
	AsOf       time.Time
	Deals      []*domain.Deal
	Businesses []*domain.Business
	Tables     []*domain.MonthlyTable
}

// ComputeContentHash computes a deterministic SHA256 of the published content.
// Records are hashed in order, one per line, with a type prefix and quoted fields:
//
//	as_of|<date>
//	deal|business_id;name;industry;currency;net_value;tier;start;end;close;account_type;first_close;deal_type;region
//	business|business_id;name;industry;region;tcv;acv;first_close;start;end;is_active;close_year
//	point|series;period;date;measure;value;mom;yoy;cmgr;cagr
//
// Returns hex-encoded hash (64 characters).
func ComputeContentHash(c Content) string {
	h := sha256.New()
	fmt.Fprintf(h, "as_of|%s\n", formatDate(c.AsOf))
	for _, d := range c.Deals {
		writeRecord(h, "deal",
			d.BusinessID, d.Name, d.Industry, d.Currency, formatFloat(d.NetValue), d.Tier,
			formatDate(d.StartDate), formatDate(d.EndDate), formatDate(d.CloseDate), d.AccountType,
			formatDate(d.FirstCloseDate), string(d.DealType), string(d.Region),
		)
	}
	for _, b := range c.Businesses {
		writeRecord(h, "business",
			b.BusinessID, b.Name, b.Industry, string(b.Region),
			formatFloat(b.TotalNetValue), formatOptional(b.AnnualizedValue),
			formatDate(b.FirstCloseDate), formatDate(b.StartDate), formatDate(b.EndDate),
			strconv.FormatBool(b.IsActive), strconv.Itoa(b.CloseYear),
		)
	}
	for _, t := range c.Tables {
		if t == nil {
			continue
		}
		for _, p := range t.Points("") {
			writeRecord(h, "point",
				p.Series, p.Period, formatDate(p.Date), p.Measure, formatOptional(p.Value),
				formatOptional(p.MoM), formatOptional(p.YoY), formatOptional(p.CMGR), formatOptional(p.CAGR),
			)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotID returns a name-based UUID of the content hash, so publishing
// the same content always resolves to the same snapshot ID.
func SnapshotID(c Content) string {
	return uuid.NewSHA1(Namespace, []byte(ComputeContentHash(c))).String()
}

// writeRecord writes one record line with every field Go-quoted.
func writeRecord(w io.Writer, kind string, fields ...string) {
	io.WriteString(w, kind)
	for i, f := range fields {
		sep := ";"
		if i == 0 {
			sep = "|"
		}
		io.WriteString(w, sep+strconv.Quote(f))
	}
	io.WriteString(w, "\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
