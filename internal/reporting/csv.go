package reporting

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/summary"
)

// WriteBusinessesCSV writes the business table.
func WriteBusinessesCSV(w io.Writer, businesses []*domain.Business) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"business_id", "name", "industry", "region", "total_net_value", "first_close_date",
		"start_date", "end_date", "annualized_value", "is_active", "close_year",
	})
	for _, b := range businesses {
		_ = cw.Write([]string{
			b.BusinessID,
			b.Name,
			b.Industry,
			string(b.Region),
			formatFloat(b.TotalNetValue),
			formatDate(b.FirstCloseDate),
			formatDate(b.StartDate),
			formatDate(b.EndDate),
			formatOptional(b.AnnualizedValue),
			strconv.FormatBool(b.IsActive),
			strconv.Itoa(b.CloseYear),
		})
	}
	cw.Flush()
	return cw.Error()
}

// WriteDealsCSV writes the classified contract lines.
func WriteDealsCSV(w io.Writer, deals []*domain.Deal) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"business_id", "name", "industry", "currency", "region", "net_value", "tier",
		"start_date", "end_date", "close_date", "first_close_date", "deal_type", "account_type",
	})
	for _, d := range deals {
		_ = cw.Write([]string{
			d.BusinessID,
			d.Name,
			d.Industry,
			d.Currency,
			string(d.Region),
			formatFloat(d.NetValue),
			d.Tier,
			formatDate(d.StartDate),
			formatDate(d.EndDate),
			formatDate(d.CloseDate),
			formatDate(d.FirstCloseDate),
			string(d.DealType),
			d.AccountType,
		})
	}
	cw.Flush()
	return cw.Error()
}

// WriteMonthlyCSV writes an aggregated table. Growth columns are present
// only when the table carries them.
func WriteMonthlyCSV(w io.Writer, t *domain.MonthlyTable) error {
	cw := csv.NewWriter(w)
	header := append([]string{"period", "date"}, t.Measures...)
	if t.GrowthMeasure != "" {
		header = append(header, "mom_growth", "yoy_growth", "cmgr", "cagr")
	}
	_ = cw.Write(header)

	for _, r := range t.Rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, r.Period, formatDate(r.Date))
		for _, v := range r.Values {
			rec = append(rec, formatMeasure(v))
		}
		if t.GrowthMeasure != "" {
			rec = append(rec, formatOptional(r.MoM), formatOptional(r.YoY), formatOptional(r.CMGR), formatOptional(r.CAGR))
		}
		_ = cw.Write(rec)
	}
	cw.Flush()
	return cw.Error()
}

// WriteGroupsCSV writes a grouped summary.
func WriteGroupsCSV(w io.Writer, groups []summary.Group) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"key", "count", "active_count", "total_net_value", "total_annualized_value", "retention", "share",
	})
	for _, g := range groups {
		_ = cw.Write([]string{
			g.Key,
			strconv.Itoa(g.Count),
			strconv.Itoa(g.ActiveCount),
			formatFloat(g.TotalNetValue),
			formatFloat(g.TotalAnnualized),
			formatFloat(g.Retention),
			formatOptional(g.Share),
		})
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatOptional renders nil as an empty cell.
func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatMeasure(m domain.Measure) string {
	if !m.Valid {
		return ""
	}
	return formatFloat(m.Value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
