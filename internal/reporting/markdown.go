package reporting

import (
	"fmt"
	"strings"
	"time"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/summary"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# State of the Business\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s | As of: %s\n\n",
		r.GeneratedAt.Format(time.RFC3339), r.AsOf.Format("2006-01-02")))

	renderOverview(&sb, &r.Overview)
	renderCustomers(&sb, &r.Customers)
	renderDeals(&sb, &r.Deals)
	renderFeatures(&sb, r.Features)
	renderDataQuality(&sb, &r.DataQuality)

	return sb.String()
}

func renderOverview(sb *strings.Builder, o *Overview) {
	sb.WriteString("## Overview\n\n")
	if o.LatestPeriod == "" {
		sb.WriteString("No ACV data.\n\n")
		return
	}

	sb.WriteString(fmt.Sprintf("As of %s, annual contract value (ACV) is **%s**.\n",
		FormatPeriod(o.LatestPeriod), FormatMeasure(o.LatestACV, Millions)))
	sb.WriteString(fmt.Sprintf("This compares to %s a month earlier (%s MoM) and %s a year earlier (%s YoY).\n\n",
		FormatMeasure(o.PreviousACV, Millions), FormatRate(o.MoM),
		FormatMeasure(o.YearAgoACV, Millions), FormatRate(o.YoY)))
	sb.WriteString(fmt.Sprintf("Total contract value (TCV) since inception: **%s**.\n\n", FormatUSD(o.TotalTCV, Millions)))
	sb.WriteString(fmt.Sprintf("Over the trailing window ACV grew at a CMGR of %s and a CAGR of %s.\n\n",
		FormatRate(o.CMGR), FormatRate(o.CAGR)))
	sb.WriteString(fmt.Sprintf("TCV closed in %s: %s, compared to %s in %s and %s in %s.\n\n",
		FormatPeriod(o.LastMonth), FormatUSD(o.ClosedLastMonth, Millions),
		FormatUSD(o.ClosedPreviousMonth, Millions), FormatPeriod(o.PreviousMonth),
		FormatUSD(o.ClosedYearAgo, Millions), FormatPeriod(o.YearAgoMonth)))

	if len(o.Trailing) > 0 {
		sb.WriteString("### Trailing Months\n\n")
		sb.WriteString("| Month | ACV | CMGR | CAGR |\n")
		sb.WriteString("|-------|-----|------|------|\n")
		for _, row := range o.Trailing {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				row.Period, FormatMeasure(row.ACV, Millions), FormatRate(row.CMGR), FormatRate(row.CAGR)))
		}
		sb.WriteString("\n")
	}
}

func renderCustomers(sb *strings.Builder, c *CustomerSummary) {
	sb.WriteString("## Customer Summary\n\n")
	sb.WriteString(fmt.Sprintf("Customer retention is %s (%d of %d customers are active).\n\n",
		FormatPercentage(c.Retention.Rate), c.Retention.Active, c.Retention.Total))

	renderGroups(sb, "Industry", c.Industries)
	renderGroups(sb, "Active Industry", c.ActiveByIndustry)
	renderGroups(sb, "Sign-up Year", c.CloseYears)
	renderGroups(sb, "Region", c.Regions)

	if c.ChangeYear > 0 {
		renderChanges(sb, fmt.Sprintf("Change in TCV by Industry (%d)", c.ChangeYear), c.IndustryChange)
		renderChanges(sb, fmt.Sprintf("Change in TCV by Region (%d)", c.ChangeYear), c.RegionChange)
	}
}

func renderGroups(sb *strings.Builder, title string, groups []summary.Group) {
	sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	if len(groups) == 0 {
		sb.WriteString("No businesses.\n\n")
		return
	}
	sb.WriteString("| Key | Customers | Active | TCV | ACV | Retention | Share |\n")
	sb.WriteString("|-----|-----------|--------|-----|-----|-----------|-------|\n")
	for _, g := range groups {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %s | %s | %s |\n",
			g.Key, g.Count, g.ActiveCount,
			FormatUSD(g.TotalNetValue, Millions), FormatUSD(g.TotalAnnualized, Millions),
			FormatPercentage(g.Retention), FormatRate(g.Share)))
	}
	sb.WriteString("\n")
}

func renderChanges(sb *strings.Builder, title string, rows []summary.YearChange) {
	sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	if len(rows) == 0 {
		sb.WriteString("No bookings.\n\n")
		return
	}
	sb.WriteString("| Key | TCV | Cumulative TCV | YoY Change |\n")
	sb.WriteString("|-----|-----|----------------|------------|\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			r.Key, FormatUSD(r.NetValue, Millions), FormatUSD(r.Cumulative, Millions), FormatRate(r.Change)))
	}
	sb.WriteString("\n")
}

func renderDeals(sb *strings.Builder, d *DealsSection) {
	sb.WriteString("## Deals\n\n")
	renderDealList(sb, "Recent New Logo Deals", d.RecentNewLogos)
	renderDealList(sb, "Recent Renewal Deals", d.RecentRenewals)

	sb.WriteString("### All Time Biggest Businesses\n\n")
	if len(d.TopBusinesses) == 0 {
		sb.WriteString("No deals.\n\n")
		return
	}
	sb.WriteString("| Business | TCV | Tier | Term | Closed |\n")
	sb.WriteString("|----------|-----|------|------|--------|\n")
	for _, b := range d.TopBusinesses {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s to %s | %s |\n",
			b.Name, FormatUSD(b.TotalNetValue, Dollars), tierLabel(b.Tier),
			FormatMonthYear(b.StartDate), FormatMonthYear(b.EndDate), FormatMonthYear(b.CloseDate)))
	}
	sb.WriteString("\n")
}

func renderDealList(sb *strings.Builder, title string, deals []*domain.Deal) {
	sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	if len(deals) == 0 {
		sb.WriteString("No deals.\n\n")
		return
	}
	sb.WriteString("| Business | TCV | Tier | Term | Closed |\n")
	sb.WriteString("|----------|-----|------|------|--------|\n")
	for _, d := range deals {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s to %s | %s |\n",
			d.Name, FormatUSD(d.NetValue, Dollars), tierLabel(d.Tier),
			FormatMonthYear(d.StartDate), FormatMonthYear(d.EndDate), FormatMonthYear(d.CloseDate)))
	}
	sb.WriteString("\n")
}

func renderFeatures(sb *strings.Builder, features []FeatureAdoption) {
	if len(features) == 0 {
		return
	}
	sb.WriteString("## Feature Adoption\n\n")
	sb.WriteString("| Feature | Measure | Latest | Recent Avg | Prior Avg | Growth |\n")
	sb.WriteString("|---------|---------|--------|------------|-----------|--------|\n")
	for _, f := range features {
		latest := "n/a"
		if f.Latest.Valid {
			latest = printer.Sprintf("%d", int64(f.Latest.Value))
		}
		recent, prior, growth := "-", "-", "-"
		if f.Adoption != nil {
			recent = printer.Sprintf("%d", f.Adoption.Recent)
			prior = printer.Sprintf("%d", f.Adoption.Prior)
			growth = "n/a"
			if f.Adoption.GrowthPct != nil {
				growth = fmt.Sprintf("%.2f%%", *f.Adoption.GrowthPct)
			}
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			f.Name, f.Measure, latest, recent, prior, growth))
	}
	sb.WriteString("\n")
}

func renderDataQuality(sb *strings.Builder, dq *DataQuality) {
	sb.WriteString("## Data Quality\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Contract Lines | %d |\n", dq.ContractLines))
	sb.WriteString(fmt.Sprintf("| Deals | %d |\n", dq.Deals))
	sb.WriteString(fmt.Sprintf("| Businesses | %d |\n", dq.Businesses))
	for _, d := range dq.Drops {
		sb.WriteString(fmt.Sprintf("| Dropped: %s | %d |\n", d.Reason, d.Count))
	}
	sb.WriteString("\n")
}

// tierLabel names add-on lines that carry no tier.
func tierLabel(tier string) string {
	if tier == "" {
		return "Add-on"
	}
	return tier
}
