package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"bizmetrics/internal/reporting"
	"bizmetrics/internal/summary"
)

// Output file names.
const (
	ReportFile     = "REPORT.md"
	BusinessesFile = "businesses.csv"
	DealsFile      = "deals.csv"
	MonthlyACVFile = "monthly_acv.csv"
)

// FeatureFile returns the output file name of a feature table.
func FeatureFile(name string) string {
	return "feature_" + name + ".csv"
}

// GroupsFile returns the output file name of a business grouping.
func GroupsFile(dim summary.Dimension) string {
	return "groups_" + string(dim) + ".csv"
}

type outputFile struct {
	name  string
	write func(io.Writer) error
}

// WriteOutputs writes the report and every table of r into dir.
func (p *Pipeline) WriteOutputs(r *Result, dir string) error {
	if r.Report == nil {
		return fmt.Errorf("write outputs: result has no report")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := []outputFile{
		{ReportFile, func(w io.Writer) error {
			_, err := io.WriteString(w, reporting.RenderMarkdown(r.Report))
			return err
		}},
		{BusinessesFile, func(w io.Writer) error { return reporting.WriteBusinessesCSV(w, r.Businesses) }},
		{DealsFile, func(w io.Writer) error { return reporting.WriteDealsCSV(w, r.Deals) }},
		{MonthlyACVFile, func(w io.Writer) error { return reporting.WriteMonthlyCSV(w, r.ACV) }},
	}
	for _, f := range r.Features {
		table := f.Table
		files = append(files, outputFile{FeatureFile(f.Feature.Name), func(w io.Writer) error { return reporting.WriteMonthlyCSV(w, table) }})
	}
	for _, dim := range summary.Dimensions {
		groups := summary.GroupBy(r.Businesses, dim)
		files = append(files, outputFile{GroupsFile(dim), func(w io.Writer) error { return reporting.WriteGroupsCSV(w, groups) }})
	}

	for _, f := range files {
		if err := writeFile(filepath.Join(dir, f.name), f.write); err != nil {
			return err
		}
	}

	p.metrics.RecordReport()
	p.logger.Info("wrote outputs", zap.String("dir", dir), zap.Int("files", len(files)))
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
