// Package pipeline wires the loader, normalizer, aggregator, and summaries
// into one deterministic run over the configured source files.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bizmetrics/internal/config"
	"bizmetrics/internal/domain"
	"bizmetrics/internal/idhash"
	"bizmetrics/internal/loader"
	"bizmetrics/internal/metrics"
	"bizmetrics/internal/normalization"
	"bizmetrics/internal/observability"
	"bizmetrics/internal/reporting"
)

// ACVSeries names the aggregated ACV table in outputs and storage.
const ACVSeries = "acv"

// Pipeline stages, used as metric labels.
const (
	stageLoad      = "load"
	stageNormalize = "normalize"
	stageAggregate = "aggregate"
	stageReport    = "report"
)

// Pipeline computes every derived table from the source exports.
type Pipeline struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *observability.Metrics
	reportGen *reporting.Generator
	clock     func() time.Time
}

// Result is the output of one run.
type Result struct {
	Snapshot      domain.Snapshot // SnapshotID is set once published
	ContractLines int
	Deals         []*domain.Deal
	Businesses    []*domain.Business
	Drops         map[normalization.DropReason]int
	ACV           *domain.MonthlyTable
	Features      []FeatureResult
	Report        *reporting.Report
}

// FeatureResult is one aggregated feature usage table.
type FeatureResult struct {
	Feature config.Feature
	Table   *domain.MonthlyTable
}

// New creates a pipeline. The logger and metrics may be nil.
func New(cfg *config.Config, logger *zap.Logger, m *observability.Metrics) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := func() time.Time { return time.Now().UTC() }
	return &Pipeline{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		reportGen: reporting.NewGenerator(reporting.Options{
			RecentDeals:   cfg.Report.RecentDeals,
			TopBusinesses: cfg.Report.TopBusinesses,
			ChangeYear:    cfg.Report.ChangeYear,
		}).WithClock(clock),
		clock: clock,
	}
}

// WithClock sets a custom clock function for deterministic output.
// The clock also supplies the as-of date when the config leaves it empty.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// Run loads every source and computes the result. Any failing source aborts
// the run with an error naming the file.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := p.clock()
	res, err := p.run(ctx)

	status := observability.StatusSuccess
	if err != nil {
		status = observability.StatusFailure
		p.logger.Error("pipeline run failed", zap.Error(err))
	}
	end := p.clock()
	p.metrics.RecordPipelineRun(status, end.Sub(start).Seconds(), end.Unix())
	return res, err
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	asOf, err := p.cfg.AsOfDate(p.clock())
	if err != nil {
		return nil, err
	}

	// 1. Contracts
	stage := p.clock()
	lines, err := loader.LoadContractLines(p.cfg.Path(p.cfg.Sources.Contracts))
	if err != nil {
		return nil, fmt.Errorf("load contracts: %w", err)
	}
	p.metrics.RecordRowsLoaded("contracts", len(lines))
	p.logger.Info("loaded contract lines",
		zap.String("file", p.cfg.Sources.Contracts),
		zap.Int("rows", len(lines)),
	)
	p.observe(stageLoad, stage)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Deals and businesses
	stage = p.clock()
	norm := normalization.Normalize(lines, normalization.Options{
		AsOf:    asOf,
		Regions: p.cfg.RegionLookup(),
	})
	drops := make(map[string]int, len(norm.Drops))
	for reason, n := range norm.Drops {
		drops[string(reason)] = n
	}
	p.metrics.RecordDrops(drops)
	p.logger.Info("normalized contracts",
		zap.Time("as_of", asOf),
		zap.Int("deals", len(norm.Deals)),
		zap.Int("businesses", len(norm.Businesses)),
		zap.Int("dropped_lines", norm.DroppedLines()),
		zap.Int("inverted_terms", norm.InvertedTerms),
		zap.Any("drops", drops),
	)
	p.observe(stageNormalize, stage)

	// 3. Time series
	stage = p.clock()
	acv, err := p.aggregate(ACVSeries, p.cfg.Sources.ACV, []string{p.cfg.Sources.ACVMeasure},
		p.cfg.Sources.ACVMeasure, p.cfg.AggregateOptions())
	if err != nil {
		return nil, err
	}
	p.metrics.SetLatestACV(metrics.Lookback(acv, p.cfg.Sources.ACVMeasure, 0).Value)

	features := make([]FeatureResult, 0, len(p.cfg.Features))
	for _, f := range p.cfg.Features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		opts := metrics.Options{}
		if f.Rollup != config.RollupDaily {
			opts.Derive = metrics.Monthly
		}
		table, err := p.aggregate(f.Name, f.File, f.Measures, "", opts)
		if err != nil {
			return nil, err
		}
		features = append(features, FeatureResult{Feature: f, Table: table})
	}
	p.observe(stageAggregate, stage)

	res := &Result{
		Snapshot: domain.Snapshot{
			AsOf:       asOf,
			Businesses: len(norm.Businesses),
			Deals:      len(norm.Deals),
		},
		ContractLines: len(lines),
		Deals:         norm.Deals,
		Businesses:    norm.Businesses,
		Drops:         norm.Drops,
		ACV:           acv,
		Features:      features,
	}

	// 4. Report
	stage = p.clock()
	report, err := p.reportGen.Generate(res.Input(p.cfg.Sources.ACVMeasure))
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	res.Report = report
	res.Snapshot.GeneratedAt = report.GeneratedAt
	p.observe(stageReport, stage)

	return res, nil
}

// aggregate loads one daily export and rolls it up.
func (p *Pipeline) aggregate(name, file string, measures []string, growth string, opts metrics.Options) (*domain.MonthlyTable, error) {
	series, err := loader.LoadSeries(name, p.cfg.Path(file), loader.Columns(measures...)...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	p.metrics.RecordRowsLoaded(name, len(series.Points))

	table, err := metrics.Aggregate(series, growth, opts)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", name, err)
	}
	p.logger.Debug("aggregated series",
		zap.String("series", name),
		zap.String("file", file),
		zap.Int("days", len(series.Points)),
		zap.Int("periods", len(table.Rows)),
	)
	return table, nil
}

func (p *Pipeline) observe(stage string, start time.Time) {
	p.metrics.RecordStage(stage, p.clock().Sub(start).Seconds())
}

// Input converts the result into report generator input.
func (r *Result) Input(acvMeasure string) *reporting.Input {
	in := &reporting.Input{
		AsOf:          r.Snapshot.AsOf,
		ContractLines: r.ContractLines,
		Deals:         r.Deals,
		Businesses:    r.Businesses,
		Drops:         make(map[string]int, len(r.Drops)),
		ACV:           r.ACV,
		ACVMeasure:    acvMeasure,
	}
	for reason, n := range r.Drops {
		in.Drops[string(reason)] = n
	}
	for _, f := range r.Features {
		in.Features = append(in.Features, reporting.FeatureInput{
			Name:    f.Feature.Name,
			Table:   f.Table,
			Measure: f.Feature.Measure,
			Recent:  f.Feature.Recent,
			Prior:   f.Feature.Prior,
		})
	}
	return in
}

// Tables returns the ACV table followed by the feature tables.
func (r *Result) Tables() []*domain.MonthlyTable {
	tables := make([]*domain.MonthlyTable, 0, 1+len(r.Features))
	if r.ACV != nil {
		tables = append(tables, r.ACV)
	}
	for _, f := range r.Features {
		tables = append(tables, f.Table)
	}
	return tables
}

// Content returns what publishing r stores, for content-derived snapshot IDs.
func (r *Result) Content() idhash.Content {
	return idhash.Content{
		AsOf:       r.Snapshot.AsOf,
		Deals:      r.Deals,
		Businesses: r.Businesses,
		Tables:     r.Tables(),
	}
}

// Feature returns the named feature table.
func (r *Result) Feature(name string) (*domain.MonthlyTable, bool) {
	for _, f := range r.Features {
		if f.Feature.Name == name {
			return f.Table, true
		}
	}
	return nil, false
}
