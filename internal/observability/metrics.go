// Package observability exposes pipeline and API counters to Prometheus.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "bizmetrics"

// Pipeline run statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics is the set of collectors shared by the CLI and the API server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Sources
	RowsLoaded  *prometheus.CounterVec
	RowsDropped *prometheus.CounterVec

	// Runs
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram
	StageDuration     *prometheus.HistogramVec
	ReportsGenerated  prometheus.Counter
	LatestACV         prometheus.Gauge

	// Publishing
	SnapshotsPublished *prometheus.CounterVec
	DBQueryDuration    *prometheus.HistogramVec
	DBQueryErrors      *prometheus.CounterVec

	// API
	HTTPRequests *prometheus.CounterVec

	// Freshness
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	ns := namespace
	if ns == "" {
		ns = defaultNamespace
	}
	factory := promauto.With(reg)
	counter := func(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: subsystem, Name: name, Help: help,
		}, labels)
	}
	gauge := func(subsystem, name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: subsystem, Name: name, Help: help,
		})
	}
	seconds := func(subsystem, name, help string, labels ...string) *prometheus.HistogramVec {
		return factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: subsystem, Name: name, Help: help,
			Buckets: prometheus.DefBuckets,
		}, labels)
	}

	return &Metrics{
		RowsLoaded:  counter("source", "rows_loaded_total", "Rows read from each source file", "source"),
		RowsDropped: counter("source", "rows_dropped_total", "Contract lines excluded from deals, by reason", "reason"),

		PipelineRunsTotal: counter("pipeline", "runs_total", "Pipeline runs by outcome", "status"),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "pipeline", Name: "duration_seconds",
			Help:    "Wall time of a full pipeline run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		StageDuration: seconds("pipeline", "stage_duration_seconds", "Wall time of each pipeline stage", "stage"),
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "pipeline", Name: "reports_generated_total",
			Help: "Output directories written by the report command",
		}),
		LatestACV: gauge("business", "latest_acv_usd", "Active contract value of the latest month"),

		SnapshotsPublished: counter("publish", "snapshots_total", "Snapshots published, by backend", "backend"),
		DBQueryDuration:    seconds("database", "query_duration_seconds", "Latency of snapshot store writes", "database", "operation"),
		DBQueryErrors:      counter("database", "query_errors_total", "Failed snapshot store writes", "database", "operation"),

		HTTPRequests: counter("api", "requests_total", "API requests by route and status code", "route", "code"),

		LastSuccessfulPipeline: gauge("health", "last_successful_pipeline_timestamp", "Unix time the last successful pipeline run finished"),
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordRowsLoaded adds n rows read from a source.
func (m *Metrics) RecordRowsLoaded(source string, n int) {
	if m == nil {
		return
	}
	m.RowsLoaded.WithLabelValues(source).Add(float64(n))
}

// RecordDrops adds excluded row counts per reason.
func (m *Metrics) RecordDrops(drops map[string]int) {
	if m == nil {
		return
	}
	for reason, n := range drops {
		m.RowsDropped.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordPipelineRun counts a finished run. Only successes move the freshness gauge.
func (m *Metrics) RecordPipelineRun(status string, durationSeconds float64, finishedUnix int64) {
	if m == nil {
		return
	}
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
	m.PipelineDuration.Observe(durationSeconds)
	if status == StatusSuccess {
		m.LastSuccessfulPipeline.Set(float64(finishedUnix))
	}
}

// SetLatestACV updates the latest ACV gauge.
func (m *Metrics) SetLatestACV(v float64) {
	if m == nil {
		return
	}
	m.LatestACV.Set(v)
}

// RecordReport increments the reports counter.
func (m *Metrics) RecordReport() {
	if m == nil {
		return
	}
	m.ReportsGenerated.Inc()
}

// RecordSnapshot increments the published snapshots counter.
func (m *Metrics) RecordSnapshot(backend string) {
	if m == nil {
		return
	}
	m.SnapshotsPublished.WithLabelValues(backend).Inc()
}

// RecordDBQuery observes one store write and counts it as failed when err is set.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordRequest counts one API request.
func (m *Metrics) RecordRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
