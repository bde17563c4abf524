// Package config loads the pipeline configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/metrics"
)

// EnvPrefix prefixes every environment override, e.g. BIZMETRICS_DATA_DIR.
const EnvPrefix = "BIZMETRICS"

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// Rollup granularities for feature tables.
const (
	RollupMonthly = "monthly"
	RollupDaily   = "daily"
)

// Config is the full pipeline configuration.
type Config struct {
	Environment string `yaml:"environment"` // "production" switches to JSON logs
	DataDir     string `yaml:"data_dir"`    // base directory for relative source paths
	OutputDir   string `yaml:"output_dir"`
	AsOf        string `yaml:"as_of"` // YYYY-MM-DD, empty means today

	HTTPAddr      string `yaml:"http_addr"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`

	Sources  Sources           `yaml:"sources"`
	Features []Feature         `yaml:"features"`
	Regions  map[string]string `yaml:"regions"` // currency → region, replaces the defaults when set
	Metrics  MetricsConfig     `yaml:"metrics"`
	Report   ReportConfig      `yaml:"report"`
}

// Sources names the contract and ACV exports.
type Sources struct {
	Contracts  string `yaml:"contracts"`
	ACV        string `yaml:"acv"`
	ACVMeasure string `yaml:"acv_measure"`
}

// Feature is one tracked feature usage export.
type Feature struct {
	Name     string   `yaml:"name"`
	File     string   `yaml:"file"`
	Measures []string `yaml:"measures"`
	Measure  string   `yaml:"measure"` // summarized measure, defaults to the first
	Rollup   string   `yaml:"rollup"`  // monthly (default) or daily
	Recent   int      `yaml:"recent"`  // adoption window rows, 0 disables
	Prior    int      `yaml:"prior"`
}

// MetricsConfig selects derived time-series columns.
type MetricsConfig struct {
	Window int      `yaml:"window"`
	Derive []string `yaml:"derive"` // any of monthly, mom, yoy, compound
}

// ReportConfig sizes report lists.
type ReportConfig struct {
	RecentDeals   int `yaml:"recent_deals"`
	TopBusinesses int `yaml:"top_businesses"`
	ChangeYear    int `yaml:"change_year"`
}

// Env holds the overrides read from the environment.
type Env struct {
	Environment   string `envconfig:"ENVIRONMENT"`
	DataDir       string `envconfig:"DATA_DIR"`
	OutputDir     string `envconfig:"OUTPUT_DIR"`
	AsOf          string `envconfig:"AS_OF"`
	HTTPAddr      string `envconfig:"HTTP_ADDR"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
	ClickHouseDSN string `envconfig:"CLICKHOUSE_DSN"`
}

// Default returns the configuration of the standard exports.
func Default() *Config {
	return &Config{
		Environment: "development",
		DataDir:     "data",
		OutputDir:   "output",
		HTTPAddr:    ":8080",
		Sources: Sources{
			Contracts:  "search_quotelines.csv",
			ACV:        "search_acv_by_date.csv",
			ACVMeasure: "ACTIVE_ACV",
		},
		Features: []Feature{
			{Name: "experience_training", File: "experience_training.csv", Measures: []string{"DAUS", "MAUS"}, Measure: "MAUS", Rollup: RollupMonthly, Recent: 6, Prior: 6},
			{Name: "search_merchandiser", File: "search_merchandiser.csv", Measures: []string{"DAUS", "MAUS"}, Measure: "MAUS", Rollup: RollupMonthly, Recent: 2, Prior: 12},
			{Name: "searchable_fields", File: "searchable_fields.csv", Measures: []string{
				"TEXT_SEARCH", "PHRASE_MATCH", "NLP_FILTER", "SEMANTIC_SEARCH",
				"DOCUMENT_SEARCH", "SORTABLE", "FACET", "STATICFILTER",
			}, Measure: "NLP_FILTER", Rollup: RollupDaily},
		},
		Metrics: MetricsConfig{
			Window: metrics.DefaultWindow,
			Derive: []string{"monthly", "mom", "yoy", "compound"},
		},
		Report: ReportConfig{RecentDeals: 20, TopBusinesses: 10},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment if it exists.
// Variables already set are left untouched.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from BIZMETRICS_* environment variables.
func (c *Config) ApplyEnv() error {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	override(&c.Environment, env.Environment)
	override(&c.DataDir, env.DataDir)
	override(&c.OutputDir, env.OutputDir)
	override(&c.AsOf, env.AsOf)
	override(&c.HTTPAddr, env.HTTPAddr)
	override(&c.PostgresDSN, env.PostgresDSN)
	override(&c.ClickHouseDSN, env.ClickHouseDSN)
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks required fields and fills per-feature defaults.
func (c *Config) Validate() error {
	if c.Sources.Contracts == "" || c.Sources.ACV == "" {
		return fmt.Errorf("%w: sources.contracts and sources.acv are required", ErrInvalid)
	}
	if c.Sources.ACVMeasure == "" {
		return fmt.Errorf("%w: sources.acv_measure is required", ErrInvalid)
	}
	if _, err := c.AsOfDate(time.Time{}); err != nil {
		return err
	}
	if _, err := c.Derivations(); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for i := range c.Features {
		f := &c.Features[i]
		if f.Name == "" || f.File == "" {
			return fmt.Errorf("%w: feature %d needs a name and a file", ErrInvalid, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate feature %q", ErrInvalid, f.Name)
		}
		seen[f.Name] = true
		if len(f.Measures) == 0 {
			return fmt.Errorf("%w: feature %q has no measures", ErrInvalid, f.Name)
		}
		if f.Measure == "" {
			f.Measure = f.Measures[0]
		}
		switch f.Rollup {
		case "":
			f.Rollup = RollupMonthly
		case RollupMonthly, RollupDaily:
		default:
			return fmt.Errorf("%w: feature %q rollup %q", ErrInvalid, f.Name, f.Rollup)
		}
		if f.Recent < 0 || f.Prior < 0 {
			return fmt.Errorf("%w: feature %q has a negative window", ErrInvalid, f.Name)
		}
	}
	return nil
}

// Path resolves a source file against DataDir.
func (c *Config) Path(file string) string {
	if filepath.IsAbs(file) || c.DataDir == "" {
		return file
	}
	return filepath.Join(c.DataDir, file)
}

// AsOfDate parses AsOf, falling back to today when it is empty.
func (c *Config) AsOfDate(today time.Time) (time.Time, error) {
	if c.AsOf == "" {
		return domain.TruncateDay(today), nil
	}
	t, err := time.Parse("2006-01-02", c.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: as_of %q: %v", ErrInvalid, c.AsOf, err)
	}
	return t, nil
}

// RegionLookup returns the configured currency mapping, or nil for the defaults.
func (c *Config) RegionLookup() domain.RegionLookup {
	if len(c.Regions) == 0 {
		return nil
	}
	l := make(domain.RegionLookup, len(c.Regions))
	for currency, region := range c.Regions {
		l[strings.ToUpper(currency)] = domain.Region(region)
	}
	return l
}

// Derivations parses the derive list into aggregator flags.
func (c *Config) Derivations() (metrics.Derivation, error) {
	var d metrics.Derivation
	for _, name := range c.Metrics.Derive {
		switch strings.ToLower(name) {
		case "monthly":
			d |= metrics.Monthly
		case "mom":
			d |= metrics.MoM
		case "yoy":
			d |= metrics.YoY
		case "compound":
			d |= metrics.Compound
		default:
			return 0, fmt.Errorf("%w: unknown derivation %q", ErrInvalid, name)
		}
	}
	return d, nil
}

// AggregateOptions returns the aggregator options for the ACV series.
func (c *Config) AggregateOptions() metrics.Options {
	d, _ := c.Derivations()
	return metrics.Options{Derive: d, Window: c.Metrics.Window}
}
