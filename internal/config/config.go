package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Dataset  DatasetConfig  `yaml:"dataset" mapstructure:"dataset"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the evaluation tree (<base>/<person>/<year>/<file>).
type DataConfig struct {
	BasePath string `yaml:"base_path" mapstructure:"base_path"`
	FileName string `yaml:"file_name" mapstructure:"file_name"`
}

// ScoringConfig selects the frequency category scheme.
// A named Scheme is used unless Labels and Weights are both set.
type ScoringConfig struct {
	Scheme                string             `yaml:"scheme" mapstructure:"scheme"`
	VectorLength          int                `yaml:"vector_length" mapstructure:"vector_length"`
	Labels                []string           `yaml:"labels" mapstructure:"labels"`
	Weights               []float64          `yaml:"weights" mapstructure:"weights"`
	OverallStakeholderKey string             `yaml:"overall_stakeholder_key" mapstructure:"overall_stakeholder_key"`
	SkipEmpty             bool               `yaml:"skip_empty" mapstructure:"skip_empty"`
	StakeholderWeights    map[string]float64 `yaml:"stakeholder_weights" mapstructure:"stakeholder_weights"`
}

// Threshold is one row of an ordered classification table.
// A value matches when it is strictly greater than Above (or equal to it
// when Inclusive is set); the last row of a table is the catch-all and its
// bound is ignored.
type Threshold struct {
	Label     string  `yaml:"label" mapstructure:"label"`
	Above     float64 `yaml:"above" mapstructure:"above"`
	Inclusive bool    `yaml:"inclusive" mapstructure:"inclusive"`
}

// AnalysisConfig holds the threshold tables used by trend and gap analysis.
type AnalysisConfig struct {
	TrendThresholds       []Threshold `yaml:"trend_thresholds" mapstructure:"trend_thresholds"`
	PerformanceThresholds []Threshold `yaml:"performance_thresholds" mapstructure:"performance_thresholds"`
	PercentileBands       []Threshold `yaml:"percentile_bands" mapstructure:"percentile_bands"`
	TopBehaviors          int         `yaml:"top_behaviors" mapstructure:"top_behaviors"`
}

// DatasetConfig configures loading of the evaluation tree.
type DatasetConfig struct {
	StrictSchema bool `yaml:"strict_schema" mapstructure:"strict_schema"`
}

// BatchConfig configures file-level parallelism.
type BatchConfig struct {
	MaxConcurrentFiles int `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`

	// RetryAttempts bounds attempts per write on transient database errors.
	RetryAttempts int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port              int      `yaml:"port" mapstructure:"port"`
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	AllowedOrigins    []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ReportConfig configures report output.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultTrendThresholds classifies a year-over-year score change.
func DefaultTrendThresholds() []Threshold {
	return []Threshold{
		{Label: "significant_up", Above: 0.3},
		{Label: "up", Above: 0.1},
		{Label: "stable", Above: -0.1},
		{Label: "down", Above: -0.3},
		{Label: "significant_down"},
	}
}

// DefaultPerformanceThresholds classifies a score minus its group score.
func DefaultPerformanceThresholds() []Threshold {
	return []Threshold{
		{Label: "very_high", Above: 0.5},
		{Label: "high", Above: 0.2},
		{Label: "average", Above: -0.2},
		{Label: "low", Above: -0.5},
		{Label: "very_low"},
	}
}

// DefaultPercentileBands maps a ranking percentile to a career band.
func DefaultPercentileBands() []Threshold {
	return []Threshold{
		{Label: "high", Above: 75, Inclusive: true},
		{Label: "medium", Above: 50, Inclusive: true},
		{Label: "low"},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PEOPLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.base_path", ".")
	v.SetDefault("data.file_name", "resultado.json")
	v.SetDefault("scoring.scheme", "descending6")
	v.SetDefault("scoring.vector_length", 0)
	v.SetDefault("scoring.overall_stakeholder_key", "%todos")
	v.SetDefault("scoring.skip_empty", false)
	v.SetDefault("analysis.trend_thresholds", thresholdDefaults(DefaultTrendThresholds()))
	v.SetDefault("analysis.performance_thresholds", thresholdDefaults(DefaultPerformanceThresholds()))
	v.SetDefault("analysis.percentile_bands", thresholdDefaults(DefaultPercentileBands()))
	v.SetDefault("analysis.top_behaviors", 3)
	v.SetDefault("dataset.strict_schema", true)
	v.SetDefault("batch.max_concurrent_files", 8)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "people-analytics.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.retry_attempts", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.requests_per_second", 20)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// thresholdDefaults converts a table into the generic shape viper stores
// so that mapstructure decodes defaults and file values the same way.
func thresholdDefaults(ts []Threshold) []map[string]any {
	out := make([]map[string]any, len(ts))
	for i, t := range ts {
		out[i] = map[string]any{"label": t.Label, "above": t.Above, "inclusive": t.Inclusive}
	}
	return out
}

// Validate checks the configuration for internally inconsistent values.
// Scheme resolution is validated by the scoring package.
func (c *Config) Validate() error {
	var errs []string

	if c.Data.FileName == "" {
		errs = append(errs, "data.file_name is required")
	}
	if c.Scoring.OverallStakeholderKey == "" {
		errs = append(errs, "scoring.overall_stakeholder_key is required")
	}
	if n := c.Scoring.VectorLength; n != 0 && n != 5 && n != 6 {
		errs = append(errs, fmt.Sprintf("scoring.vector_length must be 5 or 6 (got %d)", n))
	}
	for name, w := range c.Scoring.StakeholderWeights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("scoring.stakeholder_weights.%s must be >= 0", name))
		}
	}

	for name, table := range map[string][]Threshold{
		"analysis.trend_thresholds":       c.Analysis.TrendThresholds,
		"analysis.performance_thresholds": c.Analysis.PerformanceThresholds,
		"analysis.percentile_bands":       c.Analysis.PercentileBands,
	} {
		if err := ValidateThresholds(table); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if c.Analysis.TopBehaviors < 1 {
		errs = append(errs, "analysis.top_behaviors must be >= 1")
	}

	if c.Batch.MaxConcurrentFiles < 1 {
		errs = append(errs, "batch.max_concurrent_files must be >= 1")
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres (got %q)", c.Store.Driver))
	}

	if c.Store.RetryAttempts < 1 {
		errs = append(errs, "store.retry_attempts must be >= 1")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Server.RequestsPerSecond < 0 {
		errs = append(errs, "server.requests_per_second must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ValidateThresholds checks that a table is non-empty, labelled, and
// ordered strictly descending (the catch-all last row excluded).
func ValidateThresholds(ts []Threshold) error {
	if len(ts) == 0 {
		return eris.New("table is empty")
	}
	for i, t := range ts {
		if t.Label == "" {
			return eris.Errorf("row %d has no label", i)
		}
		if i > 0 && i < len(ts)-1 && t.Above >= ts[i-1].Above {
			return eris.Errorf("row %d (%s) must be below row %d (%s)", i, t.Label, i-1, ts[i-1].Label)
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Classify returns the label of the first row of an ordered threshold table
// that v satisfies. The last row matches everything.
func Classify(ts []Threshold, v float64) string {
	for i, t := range ts {
		if i == len(ts)-1 || v > t.Above || (t.Inclusive && v == t.Above) {
			return t.Label
		}
	}
	return ""
}
