package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TRUSTPROP_GENERATION.
const EnvPrefix = "TRUSTPROP"

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("config: invalid value")

// AnalysisConfig holds the classification thresholds for `trustprop analyze`.
type AnalysisConfig struct {
	AvgThreshold    float64 `mapstructure:"avg_threshold"`
	StdDevThreshold float64 `mapstructure:"stddev_threshold"`
}

// Config holds all runtime configuration for a trustprop run.
// Values are populated from .trustprop.yaml, TRUSTPROP_* env vars, and CLI flags.
type Config struct {
	Input         string         `mapstructure:"input"`
	Output        string         `mapstructure:"output"`
	Generation    int            `mapstructure:"generation"`
	Format        string         `mapstructure:"format"`
	Workers       int            `mapstructure:"workers"`
	Frontier      string         `mapstructure:"frontier"`
	TelemetryPath string         `mapstructure:"telemetry_path"`
	MetricsPath   string         `mapstructure:"metrics_path"`
	ChartsDir     string         `mapstructure:"charts_dir"`
	Verbose       bool           `mapstructure:"verbose"`
	Analysis      AnalysisConfig `mapstructure:"analysis"`
}

// BindEnv maps TRUSTPROP_* environment variables onto config keys. Nested
// keys use underscores: analysis.avg_threshold is TRUSTPROP_ANALYSIS_AVG_THRESHOLD.
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("input", "soc-sign-bitcoinotc.csv")
	viper.SetDefault("output", "trust_scores.csv")
	viper.SetDefault("generation", 3)
	viper.SetDefault("format", "csv")
	viper.SetDefault("workers", 0)
	viper.SetDefault("frontier", "btree")
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("metrics_path", "")
	viper.SetDefault("charts_dir", ".")
	viper.SetDefault("verbose", false)
	viper.SetDefault("analysis.avg_threshold", 6.0)
	viper.SetDefault("analysis.stddev_threshold", 2.2)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations. Format and frontier names are
// checked again, with their own errors, by the packages that consume them.
func (c Config) Validate() error {
	if c.Generation < 1 || c.Generation > 3 {
		return fmt.Errorf("%w: generation %d (want 1..3)", ErrInvalidConfig, c.Generation)
	}
	switch c.Format {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("%w: format %q (want csv or sqlite)", ErrInvalidConfig, c.Format)
	}
	switch c.Frontier {
	case "btree", "heap":
	default:
		return fmt.Errorf("%w: frontier %q (want btree or heap)", ErrInvalidConfig, c.Frontier)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	}
	for name, v := range map[string]float64{
		"analysis.avg_threshold":    c.Analysis.AvgThreshold,
		"analysis.stddev_threshold": c.Analysis.StdDevThreshold,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidConfig, name)
		}
	}
	return nil
}
