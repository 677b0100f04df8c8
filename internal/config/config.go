// Package config defines all configuration for the backtest engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// fields overridable via BT_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML
// file structure.
type Config struct {
	InitialEquity float64         `mapstructure:"initial_equity"`
	Inputs        []InputConfig   `mapstructure:"inputs"`
	Output        OutputConfig    `mapstructure:"output"`
	Logging       LoggingConfig   `mapstructure:"logging"`
	Dashboard     DashboardConfig `mapstructure:"dashboard"`
}

// InputConfig binds one bar stream to a symbol.
//
//   - Symbol: the instrument the stream's bars are recorded under.
//   - Format: "intraday" (YYYYMMDD-HHMMSS,SYMBOL,o,h,l,c) or "daily"
//     (YYYY-MM-DD,o,h,l,c,volume,adj_close).
//   - Path: local file to read, mutually exclusive with URL.
//   - URL: one-shot HTTP GET to fetch the series from, mutually
//     exclusive with Path.
type InputConfig struct {
	Symbol string `mapstructure:"symbol"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
	URL    string `mapstructure:"url"`
}

// OutputConfig controls where run artifacts are written.
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	EquityCurve string `mapstructure:"equity_curve"`
	Precision   int32  `mapstructure:"precision"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the live progress dashboard.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides, prefixed
// BT_ (e.g. BT_OUTPUT_DIR overrides output.dir).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("initial_equity", 100000)
	v.SetDefault("output.dir", "./results")
	v.SetDefault("output.equity_curve", "equity.csv")
	v.SetDefault("output.precision", 6)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("dashboard.port", 8080)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.InitialEquity <= 0 {
		return fmt.Errorf("config: initial_equity must be > 0")
	}
	if len(c.Inputs) == 0 {
		return fmt.Errorf("config: at least one input is required")
	}
	for i, in := range c.Inputs {
		if in.Symbol == "" {
			return fmt.Errorf("config: inputs[%d].symbol is required", i)
		}
		switch in.Format {
		case "intraday", "daily":
		default:
			return fmt.Errorf("config: inputs[%d].format must be intraday or daily, got %q", i, in.Format)
		}
		if in.Path == "" && in.URL == "" {
			return fmt.Errorf("config: inputs[%d]: one of path or url is required", i)
		}
		if in.Path != "" && in.URL != "" {
			return fmt.Errorf("config: inputs[%d]: path and url are mutually exclusive", i)
		}
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("config: output.dir is required")
	}
	if c.Output.Precision <= 0 {
		return fmt.Errorf("config: output.precision must be > 0")
	}
	if c.Dashboard.Enabled && (c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535) {
		return fmt.Errorf("config: dashboard.port must be in 1..65535")
	}
	return nil
}
