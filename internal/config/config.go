// Package config loads the application configuration from YAML and applies
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ganymede/internal/strategy"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for ganymede.
type Config struct {
	Storage     Storage     `yaml:"storage"`
	Alpaca      Alpaca      `yaml:"alpaca"`
	Logging     Logging     `yaml:"logging"`
	Gather      Gather      `yaml:"gather"`
	Backtest    Backtest    `yaml:"backtest"`
	WalkForward WalkForward `yaml:"walkforward"`
	Strategies  []Strategy  `yaml:"strategies"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Gather holds parameters for the candle fetching job.
type Gather struct {
	Symbols         []string `yaml:"symbols"`
	StartDate       string   `yaml:"start_date"`
	Interval        Duration `yaml:"interval"`
	BatchSize       int      `yaml:"batch_size"`
	MaxWorkers      int      `yaml:"max_workers"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
}

// Backtest holds the simulation parameters.
type Backtest struct {
	InitialCapital float64  `yaml:"initial_capital"`
	CommissionRate float64  `yaml:"commission_rate"`
	SlippagePct    float64  `yaml:"slippage_pct"`
	WarmupBars     int      `yaml:"warmup_bars"`
	Interval       Duration `yaml:"interval"`
}

// WalkForward holds the window layout for walk-forward analysis.
type WalkForward struct {
	TrainBars int `yaml:"train_bars"`
	TestBars  int `yaml:"test_bars"`
}

// Strategy pairs a registry id with the configuration for one strategy
// instance.
type Strategy struct {
	ID              string `yaml:"id"`
	strategy.Config `yaml:",inline"`
}

// Duration is a time.Duration that unmarshals from strings like "30m".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, applies
// environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	cfg.setDefaults()
	return cfg, nil
}

// setDefaults fills zero-valued fields with sensible defaults.
func (c *Config) setDefaults() {
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "ganymede.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Gather.Interval == 0 {
		c.Gather.Interval = Duration(30 * time.Minute)
	}
	if c.Gather.BatchSize == 0 {
		c.Gather.BatchSize = 500
	}
	if c.Gather.MaxWorkers == 0 {
		c.Gather.MaxWorkers = 4
	}
	if c.Gather.RateLimitPerMin == 0 {
		c.Gather.RateLimitPerMin = 200
	}
	if c.Backtest.InitialCapital == 0 {
		c.Backtest.InitialCapital = 10000
	}
	if c.Backtest.Interval == 0 {
		c.Backtest.Interval = c.Gather.Interval
	}
	for i := range c.Strategies {
		c.Strategies[i].SetDefaults()
	}
}

// Enabled returns the strategy entries with the enabled flag set.
func (c *Config) Enabled() []Strategy {
	var out []Strategy
	for _, s := range c.Strategies {
		if s.Config.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
