package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the engine.
type Config struct {
	Instrument Instrument `yaml:"instrument" validate:"required"`
	Strategy   Strategy   `yaml:"strategy" validate:"required"`
	Feed       Feed       `yaml:"feed"`
	Gateway    Gateway    `yaml:"gateway"`
	Storage    Storage    `yaml:"storage"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
	Reconcile  Reconcile  `yaml:"reconcile"`
}

// Instrument identifies the contract and its PnL conversion factor.
type Instrument struct {
	Symbol   string  `yaml:"symbol" validate:"required"`
	Factor   float64 `yaml:"factor" validate:"gt=0"`
	TickSize float64 `yaml:"tick_size" validate:"gte=0"`
}

// Strategy holds the level grid and sizing parameters.
type Strategy struct {
	EntryThresholds     []float64 `yaml:"entry_thresholds" validate:"min=1,dive,gt=0"`
	ExitMultipliers     []float64 `yaml:"exit_multipliers" validate:"min=1,dive,gt=0"`
	MaxConcurrentLevels int       `yaml:"max_concurrent_levels" validate:"gt=0"`
	LevelSize           int64     `yaml:"level_size" validate:"gt=0"`
}

// Feed holds the host market data websocket settings.
type Feed struct {
	URL         string `yaml:"url"`
	ReconnectMs int    `yaml:"reconnect_ms"`
}

// Gateway selects the order gateway implementation.
type Gateway struct {
	Mode      string `yaml:"mode" validate:"oneof=sim host"`       // sim fills locally from bar closes
	URL       string `yaml:"url" validate:"required_if=Mode host"` // host order endpoint, e.g. http://127.0.0.1:9011
	SplitFill bool   `yaml:"split_fill"`                           // sim only: deliver each fill in two parts
}

// Storage holds paths for the audit database and parquet exports.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
	ParquetDir string `yaml:"parquet_dir"`
}

// Server holds the status HTTP listener configuration.
type Server struct {
	Port int `yaml:"port"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // empty = stdout only
}

// Reconcile controls the theoretical-vs-actual position check.
type Reconcile struct {
	IntervalMs int   `yaml:"interval_ms"`
	Tolerance  int64 `yaml:"tolerance" validate:"gte=0"`
}

// Load reads the YAML configuration file at the given path, applies
// environment variable overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with working defaults for everything a
// deployment is allowed to omit. Strategy and instrument have no defaults.
func Default() *Config {
	return &Config{
		Feed:      Feed{URL: "ws://127.0.0.1:9010/stream", ReconnectMs: 3000},
		Gateway:   Gateway{Mode: "sim"},
		Storage:   Storage{SQLitePath: "data/engine.db", ParquetDir: "data/parquet"},
		Server:    Server{Port: 8090},
		Logging:   Logging{Level: "info"},
		Reconcile: Reconcile{IntervalMs: 5000, Tolerance: 0},
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENGINE_SYMBOL"); v != "" {
		cfg.Instrument.Symbol = v
	}
	if v := os.Getenv("ENGINE_FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("ENGINE_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ENGINE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}
