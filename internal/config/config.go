// Package config loads the YAML description of a backtest.
package config

import (
	"barsim/internal/engine"
	"barsim/types"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingSymbol   = errors.New("backtest symbol is required")
	ErrMissingStrategy = errors.New("strategy tag is required")
	ErrInvalidRange    = errors.New("backtest start is after end")
	ErrUnknownSource   = errors.New("unknown data source")
)

// Data source kinds.
const (
	SourceCSV      = "csv"
	SourceParquet  = "parquet"
	SourcePostgres = "postgres"
)

// Config is the top-level configuration of a backtest run.
type Config struct {
	Backtest Backtest `yaml:"backtest"`
	Strategy Strategy `yaml:"strategy"`
	Source   Source   `yaml:"source"`
	Store    Store    `yaml:"store"`
	Logging  Logging  `yaml:"logging"`
}

// Backtest describes the simulated account and the slice of history.
type Backtest struct {
	Symbol         string          `yaml:"symbol"`
	Interval       types.Interval  `yaml:"interval"`
	Start          time.Time       `yaml:"start"`
	End            time.Time       `yaml:"end"`
	InitialCapital decimal.Decimal `yaml:"initial_capital"`
	Commission     decimal.Decimal `yaml:"commission"`
	CommissionMin  decimal.Decimal `yaml:"commission_min"`
	CommissionMax  decimal.Decimal `yaml:"commission_max"`
	Slippage       decimal.Decimal `yaml:"slippage"`
	// Parameters override the strategy parameters for this run only.
	Parameters engine.Params `yaml:"parameters"`
}

// Strategy selects a registered strategy and its parameters.
type Strategy struct {
	Tag        string        `yaml:"tag"`
	Parameters engine.Params `yaml:"parameters"`
}

// Source selects where bars are read from.
type Source struct {
	Kind        string `yaml:"kind"`
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"database_url"`
}

// Store holds the results database location. An empty path disables
// persistence.
type Store struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used for every field the file leaves out.
func Default() *Config {
	return &Config{
		Backtest: Backtest{
			Interval:       types.Day,
			InitialCapital: decimal.NewFromInt(10000),
			Commission:     decimal.Zero,
			Slippage:       decimal.Zero,
		},
		Source: Source{
			Kind: SourceCSV,
			Path: "data",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment variable overrides.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML over the defaults and applies environment overrides.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BARSIM_DATA_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("BARSIM_DATABASE_URL"); v != "" {
		cfg.Source.DatabaseURL = v
	}
	if v := os.Getenv("BARSIM_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("BARSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the fields a run cannot start without. Portfolio values
// are validated by PortfolioConfig.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backtest.Symbol) == "" {
		return ErrMissingSymbol
	}
	if strings.TrimSpace(c.Strategy.Tag) == "" {
		return ErrMissingStrategy
	}
	if _, err := types.ParseInterval(string(c.Backtest.Interval)); err != nil {
		return err
	}
	if !c.Backtest.Start.IsZero() && !c.Backtest.End.IsZero() && c.Backtest.Start.After(c.Backtest.End) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidRange, c.Backtest.Start.Format(time.DateOnly), c.Backtest.End.Format(time.DateOnly))
	}
	switch c.Source.Kind {
	case SourceCSV, SourceParquet, SourcePostgres:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSource, c.Source.Kind)
	}
	_, err := c.PortfolioConfig()
	return err
}

// PortfolioConfig converts the account settings for the engine.
func (c *Config) PortfolioConfig() (*engine.PortfolioConfig, error) {
	commission := engine.CommissionSchedule{
		Rate:    c.Backtest.Commission,
		Minimum: c.Backtest.CommissionMin,
		Maximum: c.Backtest.CommissionMax,
	}
	return engine.NewPortfolioConfig(c.Backtest.InitialCapital, commission, c.Backtest.Slippage)
}

// BarRequest is the slice of history the run asks its bar source for. An end
// at midnight UTC is a date: the request covers that whole day.
func (c *Config) BarRequest() (types.BarRequest, error) {
	interval, err := types.ParseInterval(string(c.Backtest.Interval))
	if err != nil {
		return types.BarRequest{}, err
	}
	return types.BarRequest{
		Symbol:   strings.ToUpper(strings.TrimSpace(c.Backtest.Symbol)),
		Interval: interval,
		Start:    c.Backtest.Start,
		End:      endOfDay(c.Backtest.End),
	}, nil
}

func endOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	u := t.UTC()
	if !u.Equal(u.Truncate(24 * time.Hour)) {
		return t
	}
	return u.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
