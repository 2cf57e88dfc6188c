package config

import (
	"barsim/internal/engine"
	"barsim/types"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
backtest:
  symbol: aapl
  interval: 1h
  start: 2023-01-01
  end: 2023-12-31
  initial_capital: 25000
  commission: 0.0005
  commission_min: "1.70"
  commission_max: 39
  slippage: 0.001
  parameters:
    short_window: 10
strategy:
  tag: moving_average
  parameters:
    short_window: 20
    long_window: 50
source:
  kind: parquet
  path: /var/lib/bars
store:
  sqlite_path: runs.db
logging:
  level: debug
  format: json
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, types.Hour, cfg.Backtest.Interval)
	assert.True(t, cfg.Backtest.Start.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, cfg.Backtest.InitialCapital.Equal(decimal.NewFromInt(25000)))
	assert.Equal(t, "1.7", cfg.Backtest.CommissionMin.String())
	assert.Equal(t, 10, cfg.Backtest.Parameters["short_window"])
	assert.Equal(t, "moving_average", cfg.Strategy.Tag)
	assert.Equal(t, 50, cfg.Strategy.Parameters["long_window"])
	assert.Equal(t, SourceParquet, cfg.Source.Kind)
	assert.Equal(t, "runs.db", cfg.Store.SQLitePath)
	assert.Equal(t, "json", cfg.Logging.Format)

	pc, err := cfg.PortfolioConfig()
	require.NoError(t, err)
	assert.Equal(t, "39", pc.Commission().Maximum.String())
	assert.Equal(t, "0.001", pc.Slippage().String())

	req, err := cfg.BarRequest()
	require.NoError(t, err)
	assert.Equal(t, "AAPL", req.Symbol)
	assert.Equal(t, types.Hour, req.Interval)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("backtest:\n  symbol: MSFT\nstrategy:\n  tag: rsi\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, types.Day, cfg.Backtest.Interval)
	assert.True(t, cfg.Backtest.InitialCapital.Equal(decimal.NewFromInt(10000)))
	assert.True(t, cfg.Backtest.Commission.IsZero())
	assert.True(t, cfg.Backtest.Slippage.IsZero())
	assert.Equal(t, SourceCSV, cfg.Source.Kind)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Store.SQLitePath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	t.Setenv("BARSIM_DATA_PATH", "/tmp/bars")
	t.Setenv("BARSIM_SQLITE_PATH", "/tmp/runs.db")
	t.Setenv("BARSIM_DATABASE_URL", "postgres://localhost/bars")
	t.Setenv("BARSIM_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/bars", cfg.Source.Path)
	assert.Equal(t, "/tmp/runs.db", cfg.Store.SQLitePath)
	assert.Equal(t, "postgres://localhost/bars", cfg.Source.DatabaseURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Backtest.Symbol = "AAPL"
		cfg.Strategy.Tag = "rsi"
		return cfg
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing symbol", func(c *Config) { c.Backtest.Symbol = " " }, ErrMissingSymbol},
		{"missing strategy", func(c *Config) { c.Strategy.Tag = "" }, ErrMissingStrategy},
		{"bad interval", func(c *Config) { c.Backtest.Interval = "2d" }, types.ErrUnknownInterval},
		{"inverted range", func(c *Config) {
			c.Backtest.Start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
			c.Backtest.End = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		}, ErrInvalidRange},
		{"unknown source", func(c *Config) { c.Source.Kind = "s3" }, ErrUnknownSource},
		{"zero capital", func(c *Config) { c.Backtest.InitialCapital = decimal.Zero }, engine.ErrInvalidCapital},
		{"negative commission", func(c *Config) { c.Backtest.Commission = decimal.NewFromInt(-1) }, engine.ErrInvalidCommission},
		{"slippage of one", func(c *Config) { c.Backtest.Slippage = decimal.NewFromInt(1) }, engine.ErrInvalidSlippage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBarRequest_EndDateCoversWholeDay(t *testing.T) {
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		end    time.Time
		inside []time.Time
		after  time.Time
	}{
		{
			name:   "date only",
			end:    day,
			inside: []time.Time{day, day.Add(9*time.Hour + 30*time.Minute), day.Add(23*time.Hour + 59*time.Minute)},
			after:  day.AddDate(0, 0, 1),
		},
		{
			name:   "explicit time kept",
			end:    day.Add(12 * time.Hour),
			inside: []time.Time{day.Add(12 * time.Hour)},
			after:  day.Add(12*time.Hour + time.Minute),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Backtest.Symbol = "AAPL"
			cfg.Backtest.Interval = types.FiveMinutes
			cfg.Backtest.End = tt.end

			req, err := cfg.BarRequest()
			require.NoError(t, err)
			for _, ts := range tt.inside {
				assert.True(t, req.Contains(ts), "%s should be inside", ts)
			}
			assert.False(t, req.Contains(tt.after), "%s should be outside", tt.after)
		})
	}

	cfg, err := Parse([]byte("backtest:\n  symbol: AAPL\n  interval: 1h\n  end: 2024-01-05\n"))
	require.NoError(t, err)
	req, err := cfg.BarRequest()
	require.NoError(t, err)
	assert.True(t, req.Contains(day.Add(15*time.Hour)))
}
