package cmd

import (
	"barsim/internal/config"
	"barsim/internal/logging"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "barsim",
	Short: "Deterministic bar-by-bar backtesting",
	Long: `barsim replays historical OHLCV bars through a trading strategy and a
simulated long-only portfolio, then reports the equity curve, the trades and
the usual performance metrics.

Bars are read from CSV files, Parquet files or a Postgres database. Runs can
be recorded in a SQLite database and inspected later with "barsim show".`,
	SilenceUsage: true,
}

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to the backtest YAML config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json); overrides the config")
}

// loadConfig reads --config, or the defaults when no file is given.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Parse(nil)
	}
	return config.Load(cfgFile)
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, format := cfg.Logging.Level, cfg.Logging.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	return logging.NewLogger(level, format, os.Stderr)
}
