package cmd

import (
	"barsim/internal/backtest"
	"barsim/internal/config"
	"barsim/internal/engine"
	"barsim/internal/repository"
	"barsim/internal/store"
	"barsim/strategies"
	"barsim/types"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest",
	Long: `Run loads the bars described by the config, simulates the strategy and
prints a performance report.

Flags override the matching config fields.

Example:
  barsim run -c backtest.yaml
  barsim run --symbol AAPL --strategy moving_average --source csv --data ./data`,
	RunE: runBacktest,
}

var (
	runSymbol     string
	runStrategy   string
	runInterval   string
	runStart      string
	runEnd        string
	runSource     string
	runDataPath   string
	runDBPath     string
	runTradesCSV  string
	runEquityCSV  string
	runNoProgress bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runSymbol, "symbol", "s", "", "symbol to backtest")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "strategy tag (see barsim strategies)")
	runCmd.Flags().StringVarP(&runInterval, "interval", "i", "", "bar interval (1m, 5m, 15m, 30m, 1h, 4h, 1d, 1wk)")
	runCmd.Flags().StringVar(&runStart, "start", "", "first bar date, YYYY-MM-DD")
	runCmd.Flags().StringVar(&runEnd, "end", "", "last bar date, YYYY-MM-DD; bars through the end of that day are included")
	runCmd.Flags().StringVar(&runSource, "source", "", "bar source (csv, parquet, postgres)")
	runCmd.Flags().StringVar(&runDataPath, "data", "", "csv file or directory, or parquet data directory")
	runCmd.Flags().StringVar(&runDBPath, "db", "", "SQLite results database; empty disables recording")
	runCmd.Flags().StringVar(&runTradesCSV, "trades-csv", "", "write executed trades to this CSV file")
	runCmd.Flags().StringVar(&runEquityCSV, "equity-csv", "", "write the equity curve to this CSV file")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "hide the progress bar")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	source, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	opts := []backtest.Option{backtest.WithLogger(logger)}
	if !runNoProgress {
		opts = append(opts, backtest.WithProgress(os.Stderr))
	}
	if cfg.Store.SQLitePath != "" {
		runs, err := store.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return fmt.Errorf("open results store: %w", err)
		}
		defer runs.Close()
		opts = append(opts, backtest.WithRunStore(runs))
	}

	svc := backtest.NewService(source, strategies.NewRegistry(), opts...)
	runID, res, err := svc.Run(ctx, cfg)
	if err != nil {
		if runID != "" {
			return fmt.Errorf("run %s: %w", runID, err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if runID != "" {
		fmt.Fprintf(out, "Run: %s\n", runID)
	}
	engine.PrintReport(out, res)

	if runTradesCSV != "" {
		if err := engine.WriteTradesCSVFile(runTradesCSV, res.Trades); err != nil {
			return fmt.Errorf("write trades: %w", err)
		}
	}
	if runEquityCSV != "" {
		if err := engine.WriteEquityCSVFile(runEquityCSV, res.EquityCurve); err != nil {
			return fmt.Errorf("write equity curve: %w", err)
		}
	}
	return nil
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("symbol") {
		cfg.Backtest.Symbol = runSymbol
	}
	if flags.Changed("strategy") && runStrategy != cfg.Strategy.Tag {
		// parameters of the configured strategy do not carry over
		cfg.Strategy.Tag = runStrategy
		cfg.Strategy.Parameters = nil
	}
	if flags.Changed("interval") {
		cfg.Backtest.Interval = types.Interval(runInterval)
	}
	if flags.Changed("start") {
		t, err := time.Parse(time.DateOnly, runStart)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		cfg.Backtest.Start = t
	}
	if flags.Changed("end") {
		t, err := time.Parse(time.DateOnly, runEnd)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		cfg.Backtest.End = t
	}
	if flags.Changed("source") {
		cfg.Source.Kind = runSource
	}
	if flags.Changed("data") {
		cfg.Source.Path = runDataPath
	}
	if flags.Changed("db") {
		cfg.Store.SQLitePath = runDBPath
	}
	return nil
}

// openSource builds the bar source named by the config. The returned func
// releases it.
func openSource(ctx context.Context, cfg *config.Config) (repository.BarSource, func(), error) {
	noop := func() {}
	switch cfg.Source.Kind {
	case config.SourceCSV:
		return repository.NewCSVSource(cfg.Source.Path), noop, nil
	case config.SourceParquet:
		return repository.NewParquetStore(cfg.Source.Path), noop, nil
	case config.SourcePostgres:
		db, err := repository.NewDatabase(ctx, cfg.Source.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to bar database: %w", err)
		}
		return db, db.Close, nil
	}
	return nil, noop, fmt.Errorf("%w: %q", config.ErrUnknownSource, cfg.Source.Kind)
}
