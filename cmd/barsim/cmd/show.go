package cmd

import (
	"barsim/internal/engine"
	"barsim/internal/store"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show a recorded run, or list recent runs",
	Long: `Show prints the report of a run recorded in the results database. Without
a run id it lists the most recent runs.

Example:
  barsim show --db runs.db
  barsim show --db runs.db 01J0Z3N4Y6Q8W2E5R7T9Y1U3I5`,
	Args: cobra.MaximumNArgs(1),
	RunE: showRun,
}

var (
	showDBPath string
	showLimit  int
)

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&showDBPath, "db", "", "SQLite results database (defaults to the config store)")
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 20, "number of runs to list")
}

func showRun(cmd *cobra.Command, args []string) error {
	path := showDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Store.SQLitePath
	}
	if path == "" {
		return errors.New("no results database: pass --db or set store.sqlite_path")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runs, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer runs.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		list, err := runs.ListRuns(ctx, showLimit)
		if err != nil {
			return err
		}
		for _, r := range list {
			fmt.Fprintf(out, "%s  %-10s %-8s %-16s %s\n", r.ID, r.Status, r.Symbol, r.Strategy, r.CreatedAt.Local().Format(time.DateTime))
		}
		return nil
	}

	run, err := runs.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Symbol:   %s\n", run.Symbol)
	fmt.Fprintf(out, "Strategy: %s %v\n", run.Strategy, run.Parameters)
	if run.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.Error)
	}
	if run.Results != nil {
		engine.PrintReport(out, run.Results)
	}
	return nil
}
