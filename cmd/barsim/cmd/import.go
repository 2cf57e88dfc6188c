package cmd

import (
	"barsim/internal/data"
	"barsim/internal/repository"
	"barsim/types"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <csv-file>...",
	Short: "Clean CSV bars and store them as Parquet",
	Long: `Import reads CSV bar files, cleans them (sorting, de-duplication, forward
filling) and merges the bars into the Parquet data directory used by the
parquet source. The symbol defaults to the file name without extension.

Example:
  barsim import --data ./parquet --interval 1d AAPL.csv MSFT.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: importBars,
}

var (
	importDataDir  string
	importSymbol   string
	importInterval string
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importDataDir, "data", "parquet", "parquet data directory")
	importCmd.Flags().StringVarP(&importSymbol, "symbol", "s", "", "symbol for a single input file")
	importCmd.Flags().StringVarP(&importInterval, "interval", "i", "1d", "interval of the input bars")
}

func importBars(cmd *cobra.Command, args []string) error {
	if importSymbol != "" && len(args) > 1 {
		return fmt.Errorf("--symbol needs exactly one input file, got %d", len(args))
	}
	interval, err := types.ParseInterval(importInterval)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	processor := data.NewProcessor()
	parquetStore := repository.NewParquetStore(importDataDir)
	out := cmd.OutOrStdout()
	for _, path := range args {
		symbol := importSymbol
		if symbol == "" {
			symbol = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		n, err := importFile(ctx, processor, parquetStore, path, symbol, interval)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		fmt.Fprintf(out, "%s: %d bars -> %s\n", strings.ToUpper(symbol), n, importDataDir)
	}
	return nil
}

func importFile(ctx context.Context, processor *data.Processor, dst *repository.ParquetStore, path, symbol string, interval types.Interval) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	raw, err := repository.ReadCSV(ctx, f, symbol)
	if err != nil {
		return 0, err
	}
	frame, err := processor.Process(raw)
	if err != nil {
		return 0, err
	}
	bars := frame.Bars()
	if err := dst.WriteBars(ctx, interval, bars); err != nil {
		return 0, err
	}
	return len(bars), nil
}
