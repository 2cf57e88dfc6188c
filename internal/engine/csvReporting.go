package engine

import (
	"barsim/types"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// WriteTradesCSVFile writes the trade log to a CSV file at the given path.
func WriteTradesCSVFile(path string, trades []types.Trade) error {
	return writeCSVFile(path, func(w io.Writer) error { return WriteTradesCSV(w, trades) })
}

// WriteEquityCSVFile writes the equity curve to a CSV file at the given path.
func WriteEquityCSVFile(path string, curve []types.EquityPoint) error {
	return writeCSVFile(path, func(w io.Writer) error { return WriteEquityCSV(w, curve) })
}

func writeCSVFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(f)
}

// WriteTradesCSV writes trades to any io.Writer as CSV, one row per fill.
func WriteTradesCSV(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)

	header := []string{
		"trade_id",
		"timestamp", // RFC3339
		"symbol",
		"action",
		"quantity",
		"price",
		"commission",
		"value",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, t := range trades {
		record := []string{
			strconv.Itoa(i),
			t.Timestamp.Format(time.RFC3339),
			t.Symbol,
			string(t.Action),
			t.Quantity.String(),
			t.Price.String(),
			t.Commission.String(),
			t.Value().String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteEquityCSV writes one timestamp,equity row per equity point.
func WriteEquityCSV(w io.Writer, curve []types.EquityPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "equity"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range curve {
		if err := cw.Write([]string{p.Timestamp.Format(time.RFC3339), p.Equity.String()}); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
