package repository

import (
	"barsim/internal/data"
	"barsim/types"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
)

var _ BarSource = (*ParquetStore)(nil)

// BarRecord is the Parquet schema for bar data. Prices and volume are
// decimal strings so values read back exactly as written.
type BarRecord struct {
	Symbol    string `parquet:"symbol"`
	Timestamp int64  `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      string `parquet:"open"`
	High      string `parquet:"high"`
	Low       string `parquet:"low"`
	Close     string `parquet:"close"`
	Volume    string `parquet:"volume"`
}

// ParquetStore keeps bars in Parquet files, one per symbol, interval and year:
//
//	<DataDir>/<interval>/<SYMBOL>/<YYYY>.parquet
type ParquetStore struct {
	DataDir string
}

func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// WriteBars merges bars into the existing files. Incoming bars replace stored
// ones with the same timestamp.
func (s *ParquetStore) WriteBars(_ context.Context, interval types.Interval, bars []types.Bar) error {
	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		k := key{symbol: strings.ToUpper(b.Symbol), year: b.Timestamp.UTC().Year()}
		groups[k] = append(groups[k], BarRecord{
			Symbol:    k.symbol,
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open.String(),
			High:      b.High.String(),
			Low:       b.Low.String(),
			Close:     b.Close.String(),
			Volume:    b.Volume.String(),
		})
	}

	for k, records := range groups {
		path := s.barPath(k.symbol, interval, k.year)
		existing, err := readParquetFile[BarRecord](path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reading bars for %s/%d: %w", k.symbol, k.year, err)
		}
		if err := writeParquetFile(path, mergeBarRecords(existing, records)); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

func (s *ParquetStore) LoadBars(_ context.Context, req types.BarRequest) (data.RawSeries, error) {
	interval := req.Interval
	if interval == "" {
		interval = types.Day
	}
	years, err := s.years(req.Symbol, interval)
	if err != nil {
		return data.RawSeries{}, err
	}

	series := data.NewRawSeries(strings.ToUpper(req.Symbol), nil)
	for _, year := range years {
		if !req.Start.IsZero() && year < req.Start.UTC().Year() {
			continue
		}
		if !req.End.IsZero() && year > req.End.UTC().Year() {
			continue
		}
		path := s.barPath(req.Symbol, interval, year)
		records, err := readParquetFile[BarRecord](path)
		if err != nil {
			return data.RawSeries{}, fmt.Errorf("reading %s: %w", path, err)
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if !req.Contains(ts) {
				continue
			}
			bar, err := r.rawBar()
			if err != nil {
				return data.RawSeries{}, fmt.Errorf("reading %s: %w", path, err)
			}
			series.Bars = append(series.Bars, bar)
		}
	}
	if len(series.Bars) == 0 {
		return data.RawSeries{}, fmt.Errorf("%s %s: %w", req.Symbol, interval, ErrNoBars)
	}
	return series, nil
}

func (r BarRecord) rawBar() (data.RawBar, error) {
	bar := data.RawBar{Timestamp: time.UnixMilli(r.Timestamp).UTC()}
	fields := []struct {
		name string
		src  string
		dst  *decimal.NullDecimal
	}{
		{data.ColumnOpen, r.Open, &bar.Open},
		{data.ColumnHigh, r.High, &bar.High},
		{data.ColumnLow, r.Low, &bar.Low},
		{data.ColumnClose, r.Close, &bar.Close},
		{data.ColumnVolume, r.Volume, &bar.Volume},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return data.RawBar{}, fmt.Errorf("%w: %s %q at %d", ErrMalformedRow, f.name, f.src, r.Timestamp)
		}
		*f.dst = data.Valid(d)
	}
	return bar, nil
}

// ListSymbols lists all symbols that have bar data for the interval.
func (s *ParquetStore) ListSymbols(interval types.Interval) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, string(interval)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (s *ParquetStore) years(symbol string, interval types.Interval) ([]int, error) {
	dir := filepath.Join(s.DataDir, string(interval), strings.ToUpper(symbol))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s %s: %w", symbol, interval, ErrNoBars)
		}
		return nil, err
	}
	var years []int
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".parquet")
		if !ok || e.IsDir() {
			continue
		}
		year, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}

func (s *ParquetStore) barPath(symbol string, interval types.Interval, year int) string {
	return filepath.Join(s.DataDir, string(interval), strings.ToUpper(symbol), strconv.Itoa(year)+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return parquet.ReadFile[T](path)
}

// mergeBarRecords deduplicates by timestamp, preferring incoming records.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	seen := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
