package repository

import (
	"barsim/internal/data"
	"barsim/types"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var _ BarSource = (*CSVSource)(nil)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.DateOnly,
	"01/02/2006",
}

// header aliases seen in vendor exports
var columnAliases = map[string]string{
	"date":     data.ColumnTimestamp,
	"datetime": data.ColumnTimestamp,
	"time":     data.ColumnTimestamp,
	"o":        data.ColumnOpen,
	"h":        data.ColumnHigh,
	"l":        data.ColumnLow,
	"c":        data.ColumnClose,
	"v":        data.ColumnVolume,
}

// CSVSource reads bars from CSV files with a header row. Path is either a
// single file or a directory holding one <SYMBOL>.csv file per symbol.
type CSVSource struct {
	Path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) filePath(symbol string) (string, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return s.Path, nil
	}
	return filepath.Join(s.Path, strings.ToUpper(symbol)+".csv"), nil
}

func (s *CSVSource) LoadBars(ctx context.Context, req types.BarRequest) (data.RawSeries, error) {
	path, err := s.filePath(req.Symbol)
	if err != nil {
		return data.RawSeries{}, fmt.Errorf("csv source %s: %w", s.Path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return data.RawSeries{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	series, err := ReadCSV(ctx, f, req.Symbol)
	if err != nil {
		return data.RawSeries{}, fmt.Errorf("read %s: %w", path, err)
	}
	filtered := series.Bars[:0]
	for _, b := range series.Bars {
		if b.Timestamp.IsZero() || req.Contains(b.Timestamp) {
			filtered = append(filtered, b)
		}
	}
	if len(filtered) == 0 {
		return data.RawSeries{}, fmt.Errorf("%s in %s: %w", req.Symbol, path, ErrNoBars)
	}
	series.Bars = filtered
	return series, nil
}

// ReadCSV parses a header-led CSV stream. Only the columns present in the
// header are declared on the returned series; empty cells become missing
// values for the processor to fill.
func ReadCSV(ctx context.Context, r io.Reader, symbol string) (data.RawSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return data.RawSeries{}, fmt.Errorf("%w: missing header", ErrMalformedRow)
		}
		return data.RawSeries{}, err
	}

	index := make(map[string]int)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	series := data.RawSeries{Symbol: strings.ToUpper(symbol)}
	for _, col := range data.RequiredColumns {
		if _, ok := index[col]; ok {
			series.Columns = append(series.Columns, col)
		}
	}

	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return data.RawSeries{}, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return data.RawSeries{}, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}
		bar, err := parseRecord(record, index)
		if err != nil {
			return data.RawSeries{}, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}
		series.Bars = append(series.Bars, bar)
	}
	return series, nil
}

func parseRecord(record []string, index map[string]int) (data.RawBar, error) {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var bar data.RawBar
	if ts := cell(data.ColumnTimestamp); ts != "" {
		t, err := parseTimestamp(ts)
		if err != nil {
			return data.RawBar{}, err
		}
		bar.Timestamp = t
	}

	fields := []struct {
		col string
		dst *decimal.NullDecimal
	}{
		{data.ColumnOpen, &bar.Open},
		{data.ColumnHigh, &bar.High},
		{data.ColumnLow, &bar.Low},
		{data.ColumnClose, &bar.Close},
		{data.ColumnVolume, &bar.Volume},
	}
	for _, f := range fields {
		v := cell(f.col)
		if v == "" || strings.EqualFold(v, "nan") || strings.EqualFold(v, "null") {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return data.RawBar{}, fmt.Errorf("%s %q: %w", f.col, v, err)
		}
		*f.dst = data.Valid(d)
	}
	return bar, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		// millisecond epochs are 13 digits
		if len(s) >= 13 {
			return time.UnixMilli(secs).UTC(), nil
		}
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
