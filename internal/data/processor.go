package data

import (
	"barsim/types"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ErrValidation is the parent of every input validation failure. Validation
// errors are fatal for a run.
var ErrValidation = errors.New("validation error")

var (
	ErrMissingField = fmt.Errorf("%w: missing field", ErrValidation)
	ErrMissingValue = fmt.Errorf("%w: missing value", ErrValidation)
	ErrEmptySeries  = fmt.Errorf("%w: empty series", ErrValidation)
	ErrColumnLength = errors.New("column length does not match bars")
)

// Indicator column names added by AddIndicators besides the sma_N/ema_N/rsi_N families.
const (
	ColumnReturns         = "returns"
	ColumnBBMiddle        = "bb_middle"
	ColumnBBStd           = "bb_std"
	ColumnBBUpper         = "bb_upper"
	ColumnBBLower         = "bb_lower"
	ColumnMACD            = "macd"
	ColumnMACDSignal      = "macd_signal"
	ColumnMACDHistogram   = "macd_histogram"
	defaultRSIWindow      = 14
	defaultBollingerWidth = 20
)

// Processor cleans raw bar series and computes the standard indicator set.
type Processor struct {
	movingAverageWindows []int
	bollingerWindow      int
	bollingerK           decimal.Decimal
	rsiWindow            int
	macdFast             int
	macdSlow             int
	macdSignal           int
}

func NewProcessor() *Processor {
	return &Processor{
		movingAverageWindows: []int{5, 10, 20, 50, 200},
		bollingerWindow:      defaultBollingerWidth,
		bollingerK:           decimal.NewFromInt(2),
		rsiWindow:            defaultRSIWindow,
		macdFast:             12,
		macdSlow:             26,
		macdSignal:           9,
	}
}

// Process validates raw, sorts it by timestamp, drops duplicate timestamps
// keeping the first occurrence and forward-fills missing values.
func (p *Processor) Process(raw RawSeries) (*Frame, error) {
	for _, col := range RequiredColumns {
		if !raw.hasColumn(col) {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, col)
		}
	}
	if len(raw.Bars) == 0 {
		return nil, fmt.Errorf("%s: %w", raw.Symbol, ErrEmptySeries)
	}

	rows := append([]RawBar(nil), raw.Bars...)
	for i, r := range rows {
		if r.Timestamp.IsZero() {
			return nil, fmt.Errorf("%w: %s at row %d", ErrMissingValue, ColumnTimestamp, i)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })

	bars := make([]types.Bar, 0, len(rows))
	var last RawBar
	for i, r := range rows {
		if i > 0 && r.Timestamp.Equal(rows[i-1].Timestamp) {
			continue
		}
		var err error
		fill := func(col string, cur, prev decimal.NullDecimal) decimal.Decimal {
			if cur.Valid {
				return cur.Decimal
			}
			if prev.Valid {
				return prev.Decimal
			}
			if err == nil {
				err = fmt.Errorf("%w: %s at %s has no earlier value to carry forward", ErrMissingValue, col, r.Timestamp.Format(time.RFC3339))
			}
			return decimal.Zero
		}
		bar := types.Bar{
			Symbol:    raw.Symbol,
			Timestamp: r.Timestamp,
			Open:      fill(ColumnOpen, r.Open, last.Open),
			High:      fill(ColumnHigh, r.High, last.High),
			Low:       fill(ColumnLow, r.Low, last.Low),
			Close:     fill(ColumnClose, r.Close, last.Close),
			Volume:    fill(ColumnVolume, r.Volume, last.Volume),
		}
		if err != nil {
			return nil, err
		}
		last = RawBar{
			Open:   Valid(bar.Open),
			High:   Valid(bar.High),
			Low:    Valid(bar.Low),
			Close:  Valid(bar.Close),
			Volume: Valid(bar.Volume),
		}
		bars = append(bars, bar)
	}

	f := NewFrame(raw.Symbol, bars)
	if err := f.SetColumn(ColumnReturns, PctChange(f.closes)); err != nil {
		return nil, err
	}
	return f, nil
}

// AddIndicators returns a copy of f with the moving averages, Bollinger bands,
// RSI and MACD columns added. The input frame is not modified.
func (p *Processor) AddIndicators(f *Frame) (*Frame, error) {
	out := f.clone()
	closes := out.closes

	set := func(name string, s Series) error {
		return out.SetColumn(name, s)
	}
	for _, w := range p.movingAverageWindows {
		if err := set(SMAColumn(w), SMA(closes, w)); err != nil {
			return nil, err
		}
	}
	for _, w := range p.movingAverageWindows {
		if err := set(EMAColumn(w), EMA(closes, w)); err != nil {
			return nil, err
		}
	}

	middle, upper, lower := Bollinger(closes, p.bollingerWindow, p.bollingerK)
	macd, signal, hist := MACD(closes, p.macdFast, p.macdSlow, p.macdSignal)
	columns := []struct {
		name string
		s    Series
	}{
		{ColumnBBMiddle, middle},
		{ColumnBBStd, RollingStd(closes, p.bollingerWindow)},
		{ColumnBBUpper, upper},
		{ColumnBBLower, lower},
		{RSIColumn(p.rsiWindow), RSI(closes, p.rsiWindow)},
		{EMAColumn(p.macdFast), EMA(closes, p.macdFast)},
		{EMAColumn(p.macdSlow), EMA(closes, p.macdSlow)},
		{ColumnMACD, macd},
		{ColumnMACDSignal, signal},
		{ColumnMACDHistogram, hist},
	}
	for _, c := range columns {
		if err := set(c.name, c.s); err != nil {
			return nil, err
		}
	}
	return out, nil
}
