package data

import (
	"barsim/types"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Series is one indicator column aligned with the bars of a Frame.
// Undefined entries have Valid == false.
type Series []decimal.NullDecimal

// At returns the value at i, or an undefined value when i is out of range.
func (s Series) At(i int) decimal.NullDecimal {
	if i < 0 || i >= len(s) {
		return decimal.NullDecimal{}
	}
	return s[i]
}

func (s Series) Last() decimal.NullDecimal {
	return s.At(len(s) - 1)
}

// Frame holds a cleaned bar sequence plus named indicator columns of the
// same length. A Frame belongs to a single run.
type Frame struct {
	symbol  string
	bars    []types.Bar
	closes  []decimal.Decimal
	columns map[string]Series
	order   []string
}

// NewFrame wraps bars that are already sorted and unique by timestamp.
func NewFrame(symbol string, bars []types.Bar) *Frame {
	closes := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return &Frame{
		symbol:  symbol,
		bars:    bars,
		closes:  closes,
		columns: make(map[string]Series),
	}
}

func (f *Frame) Symbol() string { return f.symbol }

func (f *Frame) Len() int { return len(f.bars) }

func (f *Frame) Bar(i int) types.Bar { return f.bars[i] }

func (f *Frame) Bars() []types.Bar {
	return f.bars[:len(f.bars):len(f.bars)]
}

func (f *Frame) Closes() []decimal.Decimal {
	return f.closes[:len(f.closes):len(f.closes)]
}

func (f *Frame) highs() []decimal.Decimal {
	out := make([]decimal.Decimal, len(f.bars))
	for i, b := range f.bars {
		out[i] = b.High
	}
	return out
}

func (f *Frame) lows() []decimal.Decimal {
	out := make([]decimal.Decimal, len(f.bars))
	for i, b := range f.bars {
		out[i] = b.Low
	}
	return out
}

// Column returns a named indicator column.
func (f *Frame) Column(name string) (Series, bool) {
	s, ok := f.columns[name]
	return s, ok
}

// SetColumn adds or replaces a column. The series must be as long as the frame.
func (f *Frame) SetColumn(name string, s Series) error {
	if len(s) != len(f.bars) {
		return fmt.Errorf("column %q has %d values for %d bars: %w", name, len(s), len(f.bars), ErrColumnLength)
	}
	if _, ok := f.columns[name]; !ok {
		f.order = append(f.order, name)
	}
	f.columns[name] = s
	return nil
}

// Columns lists column names in insertion order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.order...)
}

func (f *Frame) clone() *Frame {
	c := &Frame{
		symbol:  f.symbol,
		bars:    f.bars,
		closes:  f.closes,
		columns: make(map[string]Series, len(f.columns)),
		order:   append([]string(nil), f.order...),
	}
	for k, v := range f.columns {
		c.columns[k] = v
	}
	return c
}

func (f *Frame) ensure(name string, compute func() Series) string {
	if _, ok := f.columns[name]; !ok {
		// compute always returns len(bars) values
		_ = f.SetColumn(name, compute())
	}
	return name
}

func SMAColumn(window int) string { return "sma_" + strconv.Itoa(window) }

func EMAColumn(span int) string { return "ema_" + strconv.Itoa(span) }

func RSIColumn(window int) string { return "rsi_" + strconv.Itoa(window) }

func DonchianColumns(window int) (upper, lower string) {
	w := strconv.Itoa(window)
	return "donchian_upper_" + w, "donchian_lower_" + w
}

// EnsureSMA computes the close SMA column for window unless present and
// returns its name.
func (f *Frame) EnsureSMA(window int) string {
	return f.ensure(SMAColumn(window), func() Series { return SMA(f.closes, window) })
}

func (f *Frame) EnsureEMA(span int) string {
	return f.ensure(EMAColumn(span), func() Series { return EMA(f.closes, span) })
}

func (f *Frame) EnsureRSI(window int) string {
	return f.ensure(RSIColumn(window), func() Series { return RSI(f.closes, window) })
}

func (f *Frame) EnsureDonchian(window int) (upper, lower string) {
	upper, lower = DonchianColumns(window)
	if _, ok := f.columns[upper]; ok {
		if _, ok := f.columns[lower]; ok {
			return upper, lower
		}
	}
	u, l := Donchian(f.highs(), f.lows(), window)
	_ = f.SetColumn(upper, u)
	_ = f.SetColumn(lower, l)
	return upper, lower
}

// History returns the view of the frame up to and including bar i.
func (f *Frame) History(i int) History {
	if i >= len(f.bars) {
		i = len(f.bars) - 1
	}
	return History{frame: f, end: i + 1}
}

// History is a read-only view of a Frame truncated at the current bar.
// Slices it hands out are capped at the current bar, so later bars are not
// reachable through them.
type History struct {
	frame *Frame
	end   int
}

func (h History) Len() int { return h.end }

func (h History) Symbol() string { return h.frame.symbol }

// Bar returns bar i of the history, 0 <= i < Len().
func (h History) Bar(i int) types.Bar {
	if i >= h.end {
		panic(fmt.Sprintf("history: bar %d beyond current bar %d", i, h.end-1))
	}
	return h.frame.bars[i]
}

// Current is the bar being evaluated.
func (h History) Current() types.Bar { return h.frame.bars[h.end-1] }

func (h History) Bars() []types.Bar { return h.frame.bars[:h.end:h.end] }

func (h History) Closes() []decimal.Decimal { return h.frame.closes[:h.end:h.end] }

// Column returns the named indicator column truncated at the current bar.
func (h History) Column(name string) (Series, bool) {
	s, ok := h.frame.columns[name]
	if !ok {
		return nil, false
	}
	return s[:h.end:h.end], true
}
