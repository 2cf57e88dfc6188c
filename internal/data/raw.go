package data

import (
	"time"

	"github.com/shopspring/decimal"
)

// Required column names of a raw bar series.
const (
	ColumnTimestamp = "timestamp"
	ColumnOpen      = "open"
	ColumnHigh      = "high"
	ColumnLow       = "low"
	ColumnClose     = "close"
	ColumnVolume    = "volume"
)

var RequiredColumns = []string{ColumnTimestamp, ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume}

// RawBar is an unvalidated bar as delivered by a source. Missing cells are
// represented by an invalid NullDecimal.
type RawBar struct {
	Timestamp time.Time
	Open      decimal.NullDecimal
	High      decimal.NullDecimal
	Low       decimal.NullDecimal
	Close     decimal.NullDecimal
	Volume    decimal.NullDecimal
}

// RawSeries is what a bar source produces. Columns lists the fields the
// source actually carried; a column absent from the list is treated as
// missing regardless of the bar values.
type RawSeries struct {
	Symbol  string
	Columns []string
	Bars    []RawBar
}

// NewRawSeries returns a series that declares every required column.
func NewRawSeries(symbol string, bars []RawBar) RawSeries {
	return RawSeries{
		Symbol:  symbol,
		Columns: append([]string(nil), RequiredColumns...),
		Bars:    bars,
	}
}

func (s RawSeries) hasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Valid wraps a value as a present cell.
func Valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// RawBarFromFloats is a convenience for building fully populated bars.
func RawBarFromFloats(ts time.Time, open, high, low, close, volume float64) RawBar {
	return RawBar{
		Timestamp: ts,
		Open:      Valid(decimal.NewFromFloat(open)),
		High:      Valid(decimal.NewFromFloat(high)),
		Low:       Valid(decimal.NewFromFloat(low)),
		Close:     Valid(decimal.NewFromFloat(close)),
		Volume:    Valid(decimal.NewFromFloat(volume)),
	}
}
