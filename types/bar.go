package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV sample for a fixed interval.
type Bar struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// BarRequest describes the slice of history a bar source is asked for.
// A zero Start or End leaves that side of the range open.
type BarRequest struct {
	Symbol   string    `json:"symbol"`
	Interval Interval  `json:"interval"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Contains reports whether ts falls inside the requested range (both ends inclusive).
func (r BarRequest) Contains(ts time.Time) bool {
	if !r.Start.IsZero() && ts.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && ts.After(r.End) {
		return false
	}
	return true
}
