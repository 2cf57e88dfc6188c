package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an executed fill. Price already includes slippage.
type Trade struct {
	Timestamp  time.Time       `json:"timestamp"`
	Symbol     string          `json:"symbol"`
	Action     Action          `json:"action"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
}

// Value is the notional of the fill before commission.
func (t Trade) Value() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}

// EquityPoint is the marked-to-market portfolio value after a bar.
type EquityPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Equity    decimal.Decimal `json:"equity"`
}
