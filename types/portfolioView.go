package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an open long holding. EntryPrice is the slipped fill price.
type Position struct {
	Symbol     string          `json:"symbol"`
	Quantity   decimal.Decimal `json:"quantity"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
	EntryTime  time.Time       `json:"entryTime"`
	LastPrice  decimal.Decimal `json:"lastPrice"`
}

// MarketValue marks the position at its last seen close.
func (p Position) MarketValue() decimal.Decimal {
	return p.Quantity.Mul(p.LastPrice)
}

type PortfolioView struct {
	Cash      decimal.Decimal
	Positions map[string]Position
	Time      time.Time
}

// Equity is cash plus the market value of every open position.
func (v PortfolioView) Equity() decimal.Decimal {
	value := v.Cash
	for _, pos := range v.Positions {
		value = value.Add(pos.MarketValue())
	}
	return value
}
