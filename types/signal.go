package types

import (
	"github.com/shopspring/decimal"
)

// Signal is produced fresh for every bar and never persisted.
// Quantity is only meaningful for buys; a sell always closes the whole position.
type Signal struct {
	Action   Action
	Quantity decimal.Decimal
	Reason   string
}

func NewSignal(action Action, quantity decimal.Decimal, reason string) Signal {
	return Signal{
		Action:   action,
		Quantity: quantity,
		Reason:   reason,
	}
}

func BuySignal(quantity decimal.Decimal, reason string) Signal {
	return NewSignal(ActionBuy, quantity, reason)
}

func SellSignal(reason string) Signal {
	return NewSignal(ActionSell, decimal.Zero, reason)
}

func HoldSignal(reason string) Signal {
	return NewSignal(ActionHold, decimal.Zero, reason)
}
