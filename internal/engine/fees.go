package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CommissionSchedule charges Rate of the trade value, clamped to
// [Minimum, Maximum] when those are set. A zero Minimum or Maximum means no
// bound. Broker schedules such as 0.05% with a 1.70 minimum and 39.00
// maximum per order are expressed directly:
//
//	CommissionSchedule{Rate: 0.0005, Minimum: 1.70, Maximum: 39}
type CommissionSchedule struct {
	Rate    decimal.Decimal
	Minimum decimal.Decimal
	Maximum decimal.Decimal
}

// FlatCommission charges rate of the trade value with no bounds.
func FlatCommission(rate decimal.Decimal) CommissionSchedule {
	return CommissionSchedule{Rate: rate}
}

func (s CommissionSchedule) validate() error {
	if s.Rate.IsNegative() || s.Minimum.IsNegative() || s.Maximum.IsNegative() {
		return fmt.Errorf("%w: negative values", ErrInvalidCommission)
	}
	if s.Maximum.IsPositive() && s.Minimum.GreaterThan(s.Maximum) {
		return fmt.Errorf("%w: minimum %s above maximum %s", ErrInvalidCommission, s.Minimum, s.Maximum)
	}
	return nil
}

// Fee returns the commission for a fill of the given value.
func (s CommissionSchedule) Fee(tradeValue decimal.Decimal) decimal.Decimal {
	if tradeValue.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	fee := tradeValue.Mul(s.Rate)
	if s.Minimum.IsPositive() && fee.LessThan(s.Minimum) {
		fee = s.Minimum
	}
	if s.Maximum.IsPositive() && fee.GreaterThan(s.Maximum) {
		fee = s.Maximum
	}
	return fee
}
