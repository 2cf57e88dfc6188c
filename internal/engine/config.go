package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCapital    = errors.New("initial capital must be positive")
	ErrInvalidSlippage   = errors.New("slippage rate must be in [0, 1)")
	ErrInvalidCommission = errors.New("invalid commission schedule")
)

type PortfolioConfig struct {
	initialCash decimal.Decimal
	commission  CommissionSchedule
	slippage    decimal.Decimal
}

// NewPortfolioConfig validates the simulated account settings. Commission
// and slippage are rates applied to the execution value and the close price.
func NewPortfolioConfig(initialCash decimal.Decimal, commission CommissionSchedule, slippage decimal.Decimal) (*PortfolioConfig, error) {
	if !initialCash.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCapital, initialCash)
	}
	if slippage.IsNegative() || slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSlippage, slippage)
	}
	if err := commission.validate(); err != nil {
		return nil, err
	}
	return &PortfolioConfig{
		initialCash: initialCash,
		commission:  commission,
		slippage:    slippage,
	}, nil
}

func (c *PortfolioConfig) InitialCash() decimal.Decimal { return c.initialCash }

func (c *PortfolioConfig) Commission() CommissionSchedule { return c.commission }

func (c *PortfolioConfig) Slippage() decimal.Decimal { return c.slippage }
