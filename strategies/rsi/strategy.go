package rsi

import (
	"barsim/internal/data"
	"barsim/internal/engine"
	"barsim/types"
	"fmt"

	"github.com/shopspring/decimal"
)

const Tag = "rsi"

var (
	quantity = decimal.NewFromInt(1)
	hundred  = decimal.NewFromInt(100)
)

// Strategy buys when RSI drops into the oversold zone and sells when it rises
// into the overbought zone. RSI uses simple rolling means of gains and losses.
type Strategy struct {
	window     int
	oversold   decimal.Decimal
	overbought decimal.Decimal
	column     string
}

func Registration() engine.Registration {
	return engine.Registration{
		Tag:         Tag,
		Description: "RSI threshold: buy on a cross below oversold, sell on a cross above overbought",
		Defaults:    engine.Params{"window": 14, "oversold": 30, "overbought": 70},
		New:         New,
	}
}

func New(params engine.Params) (engine.Strategy, error) {
	window, err := params.Int("window")
	if err != nil {
		return nil, err
	}
	oversold, err := params.Decimal("oversold")
	if err != nil {
		return nil, err
	}
	overbought, err := params.Decimal("overbought")
	if err != nil {
		return nil, err
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", engine.ErrInvalidParameter, window)
	}
	if oversold.IsNegative() || overbought.GreaterThan(hundred) || !oversold.LessThan(overbought) {
		return nil, fmt.Errorf("%w: need 0 <= oversold < overbought <= 100, got %s and %s", engine.ErrInvalidParameter, oversold, overbought)
	}
	return &Strategy{window: window, oversold: oversold, overbought: overbought}, nil
}

func (s *Strategy) Name() string { return Tag }

func (s *Strategy) Parameters() engine.Params {
	return engine.Params{"window": s.window, "oversold": s.oversold, "overbought": s.overbought}
}

func (s *Strategy) Prepare(frame *data.Frame) error {
	s.column = frame.EnsureRSI(s.window)
	return nil
}

func (s *Strategy) GenerateSignal(h data.History) (types.Signal, error) {
	if h.Len() < s.window+1 {
		return types.HoldSignal("insufficient history"), nil
	}
	rsi, ok := h.Column(s.column)
	if !ok {
		rsi = data.RSI(h.Closes(), s.window)
	}
	t := h.Len() - 1
	cur, prev := rsi.At(t), rsi.At(t-1)
	if !cur.Valid || !prev.Valid {
		// No losses in the window: the ratio is undefined. A crossing needs
		// both bars defined.
		return types.HoldSignal("rsi undefined"), nil
	}

	switch {
	case cur.Decimal.LessThan(s.oversold) && prev.Decimal.GreaterThanOrEqual(s.oversold):
		return types.BuySignal(quantity, fmt.Sprintf("rsi %s crossed below %s", cur.Decimal.StringFixed(2), s.oversold)), nil
	case cur.Decimal.GreaterThan(s.overbought) && prev.Decimal.LessThanOrEqual(s.overbought):
		return types.SellSignal(fmt.Sprintf("rsi %s crossed above %s", cur.Decimal.StringFixed(2), s.overbought)), nil
	}
	return types.HoldSignal("rsi inside thresholds"), nil
}
