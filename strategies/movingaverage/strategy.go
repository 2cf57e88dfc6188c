package movingaverage

import (
	"barsim/internal/data"
	"barsim/internal/engine"
	"barsim/types"
	"fmt"

	"github.com/shopspring/decimal"
)

const Tag = "moving_average"

var quantity = decimal.NewFromInt(1)

// Strategy buys one unit when the short SMA crosses above the long SMA and
// sells when it crosses back below.
type Strategy struct {
	shortWindow int
	longWindow  int
	shortColumn string
	longColumn  string
}

func Registration() engine.Registration {
	return engine.Registration{
		Tag:         Tag,
		Description: "SMA crossover: buy when the short average crosses above the long average, sell on the reverse cross",
		Defaults:    engine.Params{"short_window": 50, "long_window": 200},
		New:         New,
	}
}

func New(params engine.Params) (engine.Strategy, error) {
	short, err := params.Int("short_window")
	if err != nil {
		return nil, err
	}
	long, err := params.Int("long_window")
	if err != nil {
		return nil, err
	}
	if short <= 0 || long <= short {
		return nil, fmt.Errorf("%w: need 0 < short_window < long_window, got %d and %d", engine.ErrInvalidParameter, short, long)
	}
	return &Strategy{shortWindow: short, longWindow: long}, nil
}

func (s *Strategy) Name() string { return Tag }

func (s *Strategy) Parameters() engine.Params {
	return engine.Params{"short_window": s.shortWindow, "long_window": s.longWindow}
}

func (s *Strategy) Prepare(frame *data.Frame) error {
	s.shortColumn = frame.EnsureSMA(s.shortWindow)
	s.longColumn = frame.EnsureSMA(s.longWindow)
	return nil
}

func (s *Strategy) averages(h data.History) (short, long data.Series) {
	short, okShort := h.Column(s.shortColumn)
	long, okLong := h.Column(s.longColumn)
	if okShort && okLong {
		return short, long
	}
	// Not prepared: compute over the visible history only.
	return data.SMA(h.Closes(), s.shortWindow), data.SMA(h.Closes(), s.longWindow)
}

func (s *Strategy) GenerateSignal(h data.History) (types.Signal, error) {
	if h.Len() < s.longWindow {
		return types.HoldSignal("insufficient history"), nil
	}
	short, long := s.averages(h)
	t := h.Len() - 1

	switch {
	case compare(short, long, t) > 0 && compare(short, long, t-1) <= 0:
		return types.BuySignal(quantity, fmt.Sprintf("sma_%d crossed above sma_%d", s.shortWindow, s.longWindow)), nil
	case compare(short, long, t) < 0 && compare(short, long, t-1) >= 0:
		return types.SellSignal(fmt.Sprintf("sma_%d crossed below sma_%d", s.shortWindow, s.longWindow)), nil
	}
	return types.HoldSignal("no crossover"), nil
}

// compare returns the sign of a[i]-b[i], or 0 when either side is undefined.
// An undefined previous bar therefore counts as "not yet crossed".
func compare(a, b data.Series, i int) int {
	x, y := a.At(i), b.At(i)
	if !x.Valid || !y.Valid {
		return 0
	}
	return x.Decimal.Cmp(y.Decimal)
}
