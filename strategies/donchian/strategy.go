package donchian

import (
	"barsim/internal/data"
	"barsim/internal/engine"
	"barsim/types"
	"fmt"

	"github.com/shopspring/decimal"
)

const Tag = "donchian"

var quantity = decimal.NewFromInt(1)

// Strategy trades channel breakouts: buy a close above the highest high of
// the preceding window bars, sell a close below their lowest low.
type Strategy struct {
	window      int
	upperColumn string
	lowerColumn string
}

func Registration() engine.Registration {
	return engine.Registration{
		Tag:         Tag,
		Description: "Donchian breakout: buy a break of the preceding high, sell a break of the preceding low",
		Defaults:    engine.Params{"window": 20},
		New:         New,
	}
}

func New(params engine.Params) (engine.Strategy, error) {
	window, err := params.Int("window")
	if err != nil {
		return nil, err
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", engine.ErrInvalidParameter, window)
	}
	return &Strategy{window: window}, nil
}

func (s *Strategy) Name() string { return Tag }

func (s *Strategy) Parameters() engine.Params {
	return engine.Params{"window": s.window}
}

func (s *Strategy) Prepare(frame *data.Frame) error {
	s.upperColumn, s.lowerColumn = frame.EnsureDonchian(s.window)
	return nil
}

func (s *Strategy) GenerateSignal(h data.History) (types.Signal, error) {
	// window completed bars for the channel plus the current one
	if h.Len() < s.window+1 {
		return types.HoldSignal("insufficient history"), nil
	}
	candle := h.Current()
	highestHigh, lowestLow := s.channel(h)

	if candle.Close.GreaterThan(highestHigh) {
		return types.BuySignal(quantity, fmt.Sprintf("close %s broke highest high %s of preceding %d bars", candle.Close, highestHigh, s.window)), nil
	}
	if candle.Close.LessThan(lowestLow) {
		return types.SellSignal(fmt.Sprintf("close %s broke lowest low %s of preceding %d bars", candle.Close, lowestLow, s.window)), nil
	}
	return types.HoldSignal("inside channel"), nil
}

func (s *Strategy) channel(h data.History) (decimal.Decimal, decimal.Decimal) {
	upper, okUpper := h.Column(s.upperColumn)
	lower, okLower := h.Column(s.lowerColumn)
	if okUpper && okLower {
		return upper.Last().Decimal, lower.Last().Decimal
	}
	bars := h.Bars()
	return donchianHighLow(bars[len(bars)-1-s.window : len(bars)-1])
}

// donchianHighLow is the highest high and lowest low of the given bars.
func donchianHighLow(bars []types.Bar) (decimal.Decimal, decimal.Decimal) {
	if len(bars) == 0 {
		return decimal.Zero, decimal.Zero
	}

	highest := bars[0].High
	lowest := bars[0].Low

	for _, c := range bars {
		if c.High.GreaterThan(highest) {
			highest = c.High
		}
		if c.Low.LessThan(lowest) {
			lowest = c.Low
		}
	}
	return highest, lowest
}
