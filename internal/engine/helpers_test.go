package engine

import (
	"barsim/internal/data"
	"barsim/types"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testBar(i int, closePrice string) types.Bar {
	c := dec(closePrice)
	return types.Bar{
		Symbol:    "AAPL",
		Timestamp: testStart.AddDate(0, 0, i),
		Open:      c,
		High:      c,
		Low:       c,
		Close:     c,
		Volume:    decimal.NewFromInt(1000),
	}
}

func rawCloses(closes ...float64) data.RawSeries {
	bars := make([]data.RawBar, len(closes))
	for i, c := range closes {
		bars[i] = data.RawBarFromFloats(testStart.AddDate(0, 0, i), c, c, c, c, 1000)
	}
	return data.NewRawSeries("AAPL", bars)
}

func testPortfolioConfig(t *testing.T, cash, rate, slippage string) *PortfolioConfig {
	t.Helper()
	cfg, err := NewPortfolioConfig(dec(cash), FlatCommission(dec(rate)), dec(slippage))
	require.NoError(t, err)
	return cfg
}

// scriptedStrategy emits a fixed action at given bar indices and holds elsewhere.
// It also records what it was shown so tests can check causality.
type scriptedStrategy struct {
	actions  map[int]types.Action
	err      error
	failAt   int
	seenLens []int
	seenCaps []int
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) Parameters() Params { return Params{} }

func (s *scriptedStrategy) Prepare(*data.Frame) error { return nil }

func (s *scriptedStrategy) GenerateSignal(h data.History) (types.Signal, error) {
	i := h.Len() - 1
	s.seenLens = append(s.seenLens, h.Len())
	s.seenCaps = append(s.seenCaps, cap(h.Closes()))
	if s.err != nil && i == s.failAt {
		return types.Signal{}, s.err
	}
	switch s.actions[i] {
	case types.ActionBuy:
		return types.BuySignal(decimal.NewFromInt(1), "scripted buy"), nil
	case types.ActionSell:
		return types.SellSignal("scripted sell"), nil
	}
	return types.HoldSignal("scripted hold"), nil
}

var errBoom = errors.New("boom")

// testRegistry registers strategies that hand out the given instance, so the
// test can inspect it after the run.
func testRegistry(t *testing.T, strat *scriptedStrategy) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register(Registration{
		Tag:      "scripted",
		Defaults: Params{},
		New:      func(Params) (Strategy, error) { return strat, nil },
	}))
	return r
}
