package rsi

import (
	"barsim/internal/data"
	"barsim/internal/engine"
	"barsim/types"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	hold = types.ActionHold
	buy  = types.ActionBuy
	sell = types.ActionSell
)

func rawCloses(closes ...float64) data.RawSeries {
	bars := make([]data.RawBar, len(closes))
	for i, c := range closes {
		bars[i] = data.RawBarFromFloats(start.AddDate(0, 0, i), c, c, c, c, 1000)
	}
	return data.NewRawSeries("AAPL", bars)
}

func newStrategy(t *testing.T, params engine.Params) engine.Strategy {
	t.Helper()
	r := engine.NewRegistry()
	require.NoError(t, r.Register(Registration()))
	s, err := r.Create(Tag, params)
	require.NoError(t, err)
	return s
}

func signals(t *testing.T, strat engine.Strategy, frame *data.Frame) []types.Action {
	t.Helper()
	out := make([]types.Action, frame.Len())
	for i := range out {
		sig, err := strat.GenerateSignal(frame.History(i))
		require.NoError(t, err)
		out[i] = sig.Action
	}
	return out
}

func process(t *testing.T, raw data.RawSeries) *data.Frame {
	t.Helper()
	frame, err := data.NewProcessor().Process(raw)
	require.NoError(t, err)
	return frame
}

// risingZigzag climbs 1.25 and falls 1 on alternate bars, which keeps RSI(14)
// near 55.6: above 50 but never overbought.
func risingZigzag(n int) []float64 {
	closes := make([]float64, n)
	closes[0] = 100
	for i := 1; i < n; i++ {
		if i%2 == 1 {
			closes[i] = closes[i-1] + 1.25
		} else {
			closes[i] = closes[i-1] - 1
		}
	}
	return closes
}

func TestStrategy_CrossesThresholds(t *testing.T) {
	// diffs +2 -1 +1 -2 +4: rsi(2) = undefined, undefined, 66.67, 50, 33.33, 66.67
	closes := []float64{10, 12, 11, 12, 10, 14}
	want := []types.Action{hold, hold, hold, hold, buy, sell}

	strat := newStrategy(t, engine.Params{"window": 2, "oversold": 40, "overbought": 60})
	frame := process(t, rawCloses(closes...))
	require.NoError(t, strat.Prepare(frame))
	assert.Equal(t, want, signals(t, strat, frame))

	unprepared := newStrategy(t, engine.Params{"window": 2, "oversold": 40, "overbought": 60})
	assert.Equal(t, want, signals(t, unprepared, process(t, rawCloses(closes...))))
}

func TestStrategy_UndefinedPreviousIsNotACrossing(t *testing.T) {
	rising := make([]float64, 17)
	for i := range 16 {
		rising[i] = 100 + float64(i)
	}
	// rsi is undefined until the first loss, then jumps straight to ~92.9
	rising[16] = rising[15] - 1

	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = 200 - float64(i)
	}

	tests := []struct {
		name   string
		closes []float64
		first  int
	}{
		{"first loss after a rally", rising, 16},
		{"first value already oversold", falling, 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strat := newStrategy(t, nil)
			frame := process(t, rawCloses(tt.closes...))
			require.NoError(t, strat.Prepare(frame))

			rsi, _ := frame.Column(frame.EnsureRSI(14))
			require.False(t, rsi[tt.first-1].Valid)
			require.True(t, rsi[tt.first].Valid)

			for i, a := range signals(t, strat, frame) {
				assert.Equal(t, hold, a, "bar %d", i)
			}
		})
	}
}

func TestStrategy_ZeroLossHolds(t *testing.T) {
	strat := newStrategy(t, engine.Params{"window": 3})
	frame := process(t, rawCloses(1, 2, 3, 4, 5, 6))
	require.NoError(t, strat.Prepare(frame))
	for i, a := range signals(t, strat, frame) {
		assert.Equal(t, hold, a, "bar %d", i)
	}
}

func TestStrategy_RisingSeriesNeverSells(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
	}{
		{name: "zigzag above 50", closes: risingZigzag(60)},
		{name: "straight line", closes: func() []float64 {
			c := make([]float64, 40)
			for i := range c {
				c[i] = 100 + float64(i)
			}
			return c
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := engine.NewRegistry()
			require.NoError(t, r.Register(Registration()))
			cfg, err := engine.NewPortfolioConfig(decimal.NewFromInt(10000), engine.FlatCommission(decimal.Zero), decimal.Zero)
			require.NoError(t, err)

			res, err := engine.NewEngine(r, engine.RunConfig{StrategyTag: Tag, Portfolio: cfg}).Run(rawCloses(tt.closes...))
			require.NoError(t, err)
			assert.Empty(t, res.Trades)
			require.Len(t, res.EquityCurve, len(tt.closes))
			for _, p := range res.EquityCurve {
				assert.True(t, p.Equity.Equal(decimal.NewFromInt(10000)))
			}
		})
	}

	frame := process(t, rawCloses(risingZigzag(60)...))
	rsi, _ := frame.Column(frame.EnsureRSI(14))
	fifty, seventy := decimal.NewFromInt(50), decimal.NewFromInt(70)
	for i := 14; i < 60; i++ {
		require.True(t, rsi[i].Valid)
		assert.True(t, rsi[i].Decimal.GreaterThan(fifty), "rsi[%d] = %s", i, rsi[i].Decimal)
		assert.True(t, rsi[i].Decimal.LessThan(seventy), "rsi[%d] = %s", i, rsi[i].Decimal)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []engine.Params{
		{"window": 0, "oversold": 30, "overbought": 70},
		{"window": 14, "oversold": 70, "overbought": 30},
		{"window": 14, "oversold": -1, "overbought": 70},
		{"window": 14, "oversold": 30, "overbought": 101},
		{"window": 14, "oversold": "low", "overbought": 70},
	}
	for _, p := range tests {
		_, err := New(p)
		assert.True(t, errors.Is(err, engine.ErrInvalidParameter), "%v: %v", p, err)
	}

	s := newStrategy(t, nil)
	params := s.Parameters()
	assert.Equal(t, 14, params["window"])
	assert.True(t, decimal.NewFromInt(30).Equal(params["oversold"].(decimal.Decimal)))
}
