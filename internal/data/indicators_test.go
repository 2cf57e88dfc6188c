package data

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimals(vs ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vs))
	for i, v := range vs {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

// assertSeries compares s against want, where nil marks an undefined entry.
func assertSeries(t *testing.T, want []*float64, s Series, places int32) {
	t.Helper()
	require.Len(t, s, len(want))
	for i, w := range want {
		if w == nil {
			assert.False(t, s[i].Valid, "index %d should be undefined, got %s", i, s[i].Decimal)
			continue
		}
		require.True(t, s[i].Valid, "index %d should be defined", i)
		assert.Equal(t, decimal.NewFromFloat(*w).Round(places).String(), s[i].Decimal.Round(places).String(), "index %d", i)
	}
}

func fp(v float64) *float64 { return &v }

func TestSMA(t *testing.T) {
	closes := decimals(100, 102, 101, 105, 110, 108)
	assertSeries(t, []*float64{nil, fp(101), fp(101.5), fp(103), fp(107.5), fp(109)}, SMA(closes, 2), 8)
	assertSeries(t, []*float64{nil, nil, fp(101), fp(102.66666667), fp(105.33333333), fp(107.66666667)}, SMA(closes, 3), 8)
	assertSeries(t, []*float64{nil, nil}, SMA(decimals(1, 2), 3), 8)
}

func TestEMA(t *testing.T) {
	// span 3 -> alpha 0.5
	assertSeries(t, []*float64{nil, nil, fp(2.25), fp(3.125)}, EMA(decimals(1, 2, 3, 4), 3), 8)
	assertSeries(t, []*float64{fp(5), fp(5)}, EMA(decimals(5, 5), 1), 8)
}

func TestRollingStd(t *testing.T) {
	assertSeries(t, []*float64{nil, nil, fp(1), fp(1), fp(2.081666)}, RollingStd(decimals(1, 2, 3, 4, 7), 3), 6)
	assertSeries(t, []*float64{nil, nil}, RollingStd(decimals(1, 2), 1), 6)
}

func TestBollinger(t *testing.T) {
	middle, upper, lower := Bollinger(decimals(1, 2, 3), 3, decimal.NewFromInt(2))
	assertSeries(t, []*float64{nil, nil, fp(2)}, middle, 6)
	assertSeries(t, []*float64{nil, nil, fp(4)}, upper, 6)
	assertSeries(t, []*float64{nil, nil, fp(0)}, lower, 6)
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		window int
		want   []*float64
	}{
		{
			name:   "only gains stays undefined",
			closes: []float64{1, 2, 3, 4, 5},
			window: 2,
			want:   []*float64{nil, nil, nil, nil, nil},
		},
		{
			name:   "mixed window",
			closes: []float64{10, 12, 11, 12, 10},
			window: 2,
			// diffs: +2 -1 +1 -2
			want: []*float64{nil, nil, fp(66.666667), fp(50), fp(33.333333)},
		},
		{
			name:   "only losses is zero",
			closes: []float64{5, 4, 3},
			window: 2,
			want:   []*float64{nil, nil, fp(0)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertSeries(t, tt.want, RSI(decimals(tt.closes...), tt.window), 6)
		})
	}
}

func TestMACD(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 50
	}
	macd, signal, hist := MACD(decimals(closes...), 12, 26, 9)
	for i := 0; i < 40; i++ {
		assert.Equal(t, i >= 25, macd[i].Valid, "macd %d", i)
		assert.Equal(t, i >= 33, signal[i].Valid, "signal %d", i)
		assert.Equal(t, i >= 33, hist[i].Valid, "hist %d", i)
		if macd[i].Valid {
			assert.True(t, macd[i].Decimal.IsZero())
		}
	}
}

func TestMACD_SignalSeededAtFirstBar(t *testing.T) {
	closes := make([]float64, 45)
	for i := range closes {
		closes[i] = 100 + float64(i*i)/10
	}
	step := func(prev, v float64, span int) float64 {
		alpha := 2 / float64(span+1)
		return v*alpha + prev*(1-alpha)
	}
	fast, slow := closes[0], closes[0]
	line := make([]float64, len(closes))
	sig := make([]float64, len(closes))
	for i, c := range closes {
		if i > 0 {
			fast, slow = step(fast, c, 12), step(slow, c, 26)
		}
		line[i] = fast - slow
		sig[i] = line[i]
		if i > 0 {
			sig[i] = step(sig[i-1], line[i], 9)
		}
	}

	macd, signal, hist := MACD(decimals(closes...), 12, 26, 9)
	for _, i := range []int{33, 38, 44} {
		require.True(t, signal[i].Valid)
		assert.InDelta(t, line[i], macd[i].Decimal.InexactFloat64(), 1e-9, "macd %d", i)
		assert.InDelta(t, sig[i], signal[i].Decimal.InexactFloat64(), 1e-9, "signal %d", i)
		assert.InDelta(t, line[i]-sig[i], hist[i].Decimal.InexactFloat64(), 1e-9, "hist %d", i)
	}
}

func TestDonchian(t *testing.T) {
	highs := decimals(5, 7, 6, 4, 8, 3)
	lows := decimals(3, 4, 2, 1, 5, 2)
	upper, lower := Donchian(highs, lows, 3)
	assertSeries(t, []*float64{nil, nil, nil, fp(7), fp(7), fp(8)}, upper, 4)
	assertSeries(t, []*float64{nil, nil, nil, fp(2), fp(1), fp(1)}, lower, 4)
}

func TestPctChange(t *testing.T) {
	assertSeries(t, []*float64{nil, fp(0.5), fp(-1), nil}, PctChange(decimals(2, 3, 0, 4)), 8)
}
