package engine

import (
	"barsim/types"
	"bytes"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func curveOf(values ...string) []types.EquityPoint {
	curve := make([]types.EquityPoint, len(values))
	for i, v := range values {
		curve[i] = types.EquityPoint{Timestamp: testStart.AddDate(0, 0, i), Equity: dec(v)}
	}
	return curve
}

func TestCalculatePerformance(t *testing.T) {
	trades := []types.Trade{
		{Commission: dec("1.5")},
		{Commission: dec("2.25")},
	}
	m := CalculatePerformance(curveOf("100", "110", "99", "121"), trades)

	assert.Equal(t, 4, m.Bars)
	assert.Equal(t, 2, m.TotalTrades)
	assert.True(t, m.TotalCommission.Equal(dec("3.75")))
	assert.True(t, m.InitialEquity.Equal(dec("100")))
	assert.True(t, m.FinalEquity.Equal(dec("121")))
	assert.Equal(t, testStart, m.Start)
	assert.Equal(t, testStart.AddDate(0, 0, 3), m.End)

	assert.InDelta(t, 0.21, m.TotalReturn, 1e-12)
	assert.InEpsilon(t, math.Pow(1.21, 84)-1, m.AnnualReturn, 1e-9)
	assert.InDelta(t, 2.582275769, m.Volatility, 1e-6)
	assert.InEpsilon(t, m.AnnualReturn/m.Volatility, m.SharpeRatio, 1e-12)
	assert.InDelta(t, 0.1, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, 2.0/3.0, m.WinRate, 1e-12)
	assert.InDelta(t, 3.222222222, float64(m.ProfitFactor), 1e-6)
}

func TestCalculatePerformance_EdgeCases(t *testing.T) {
	tests := []struct {
		name             string
		curve            []types.EquityPoint
		wantDrawdown     float64
		wantProfitFactor Ratio
		wantWinRate      float64
		wantVolatility   float64
	}{
		{
			name:             "non-decreasing curve has no drawdown and infinite profit factor",
			curve:            curveOf("100", "100", "101", "105"),
			wantDrawdown:     0,
			wantProfitFactor: Ratio(math.Inf(1)),
			wantWinRate:      2.0 / 3.0,
			wantVolatility:   -1,
		},
		{
			name:             "flat curve",
			curve:            curveOf("100", "100", "100"),
			wantProfitFactor: 0,
		},
		{
			name:             "only losses",
			curve:            curveOf("100", "50", "25"),
			wantDrawdown:     0.75,
			wantProfitFactor: 0,
			wantVolatility:   0,
		},
		{
			name:             "single return has no volatility",
			curve:            curveOf("100", "110"),
			wantProfitFactor: Ratio(math.Inf(1)),
			wantWinRate:      1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := CalculatePerformance(tt.curve, nil)
			assert.InDelta(t, tt.wantDrawdown, m.MaxDrawdown, 1e-12)
			assert.GreaterOrEqual(t, m.MaxDrawdown, 0.0)
			assert.LessOrEqual(t, m.MaxDrawdown, 1.0)
			assert.Equal(t, tt.wantProfitFactor, m.ProfitFactor)
			assert.InDelta(t, tt.wantWinRate, m.WinRate, 1e-12)
			if tt.wantVolatility >= 0 {
				assert.InDelta(t, tt.wantVolatility, m.Volatility, 1e-12)
			}
			if m.Volatility == 0 {
				assert.Equal(t, 0.0, m.SharpeRatio)
			}
		})
	}
}

func TestCalculatePerformance_ShortCurves(t *testing.T) {
	empty := CalculatePerformance(nil, nil)
	assert.Equal(t, 0, empty.Bars)
	assert.True(t, empty.FinalEquity.IsZero())

	single := CalculatePerformance(curveOf("10000"), nil)
	assert.Equal(t, 1, single.Bars)
	assert.True(t, single.FinalEquity.Equal(dec("10000")))
	assert.Equal(t, 0.0, single.TotalReturn)
	assert.Equal(t, 0.0, single.SharpeRatio)
	assert.Equal(t, Ratio(0), single.ProfitFactor)
}

func TestCalculatePerformance_SameDayUsesOneDay(t *testing.T) {
	curve := []types.EquityPoint{
		{Timestamp: testStart, Equity: dec("100")},
		{Timestamp: testStart.Add(6 * time.Hour), Equity: dec("101")},
	}
	m := CalculatePerformance(curve, nil)
	assert.InEpsilon(t, math.Pow(1.01, 252)-1, m.AnnualReturn, 1e-9)
}

func TestMetrics_JSONInfiniteProfitFactor(t *testing.T) {
	m := CalculatePerformance(curveOf("100", "101"), nil)
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"profitFactor":"Infinity"`)

	var back Metrics
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, math.IsInf(float64(back.ProfitFactor), 1))
	assert.True(t, back.FinalEquity.Equal(decimal.NewFromInt(101)))
}

func TestPrintReport(t *testing.T) {
	res := &Results{
		Symbol:     "AAPL",
		Strategy:   "moving_average",
		Parameters: Params{"short_window": 2, "long_window": 3},
		Metrics:    CalculatePerformance(curveOf("10000", "10007"), []types.Trade{{Commission: dec("0")}}),
	}
	var buf bytes.Buffer
	PrintReport(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "Symbol:                AAPL")
	assert.Contains(t, out, "Final Equity:          10007.00")
	assert.Contains(t, out, "Total Trades:          1")
	assert.Contains(t, out, "Profit Factor:         inf")
}
