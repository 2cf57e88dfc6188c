package engine

import (
	"barsim/types"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const tradingDaysPerYear = 252

// Ratio is a float metric that may be +Inf. JSON has no infinity literal, so
// infinite values are encoded as the string "Infinity".
type Ratio float64

func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(f)
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"Infinity"`:
		*r = Ratio(math.Inf(1))
		return nil
	case `"-Infinity"`:
		*r = Ratio(math.Inf(-1))
		return nil
	case `"NaN"`:
		*r = Ratio(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("decode ratio: %w", err)
	}
	*r = Ratio(f)
	return nil
}

// Metrics summarises a finished equity curve. Return based figures use
// bar-over-bar equity returns, not per-trade profit and loss.
type Metrics struct {
	Start           time.Time       `json:"start"`
	End             time.Time       `json:"end"`
	Bars            int             `json:"bars"`
	TotalTrades     int             `json:"totalTrades"`
	TotalCommission decimal.Decimal `json:"totalCommission"`
	InitialEquity   decimal.Decimal `json:"initialEquity"`
	FinalEquity     decimal.Decimal `json:"finalEquity"`

	TotalReturn  float64 `json:"totalReturn"`
	AnnualReturn float64 `json:"annualReturn"`
	Volatility   float64 `json:"volatility"`
	SharpeRatio  float64 `json:"sharpeRatio"`
	MaxDrawdown  float64 `json:"maxDrawdown"`
	WinRate      float64 `json:"winRate"`
	ProfitFactor Ratio   `json:"profitFactor"`
}

// CalculatePerformance derives Metrics from a chronological equity curve.
// Curves with fewer than two points only get the informational fields.
func CalculatePerformance(curve []types.EquityPoint, trades []types.Trade) Metrics {
	m := Metrics{
		Bars:            len(curve),
		TotalTrades:     len(trades),
		TotalCommission: decimal.Zero,
	}
	for _, t := range trades {
		m.TotalCommission = m.TotalCommission.Add(t.Commission)
	}
	if len(curve) == 0 {
		return m
	}
	first, last := curve[0], curve[len(curve)-1]
	m.Start, m.End = first.Timestamp, last.Timestamp
	m.InitialEquity, m.FinalEquity = first.Equity, last.Equity
	if len(curve) < 2 {
		return m
	}

	m.TotalReturn = calcTotalReturn(first.Equity, last.Equity)
	m.AnnualReturn = calcAnnualReturn(m.TotalReturn, first.Timestamp, last.Timestamp)

	returns := calcReturns(curve)
	m.Volatility = calcVolatility(returns)
	if m.Volatility != 0 {
		m.SharpeRatio = m.AnnualReturn / m.Volatility
	}
	m.MaxDrawdown = calcMaxDrawdown(curve)
	m.WinRate = calcWinRate(returns)
	m.ProfitFactor = calcProfitFactor(returns)
	return m
}

func calcTotalReturn(start, end decimal.Decimal) float64 {
	if start.IsZero() {
		return 0
	}
	return end.Div(start).Sub(one).InexactFloat64()
}

// calcAnnualReturn compounds the total return over 252 trading days per
// calendar day elapsed, with at least one day.
func calcAnnualReturn(totalReturn float64, start, end time.Time) float64 {
	days := int(end.Sub(start) / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	growth := 1 + totalReturn
	if growth <= 0 {
		return -1
	}
	return math.Pow(growth, float64(tradingDaysPerYear)/float64(days)) - 1
}

// calcReturns is the relative change between consecutive equity points.
// Points following a zero equity are skipped.
func calcReturns(curve []types.EquityPoint) []float64 {
	returns := make([]float64, 0, len(curve))
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev.IsZero() {
			continue
		}
		returns = append(returns, curve[i].Equity.Div(prev).Sub(one).InexactFloat64())
	}
	return returns
}

// calcVolatility is the sample standard deviation of returns annualised by sqrt(252).
func calcVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var varianceSum float64
	for _, r := range returns {
		diff := r - mean
		varianceSum += diff * diff
	}
	std := math.Sqrt(varianceSum / float64(len(returns)-1))
	return std * math.Sqrt(tradingDaysPerYear)
}

func calcMaxDrawdown(curve []types.EquityPoint) float64 {
	peak := curve[0].Equity
	maxDD := decimal.Zero
	for _, p := range curve {
		if p.Equity.GreaterThan(peak) {
			peak = p.Equity
		}
		if !peak.IsPositive() {
			continue
		}
		dd := one.Sub(p.Equity.Div(peak))
		if dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD.InexactFloat64()
}

func calcWinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

func calcProfitFactor(returns []float64) Ratio {
	var grossProfit, grossLoss float64
	for _, r := range returns {
		switch {
		case r > 0:
			grossProfit += r
		case r < 0:
			grossLoss += -r
		}
	}
	switch {
	case grossLoss != 0:
		return Ratio(grossProfit / grossLoss)
	case grossProfit > 0:
		return Ratio(math.Inf(1))
	}
	return 0
}

func formatRatio(r Ratio) string {
	if math.IsInf(float64(r), 1) {
		return "inf"
	}
	return fmt.Sprintf("%.4f", float64(r))
}

// PrintReport writes a plain text summary of res to w.
func PrintReport(w io.Writer, res *Results) {
	m := res.Metrics
	fmt.Fprintln(w, "===== Backtest Report =====")
	fmt.Fprintf(w, "Symbol:                %s\n", res.Symbol)
	fmt.Fprintf(w, "Strategy:              %s %v\n", res.Strategy, map[string]any(res.Parameters))
	fmt.Fprintf(w, "Period:                %s - %s\n", m.Start.Format(time.DateOnly), m.End.Format(time.DateOnly))
	fmt.Fprintf(w, "Bars:                  %d\n", m.Bars)
	fmt.Fprintf(w, "Total Trades:          %d\n", m.TotalTrades)

	fmt.Fprintln(w, "\n-- Equity --")
	fmt.Fprintf(w, "Initial Equity:        %s\n", m.InitialEquity.StringFixed(2))
	fmt.Fprintf(w, "Final Equity:          %s\n", m.FinalEquity.StringFixed(2))
	fmt.Fprintf(w, "Total Return:          %.2f%%\n", m.TotalReturn*100)
	fmt.Fprintf(w, "Annual Return:         %.2f%%\n", m.AnnualReturn*100)

	fmt.Fprintln(w, "\n-- Risk --")
	fmt.Fprintf(w, "Volatility:            %.4f\n", m.Volatility)
	fmt.Fprintf(w, "Sharpe Ratio:          %.4f\n", m.SharpeRatio)
	fmt.Fprintf(w, "Max Drawdown %%:        %.2f%%\n", m.MaxDrawdown*100)

	fmt.Fprintln(w, "\n-- Bar Returns --")
	fmt.Fprintf(w, "Win Rate:              %.2f%%\n", m.WinRate*100)
	fmt.Fprintf(w, "Profit Factor:         %s\n", formatRatio(m.ProfitFactor))

	fmt.Fprintln(w, "\n-- Costs --")
	fmt.Fprintf(w, "Total Commission:      %s\n", m.TotalCommission.StringFixed(2))
	fmt.Fprintln(w, "===========================")
}
