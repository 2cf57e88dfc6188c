package data

import (
	"math"

	"github.com/shopspring/decimal"
)

// emaPrecision bounds the number of decimal places carried through the
// recursive EMA so values do not grow without limit.
const emaPrecision = 16

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// SMA is the simple moving average over window values. The first window-1
// entries are undefined.
func SMA(values []decimal.Decimal, window int) Series {
	out := make(Series, len(values))
	if window <= 0 {
		return out
	}
	n := decimal.NewFromInt(int64(window))
	sum := decimal.Zero
	for i, v := range values {
		sum = sum.Add(v)
		if i >= window {
			sum = sum.Sub(values[i-window])
		}
		if i >= window-1 {
			out[i] = Valid(sum.Div(n))
		}
	}
	return out
}

// EMA is the recursive exponential moving average with alpha 2/(span+1),
// seeded with the first value. Entries before span-1 are undefined even
// though the recursion starts at index 0.
func EMA(values []decimal.Decimal, span int) Series {
	out := make(Series, len(values))
	if span <= 0 {
		return out
	}
	for i, v := range ewm(values, span) {
		if i >= span-1 {
			out[i] = Valid(v)
		}
	}
	return out
}

// ewm is the unmasked EMA recursion over every value.
func ewm(values []decimal.Decimal, span int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := two.Div(decimal.NewFromInt(int64(span + 1)))
	keep := decimal.NewFromInt(1).Sub(alpha)
	ema := values[0]
	for i, v := range values {
		if i > 0 {
			ema = v.Mul(alpha).Add(ema.Mul(keep)).Round(emaPrecision)
		}
		out[i] = ema
	}
	return out
}

// RollingStd is the sample standard deviation (n-1 denominator) over window
// values. Windows shorter than 2 are undefined everywhere.
func RollingStd(values []decimal.Decimal, window int) Series {
	out := make(Series, len(values))
	if window < 2 {
		return out
	}
	n := decimal.NewFromInt(int64(window))
	dof := decimal.NewFromInt(int64(window - 1))
	sum, sumSq := decimal.Zero, decimal.Zero
	for i, v := range values {
		sum = sum.Add(v)
		sumSq = sumSq.Add(v.Mul(v))
		if i >= window {
			old := values[i-window]
			sum = sum.Sub(old)
			sumSq = sumSq.Sub(old.Mul(old))
		}
		if i < window-1 {
			continue
		}
		variance := sumSq.Sub(sum.Mul(sum).Div(n)).Div(dof).InexactFloat64()
		if variance < 0 {
			variance = 0
		}
		out[i] = Valid(decimal.NewFromFloat(math.Sqrt(variance)))
	}
	return out
}

// Bollinger returns the middle (SMA), upper and lower bands at k standard
// deviations.
func Bollinger(values []decimal.Decimal, window int, k decimal.Decimal) (middle, upper, lower Series) {
	middle = SMA(values, window)
	std := RollingStd(values, window)
	upper = make(Series, len(values))
	lower = make(Series, len(values))
	for i := range values {
		if !middle[i].Valid || !std[i].Valid {
			continue
		}
		width := std[i].Decimal.Mul(k)
		upper[i] = Valid(middle[i].Decimal.Add(width))
		lower[i] = Valid(middle[i].Decimal.Sub(width))
	}
	return middle, upper, lower
}

// RSI uses simple rolling means of gains and losses over window close-to-close
// changes, so the first defined value is at index window. A window with no
// losses has no defined ratio and is left undefined.
func RSI(values []decimal.Decimal, window int) Series {
	out := make(Series, len(values))
	if window <= 0 {
		return out
	}
	gains := make([]decimal.Decimal, len(values))
	losses := make([]decimal.Decimal, len(values))
	for i := 1; i < len(values); i++ {
		delta := values[i].Sub(values[i-1])
		if delta.IsPositive() {
			gains[i] = delta
		} else {
			losses[i] = delta.Neg()
		}
	}
	gainSum, lossSum := decimal.Zero, decimal.Zero
	for i := 1; i < len(values); i++ {
		gainSum = gainSum.Add(gains[i])
		lossSum = lossSum.Add(losses[i])
		if i > window {
			gainSum = gainSum.Sub(gains[i-window])
			lossSum = lossSum.Sub(losses[i-window])
		}
		if i < window || lossSum.IsZero() {
			continue
		}
		// The window sizes cancel in the ratio of means.
		ratio := gainSum.Div(lossSum)
		out[i] = Valid(hundred.Sub(hundred.Div(ratio.Add(decimal.NewFromInt(1)))))
	}
	return out
}

// MACD returns the fast-slow EMA difference, its signal EMA and the histogram.
// All recursions run from the first bar; only the warm-up is hidden: the
// MACD line until slow-1 and the signal line until slow+signal-2.
func MACD(values []decimal.Decimal, fast, slow, signal int) (macd, signalLine, histogram Series) {
	macd = make(Series, len(values))
	signalLine = make(Series, len(values))
	histogram = make(Series, len(values))
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return macd, signalLine, histogram
	}
	fastEMA, slowEMA := ewm(values, fast), ewm(values, slow)
	line := make([]decimal.Decimal, len(values))
	for i := range values {
		line[i] = fastEMA[i].Sub(slowEMA[i])
	}
	sig := ewm(line, signal)

	warmup := max(fast, slow) - 1
	for i := range values {
		if i >= warmup {
			macd[i] = Valid(line[i])
		}
		if i >= warmup+signal-1 {
			signalLine[i] = Valid(sig[i])
			histogram[i] = Valid(line[i].Sub(sig[i]))
		}
	}
	return macd, signalLine, histogram
}

// Donchian returns the highest high and lowest low of the window bars
// preceding each index, excluding the bar itself.
func Donchian(highs, lows []decimal.Decimal, window int) (upper, lower Series) {
	upper = make(Series, len(highs))
	lower = make(Series, len(lows))
	if window <= 0 {
		return upper, lower
	}
	// Monotonic deques of indices: maxQ keeps decreasing highs, minQ increasing lows.
	var maxQ, minQ []int
	for i := range highs {
		if i >= window {
			upper[i] = Valid(highs[maxQ[0]])
			lower[i] = Valid(lows[minQ[0]])
		}
		for len(maxQ) > 0 && highs[maxQ[len(maxQ)-1]].LessThanOrEqual(highs[i]) {
			maxQ = maxQ[:len(maxQ)-1]
		}
		maxQ = append(maxQ, i)
		for len(minQ) > 0 && lows[minQ[len(minQ)-1]].GreaterThanOrEqual(lows[i]) {
			minQ = minQ[:len(minQ)-1]
		}
		minQ = append(minQ, i)
		if maxQ[0] <= i-window {
			maxQ = maxQ[1:]
		}
		if minQ[0] <= i-window {
			minQ = minQ[1:]
		}
	}
	return upper, lower
}

// PctChange is the bar-over-bar relative change, undefined at index 0 and
// wherever the previous value is zero.
func PctChange(values []decimal.Decimal) Series {
	out := make(Series, len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1].IsZero() {
			continue
		}
		out[i] = Valid(values[i].Div(values[i-1]).Sub(decimal.NewFromInt(1)))
	}
	return out
}
