package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualises rolling volatility.
const TradingDaysPerYear = 252

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Shift moves values forward by n rows (a lag). Negative n looks ahead.
func Shift(x []float64, n int) []float64 {
	out := nanSlice(len(x))
	for i := range x {
		j := i - n
		if j >= 0 && j < len(x) {
			out[i] = x[j]
		}
	}
	return out
}

// Diff returns x[i] - x[i-n].
func Diff(x []float64, n int) []float64 {
	lagged := Shift(x, n)
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] - lagged[i]
	}
	return out
}

// PctChange returns the relative change over n rows.
func PctChange(x []float64, n int) []float64 {
	lagged := Shift(x, n)
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i]/lagged[i] - 1
	}
	return out
}

// RollingMean is the trailing mean over window rows; undefined until the window fills
// and wherever the window holds a missing value.
func RollingMean(x []float64, window int) []float64 {
	return rolling(x, window, func(w []float64) float64 { return stat.Mean(w, nil) })
}

// RollingStd is the trailing sample standard deviation over window rows.
func RollingStd(x []float64, window int) []float64 {
	return rolling(x, window, func(w []float64) float64 { return stat.StdDev(w, nil) })
}

func rolling(x []float64, window int, fn func([]float64) float64) []float64 {
	out := nanSlice(len(x))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(x); i++ {
		w := x[i-window+1 : i+1]
		if hasNaN(w) {
			continue
		}
		out[i] = fn(w)
	}
	return out
}

// EMA is the recursive exponential moving average with alpha = 2/(span+1),
// seeded with the first value.
func EMA(x []float64, span int) []float64 {
	out := nanSlice(len(x))
	if len(x) == 0 || span <= 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1)
	prev := math.NaN()
	for i, v := range x {
		switch {
		case math.IsNaN(v):
			out[i] = prev
			continue
		case math.IsNaN(prev):
			prev = v
		default:
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// RSI is the relative strength index using simple rolling means of gains and losses.
func RSI(prices []float64, period int) []float64 {
	delta := Diff(prices, 1)
	gains := make([]float64, len(delta))
	losses := make([]float64, len(delta))
	for i, d := range delta {
		if d > 0 {
			gains[i] = d
		} else if d < 0 {
			losses[i] = -d
		}
	}

	avgGain := RollingMean(gains, period)
	avgLoss := RollingMean(losses, period)

	out := nanSlice(len(prices))
	for i := range prices {
		g, l := avgGain[i], avgLoss[i]
		switch {
		case math.IsNaN(g) || math.IsNaN(l):
		case l == 0 && g == 0:
		case l == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+g/l)
		}
	}
	return out
}

// MACD returns the MACD line, its signal line and the histogram.
func MACD(prices []float64, fast, slow, signal int) (line, sig, hist []float64) {
	emaFast := EMA(prices, fast)
	emaSlow := EMA(prices, slow)
	line = make([]float64, len(prices))
	for i := range prices {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig = EMA(line, signal)
	hist = make([]float64, len(prices))
	for i := range prices {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// Bollinger returns the upper, middle and lower bands.
func Bollinger(prices []float64, period int, width float64) (upper, middle, lower []float64) {
	middle = RollingMean(prices, period)
	std := RollingStd(prices, period)
	upper = make([]float64, len(prices))
	lower = make([]float64, len(prices))
	for i := range prices {
		upper[i] = middle[i] + std[i]*width
		lower[i] = middle[i] - std[i]*width
	}
	return upper, middle, lower
}

// Volatility is the annualised rolling standard deviation of returns.
func Volatility(prices []float64, period int) []float64 {
	std := RollingStd(PctChange(prices, 1), period)
	scale := math.Sqrt(TradingDaysPerYear)
	for i := range std {
		std[i] *= scale
	}
	return std
}

// RateOfChange is the percentage change over period rows.
func RateOfChange(prices []float64, period int) []float64 {
	out := PctChange(prices, period)
	for i := range out {
		out[i] *= 100
	}
	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
