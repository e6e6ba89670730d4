package features

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// Column names outside the model feature set.
const (
	ColPrice           = "price"
	ColFuturePrice     = "future_price"
	ColTargetDirection = "target_direction"
	ColTargetReturn    = "target_return"
	ColVolatility      = "volatility"
)

// ErrInsufficientHistory is returned when there are too few price points to build a frame.
var ErrInsufficientHistory = errors.New("insufficient price history")

var lags = []int{1, 2, 3, 5, 10}

var featureNames = []string{
	"returns", "log_returns", "rsi", "macd", "macd_signal", "macd_histogram",
	"bb_width", "bb_position", "sma_5", "sma_10", "sma_20",
	"ema_5", "ema_10", "ema_20", "price_to_sma_20", "sma_5_to_sma_20",
	ColVolatility, "momentum_10", "roc_10", "hour", "day_of_week", "is_weekend",
	"price_lag_1", "price_lag_2", "price_lag_3", "price_lag_5", "price_lag_10",
	"returns_lag_1", "returns_lag_2", "returns_lag_3", "returns_lag_5", "returns_lag_10",
}

// FeatureNames returns the ordered model input columns.
func FeatureNames() []string {
	return append([]string(nil), featureNames...)
}

// Params configures indicator windows and the target shift.
type Params struct {
	RSIPeriod      int
	MACDFast       int
	MACDSlow       int
	MACDSignal     int
	HorizonPeriods int
}

// DefaultParams returns the standard indicator settings for a 30 minute horizon on 5 minute data.
func DefaultParams() Params {
	return Params{
		RSIPeriod:      14,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		HorizonPeriods: 6,
	}
}

// Engineer builds feature frames from price history.
type Engineer struct {
	params Params
}

// NewEngineer creates an Engineer.
func NewEngineer(params Params) *Engineer {
	if params.HorizonPeriods < 1 {
		params.HorizonPeriods = 1
	}
	return &Engineer{params: params}
}

// Build computes every indicator, time feature, lag and target for the
// ascending price history. Rows keep NaN where a value is undefined.
func (e *Engineer) Build(points []models.PricePoint) (*Frame, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: got %d points", ErrInsufficientHistory, len(points))
	}

	n := len(points)
	timestamps := make([]time.Time, n)
	prices := make([]float64, n)
	for i, p := range points {
		timestamps[i] = p.Timestamp.UTC()
		prices[i] = p.Price
	}

	frame := NewFrame(timestamps)
	frame.Set(ColPrice, prices)

	returns := PctChange(prices, 1)
	frame.Set("returns", returns)

	lagged := Shift(prices, 1)
	logReturns := make([]float64, n)
	for i := range prices {
		logReturns[i] = math.Log(prices[i] / lagged[i])
	}
	frame.Set("log_returns", logReturns)

	frame.Set("rsi", RSI(prices, e.params.RSIPeriod))

	macd, signal, hist := MACD(prices, e.params.MACDFast, e.params.MACDSlow, e.params.MACDSignal)
	frame.Set("macd", macd)
	frame.Set("macd_signal", signal)
	frame.Set("macd_histogram", hist)

	upper, middle, lower := Bollinger(prices, 20, 2)
	width := make([]float64, n)
	position := make([]float64, n)
	for i := range prices {
		width[i] = (upper[i] - lower[i]) / middle[i]
		position[i] = (prices[i] - lower[i]) / (upper[i] - lower[i])
	}
	frame.Set("bb_width", width)
	frame.Set("bb_position", position)

	sma5 := RollingMean(prices, 5)
	sma20 := RollingMean(prices, 20)
	frame.Set("sma_5", sma5)
	frame.Set("sma_10", RollingMean(prices, 10))
	frame.Set("sma_20", sma20)
	frame.Set("ema_5", EMA(prices, 5))
	frame.Set("ema_10", EMA(prices, 10))
	frame.Set("ema_20", EMA(prices, 20))

	priceToSMA := make([]float64, n)
	smaRatio := make([]float64, n)
	for i := range prices {
		priceToSMA[i] = prices[i] / sma20[i]
		smaRatio[i] = sma5[i] / sma20[i]
	}
	frame.Set("price_to_sma_20", priceToSMA)
	frame.Set("sma_5_to_sma_20", smaRatio)

	frame.Set(ColVolatility, Volatility(prices, 20))
	frame.Set("momentum_10", Diff(prices, 10))
	frame.Set("roc_10", RateOfChange(prices, 10))

	hours := make([]float64, n)
	weekdays := make([]float64, n)
	weekend := make([]float64, n)
	for i, ts := range timestamps {
		hours[i] = float64(ts.Hour())
		// Monday=0 .. Sunday=6
		day := (int(ts.Weekday()) + 6) % 7
		weekdays[i] = float64(day)
		if day >= 5 {
			weekend[i] = 1
		}
	}
	frame.Set("hour", hours)
	frame.Set("day_of_week", weekdays)
	frame.Set("is_weekend", weekend)

	for _, lag := range lags {
		frame.Set(fmt.Sprintf("price_lag_%d", lag), Shift(prices, lag))
		frame.Set(fmt.Sprintf("returns_lag_%d", lag), Shift(returns, lag))
	}

	future := Shift(prices, -e.params.HorizonPeriods)
	direction := make([]float64, n)
	targetReturn := make([]float64, n)
	for i := range prices {
		if math.IsNaN(future[i]) {
			direction[i] = math.NaN()
		} else if future[i] > prices[i] {
			direction[i] = 1
		}
		targetReturn[i] = (future[i] - prices[i]) / prices[i]
	}
	frame.Set(ColFuturePrice, future)
	frame.Set(ColTargetDirection, direction)
	frame.Set(ColTargetReturn, targetReturn)

	return frame, nil
}
