package features

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// Analysis defaults.
const (
	TrendWindow      = 20
	AnomalyWindow    = 20
	AnomalyThreshold = 2.0
	maxAnomalies     = 10
	topCorrelations  = 5
	tradingDays      = 252
)

// CorrelationColumns are the columns compared by the EDA report.
var CorrelationColumns = []string{ColPrice, "rsi", "macd", ColVolatility, "momentum_10"}

// Trend labels.
const (
	TrendBullish          = "bullish"
	TrendBearish          = "bearish"
	TrendNeutral          = "neutral"
	TrendInsufficientData = "insufficient_data"
)

// TrendReport compares the last price with its simple moving average.
type TrendReport struct {
	Trend        string  `json:"trend"`
	Strength     float64 `json:"strength"`
	CurrentPrice float64 `json:"current_price,omitempty"`
	SMA          float64 `json:"sma_20,omitempty"`
	SlopePct     float64 `json:"slope_pct"`
	Description  string  `json:"description,omitempty"`
}

// Trend labels the price series bullish when the last price sits more than 2%
// above its window SMA, bearish when more than 2% below, neutral otherwise.
// Strength is ten times the relative gap, capped at 1.
func Trend(prices []float64, window int) TrendReport {
	if window <= 0 || len(prices) < window {
		return TrendReport{Trend: TrendInsufficientData}
	}

	sma := RollingMean(prices, window)
	current := prices[len(prices)-1]
	maCurrent := sma[len(sma)-1]
	if math.IsNaN(maCurrent) || maCurrent == 0 {
		return TrendReport{Trend: TrendInsufficientData}
	}

	defined := make([]float64, 0, len(sma))
	for _, v := range sma {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	slopePct := 0.0
	if len(defined) > 5 && current != 0 {
		recent := defined[len(defined)-5:]
		slope := (recent[len(recent)-1] - recent[0]) / float64(len(recent))
		slopePct = slope / current * 100
	}

	report := TrendReport{
		CurrentPrice: models.RoundPrice(current),
		SMA:          models.RoundPrice(maCurrent),
		SlopePct:     models.Round(slopePct, 4),
	}
	switch {
	case current > maCurrent*1.02:
		report.Trend = TrendBullish
		report.Strength = math.Min(1, (current/maCurrent-1)*10)
	case current < maCurrent*0.98:
		report.Trend = TrendBearish
		report.Strength = math.Min(1, (1-current/maCurrent)*10)
	default:
		report.Trend = TrendNeutral
		report.Strength = 0.2
	}
	report.Strength = models.Round(report.Strength, 2)
	report.Description = fmt.Sprintf("%s%s trend with %.0f%% strength",
		strings.ToUpper(report.Trend[:1]), report.Trend[1:], report.Strength*100)
	return report
}

// Anomaly is a price more than the threshold number of rolling standard
// deviations away from its rolling mean.
type Anomaly struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     float64         `json:"price"`
	ZScore    float64         `json:"z_score"`
	Type      string          `json:"type"`
	Severity  models.Severity `json:"severity"`
}

// Anomalies returns the newest ten points whose rolling z-score exceeds
// threshold in magnitude. |z| above 3 is high severity.
func Anomalies(timestamps []time.Time, prices []float64, window int, threshold float64) []Anomaly {
	if window <= 1 || len(prices) < window || len(timestamps) != len(prices) {
		return []Anomaly{}
	}

	mean := RollingMean(prices, window)
	std := RollingStd(prices, window)

	out := []Anomaly{}
	for i, p := range prices {
		if math.IsNaN(mean[i]) || math.IsNaN(std[i]) || std[i] == 0 {
			continue
		}
		z := (p - mean[i]) / std[i]
		if math.Abs(z) <= threshold {
			continue
		}
		a := Anomaly{
			Timestamp: timestamps[i],
			Price:     models.RoundPrice(p),
			ZScore:    models.Round(z, 2),
			Type:      "spike",
			Severity:  models.SeverityMedium,
		}
		if z < 0 {
			a.Type = "drop"
		}
		if math.Abs(z) > 3 {
			a.Severity = models.SeverityHigh
		}
		out = append(out, a)
	}
	if len(out) > maxAnomalies {
		out = out[len(out)-maxAnomalies:]
	}
	return out
}

// Statistics describes the price distribution and, when returns are given,
// the return distribution.
type Statistics struct {
	Count       int      `json:"count"`
	Mean        float64  `json:"mean"`
	Median      float64  `json:"median"`
	Std         float64  `json:"std"`
	Min         float64  `json:"min"`
	Max         float64  `json:"max"`
	Range       float64  `json:"range"`
	Skewness    float64  `json:"skewness"`
	Kurtosis    float64  `json:"kurtosis"`
	ReturnsMean *float64 `json:"returns_mean,omitempty"`
	ReturnsStd  *float64 `json:"returns_std,omitempty"`
	SharpeRatio *float64 `json:"sharpe_ratio,omitempty"`
}

// Describe computes sample statistics over the finite prices. Kurtosis is
// excess kurtosis. Return figures are percentages and the Sharpe ratio is
// annualised over 252 periods.
func Describe(prices, returns []float64) Statistics {
	x := finite(prices)
	if len(x) == 0 {
		return Statistics{}
	}

	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]

	s := Statistics{
		Count:  len(x),
		Mean:   models.RoundPrice(stat.Mean(x, nil)),
		Median: models.RoundPrice(median(sorted)),
		Min:    models.RoundPrice(lo),
		Max:    models.RoundPrice(hi),
		Range:  models.RoundPrice(hi - lo),
	}
	if len(x) > 1 {
		s.Std = models.RoundPrice(stat.StdDev(x, nil))
	}
	if len(x) > 2 {
		s.Skewness = roundFinite(stat.Skew(x, nil), 4)
	}
	if len(x) > 3 {
		s.Kurtosis = roundFinite(stat.ExKurtosis(x, nil), 4)
	}

	r := finite(returns)
	if len(r) > 1 {
		mean, std := stat.MeanStdDev(r, nil)
		meanPct := models.Round(mean*100, 4)
		stdPct := models.Round(std*100, 4)
		sharpe := 0.0
		if std > 0 {
			sharpe = models.Round(mean/std*math.Sqrt(tradingDays), 4)
		}
		s.ReturnsMean, s.ReturnsStd, s.SharpeRatio = &meanPct, &stdPct, &sharpe
	}
	return s
}

// CorrelationPair is one entry of the upper triangle of a correlation matrix.
type CorrelationPair struct {
	Feature1    string  `json:"feature_1"`
	Feature2    string  `json:"feature_2"`
	Correlation float64 `json:"correlation"`
}

// CorrelationReport is the Pearson correlation matrix of the available columns.
type CorrelationReport struct {
	Features        []string                      `json:"features"`
	Matrix          map[string]map[string]float64 `json:"matrix,omitempty"`
	TopCorrelations []CorrelationPair             `json:"top_correlations"`
	Error           string                        `json:"error,omitempty"`
}

// Correlations computes pairwise Pearson correlations over the rows where
// every available column is finite. TopCorrelations holds the five strongest
// pairs by absolute value.
func Correlations(frame *Frame, columns []string) CorrelationReport {
	available := make([]string, 0, len(columns))
	for _, name := range columns {
		if _, ok := frame.Column(name); ok {
			available = append(available, name)
		}
	}
	report := CorrelationReport{Features: available, TopCorrelations: []CorrelationPair{}}

	rows := frame.Matrix(available)
	if len(available) < 2 || len(rows) < 2 {
		report.Error = "Insufficient features for correlation"
		return report
	}

	cols := make([][]float64, len(available))
	for j := range available {
		cols[j] = make([]float64, len(rows))
		for i, row := range rows {
			cols[j][i] = row[j]
		}
	}

	report.Matrix = make(map[string]map[string]float64, len(available))
	for _, name := range available {
		report.Matrix[name] = make(map[string]float64, len(available))
	}
	var pairs []CorrelationPair
	for a := range available {
		report.Matrix[available[a]][available[a]] = 1
		for b := a + 1; b < len(available); b++ {
			c := roundFinite(stat.Correlation(cols[a], cols[b], nil), 4)
			report.Matrix[available[a]][available[b]] = c
			report.Matrix[available[b]][available[a]] = c
			pairs = append(pairs, CorrelationPair{Feature1: available[a], Feature2: available[b], Correlation: c})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].Correlation) > math.Abs(pairs[j].Correlation)
	})
	if len(pairs) > topCorrelations {
		pairs = pairs[:topCorrelations]
	}
	report.TopCorrelations = pairs
	return report
}

// EDAReport bundles the exploratory analysis of one feature frame.
type EDAReport struct {
	Trend        TrendReport       `json:"trend"`
	Statistics   Statistics        `json:"statistics"`
	Anomalies    []Anomaly         `json:"anomalies"`
	Correlations CorrelationReport `json:"correlations"`
	DataQuality  QualityReport     `json:"data_quality"`
}

// Analyze builds the EDA report. The frame must carry a price column.
func Analyze(frame *Frame) (*EDAReport, error) {
	prices, ok := frame.Column(ColPrice)
	if !ok {
		return nil, fmt.Errorf("%w: frame has no %s column", ErrInsufficientHistory, ColPrice)
	}
	returns, _ := frame.Column("returns")

	return &EDAReport{
		Trend:        Trend(prices, TrendWindow),
		Statistics:   Describe(prices, returns),
		Anomalies:    Anomalies(frame.Timestamps, prices, AnomalyWindow, AnomalyThreshold),
		Correlations: Correlations(frame, CorrelationColumns),
		DataQuality:  CheckQuality(frame),
	}, nil
}

func finite(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// roundFinite maps undefined statistics (constant input) to 0 so they encode.
func roundFinite(v float64, places int32) float64 {
	if !isFinite(v) {
		return 0
	}
	return models.Round(v, places)
}
