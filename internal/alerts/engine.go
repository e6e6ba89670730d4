// Package alerts evaluates price, volatility, prediction-deviation and
// drawdown rules and keeps a bounded history of the alerts they fire.
package alerts

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/config"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ledger"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/logger"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/metrics"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// DefaultCapacity is the alert history size.
const DefaultCapacity = 100

// Thresholds configures the rules. Percentages are in percent units.
type Thresholds struct {
	PriceChangeMediumPct float64
	PriceChangeHighPct   float64
	VolatilityMedium     float64
	VolatilityHigh       float64
	DeviationPct         float64
	DrawdownMediumPct    float64
	DrawdownHighPct      float64
}

// DefaultThresholds returns 5/10% price change, 0.5/0.8 volatility, 3%
// deviation and 10/20% drawdown.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PriceChangeMediumPct: 5,
		PriceChangeHighPct:   10,
		VolatilityMedium:     0.5,
		VolatilityHigh:       0.8,
		DeviationPct:         3,
		DrawdownMediumPct:    10,
		DrawdownHighPct:      20,
	}
}

// ThresholdsFromConfig maps the alerts configuration section.
func ThresholdsFromConfig(cfg config.AlertsConfig) Thresholds {
	return Thresholds{
		PriceChangeMediumPct: cfg.PriceChangeMediumPct,
		PriceChangeHighPct:   cfg.PriceChangeHighPct,
		VolatilityMedium:     cfg.VolatilityMedium,
		VolatilityHigh:       cfg.VolatilityHigh,
		DeviationPct:         cfg.DeviationPct,
		DrawdownMediumPct:    cfg.DrawdownMediumPct,
		DrawdownHighPct:      cfg.DrawdownHighPct,
	}
}

// Engine evaluates alert rules and records what fires.
type Engine struct {
	mu          sync.RWMutex
	history     *ledger.Bounded[models.AlertRecord]
	thresholds  Thresholds
	notifiers   []Notifier
	minSeverity models.Severity
	notifyWait  time.Duration
	now         func() time.Time
	logger      *logger.AlertLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifiers forwards alerts at or above minSeverity to the notifiers.
func WithNotifiers(minSeverity models.Severity, notifiers ...Notifier) Option {
	return func(e *Engine) {
		e.minSeverity = minSeverity
		e.notifiers = append(e.notifiers, notifiers...)
	}
}

// NewEngine creates an engine with a history of the given capacity.
func NewEngine(thresholds Thresholds, capacity int, log *logrus.Logger, opts ...Option) *Engine {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	e := &Engine{
		history:     ledger.NewBounded[models.AlertRecord](capacity),
		thresholds:  thresholds,
		minSeverity: models.SeverityHigh,
		notifyWait:  10 * time.Second,
		now:         time.Now,
		logger:      logger.NewAlertLogger(log),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the price change, volatility and prediction deviation rules.
// Every rule that fires adds one alert; the fired alerts are returned.
func (e *Engine) Evaluate(ctx context.Context, currentPrice, previousPrice float64, prediction *models.PredictionRecord, volatility *float64) []models.AlertRecord {
	var fired []models.AlertRecord
	th := e.thresholds

	if previousPrice > 0 {
		change := (currentPrice - previousPrice) / previousPrice * 100
		if math.Abs(change) > th.PriceChangeMediumPct {
			fired = append(fired, e.newAlert(
				models.AlertPriceChange,
				severity(math.Abs(change), th.PriceChangeHighPct),
				fmt.Sprintf("Significant price change: %+.2f%%", change),
				map[string]float64{
					"current_price":  currentPrice,
					"previous_price": previousPrice,
					"change_percent": models.Round(change, 2),
				},
			))
		}
	}

	if volatility != nil && *volatility > th.VolatilityMedium {
		v := *volatility
		fired = append(fired, e.newAlert(
			models.AlertHighVolatility,
			severity(v, th.VolatilityHigh),
			fmt.Sprintf("High volatility detected: %.2f%%", v*100),
			map[string]float64{"volatility": models.Round(v, 4)},
		))
	}

	if prediction != nil && prediction.PredictedPrice > 0 && currentPrice > 0 {
		deviation := math.Abs(currentPrice-prediction.PredictedPrice) / currentPrice * 100
		if deviation > th.DeviationPct {
			fired = append(fired, e.newAlert(
				models.AlertPredictionDeviation,
				models.SeverityMedium,
				fmt.Sprintf("Price deviating from prediction: %.2f%%", deviation),
				map[string]float64{
					"current_price":     currentPrice,
					"predicted_price":   prediction.PredictedPrice,
					"deviation_percent": models.Round(deviation, 2),
				},
			))
		}
	}

	e.record(ctx, fired...)
	return fired
}

// CheckDrawdown fires a drawdown alert when price has fallen far enough from peak.
func (e *Engine) CheckDrawdown(ctx context.Context, currentPrice, peakPrice float64) *models.AlertRecord {
	if peakPrice <= 0 {
		return nil
	}
	drawdown := (peakPrice - currentPrice) / peakPrice * 100
	if drawdown <= e.thresholds.DrawdownMediumPct {
		return nil
	}

	alert := e.newAlert(
		models.AlertDrawdown,
		severity(drawdown, e.thresholds.DrawdownHighPct),
		fmt.Sprintf("Drawdown from peak: %.2f%%", drawdown),
		map[string]float64{
			"current_price":    currentPrice,
			"peak_price":       peakPrice,
			"drawdown_percent": models.Round(drawdown, 2),
		},
	)
	e.record(ctx, alert)
	return &alert
}

func severity(value, high float64) models.Severity {
	if value > high {
		return models.SeverityHigh
	}
	return models.SeverityMedium
}

func (e *Engine) newAlert(t models.AlertType, sev models.Severity, msg string, values map[string]float64) models.AlertRecord {
	return models.AlertRecord{
		ID:        uuid.New(),
		Type:      t,
		Severity:  sev,
		Message:   msg,
		Metrics:   values,
		Timestamp: e.now().UTC(),
	}
}

func (e *Engine) record(ctx context.Context, alerts ...models.AlertRecord) {
	if len(alerts) == 0 {
		return
	}

	e.mu.Lock()
	for _, a := range alerts {
		e.history.Push(a.Clone())
	}
	e.mu.Unlock()

	for _, a := range alerts {
		metrics.RecordAlert(string(a.Type), string(a.Severity))
		e.logger.LogAlertFired(string(a.Type), string(a.Severity), a.Message, a.Metrics)
		if a.Severity.Rank() >= e.minSeverity.Rank() {
			e.notify(ctx, a)
		}
	}
}

func (e *Engine) notify(ctx context.Context, alert models.AlertRecord) {
	for _, n := range e.notifiers {
		notifyCtx, cancel := context.WithTimeout(ctx, e.notifyWait)
		err := n.Notify(notifyCtx, alert)
		cancel()
		if err != nil {
			metrics.RecordNotificationFailure(n.Name())
			e.logger.LogNotificationFailure(n.Name(), string(alert.Type), err)
		}
	}
}

// History returns up to limit of the newest alerts, oldest first.
// A non-positive limit returns the whole history.
func (e *Engine) History(limit int) []models.AlertRecord {
	e.mu.RLock()
	items := e.history.Items()
	e.mu.RUnlock()

	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	out := make([]models.AlertRecord, len(items))
	for i, a := range items {
		out[i] = a.Clone()
	}
	return out
}

// Summary counts the alerts in history.
func (e *Engine) Summary() models.AlertSummary {
	summary := models.AlertSummary{ByType: map[models.AlertType]int{}}

	e.mu.RLock()
	defer e.mu.RUnlock()
	e.history.Each(func(a models.AlertRecord) {
		summary.TotalAlerts++
		summary.ByType[a.Type]++
		if a.Severity == models.SeverityHigh {
			summary.HighSeverity++
		}
	})
	return summary
}

// Len returns the number of alerts held.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.Len()
}

// Clear empties the history.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Reset()
}
