// Package metrics provides the centralized Prometheus metrics registry for the sentinel.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crypto_sentinel"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	PersistenceFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persistence_failures_total",
		Help:      "Ledger persistence failures by target",
	}, []string{"target"})
	NotificationFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Alert notification failures by channel",
	}, []string{"channel"})
	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Domain events published by type and status",
	}, []string{"type", "status"})
)

// Gauge metrics
var (
	LedgerSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_size",
		Help:      "Number of records in the prediction ledger",
	})
	PendingPredictions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_predictions",
		Help:      "Number of predictions awaiting validation",
	})
	DriftScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "drift_score",
		Help:      "Score of the most recent drift check",
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(PersistenceFailuresTotal)
		registry.MustRegister(NotificationFailuresTotal)
		registry.MustRegister(EventsPublishedTotal)

		registry.MustRegister(LedgerSize)
		registry.MustRegister(PendingPredictions)
		registry.MustRegister(DriftScore)

		// prediction metrics
		registry.MustRegister(PredictionsTotal)
		registry.MustRegister(ValidationsTotal)
		registry.MustRegister(PredictionAccuracy)
		registry.MustRegister(PredictionConfidence)
		registry.MustRegister(AlertsTotal)

		// pipeline metrics
		registry.MustRegister(PipelineRunsTotal)
		registry.MustRegister(PipelineDuration)
		registry.MustRegister(SchedulerSkipsTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler serves the sentinel registry together with the default registry,
// which holds the promauto ML metrics and the Go runtime collectors.
func Handler() http.Handler {
	return promhttp.HandlerFor(
		prometheus.Gatherers{GetRegistry(), prometheus.DefaultGatherer},
		promhttp.HandlerOpts{},
	)
}

// RecordPersistenceFailure records a failed ledger write.
func RecordPersistenceFailure(target string) {
	PersistenceFailuresTotal.WithLabelValues(target).Inc()
}

// RecordNotificationFailure records a failed alert notification.
func RecordNotificationFailure(channel string) {
	NotificationFailuresTotal.WithLabelValues(channel).Inc()
}

// RecordEventPublished records a published or dropped domain event.
func RecordEventPublished(eventType string, ok bool) {
	status := "success"
	if !ok {
		status = "failure"
	}
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// UpdateLedgerSize updates the ledger gauges.
func UpdateLedgerSize(total, pending int) {
	LedgerSize.Set(float64(total))
	PendingPredictions.Set(float64(pending))
}

// UpdateDriftScore updates the drift score gauge.
func UpdateDriftScore(score float64) {
	DriftScore.Set(score)
}
