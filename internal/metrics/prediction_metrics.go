package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prediction counter vectors
var (
	PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Total number of predictions by direction and market regime",
	}, []string{"direction", "regime"})

	ValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validations_total",
		Help:      "Total number of validated predictions by outcome",
	}, []string{"outcome"})

	AlertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_total",
		Help:      "Total number of alerts fired by type and severity",
	}, []string{"type", "severity"})
)

// Prediction gauges and histograms
var (
	PredictionAccuracy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "prediction_accuracy_pct",
		Help:      "Directional accuracy over validated ledger entries",
	})

	PredictionConfidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "prediction_confidence",
		Help:      "Confidence of created predictions",
		Buckets:   []float64{50, 55, 60, 65, 70, 75, 80, 85, 90, 95},
	})
)

// RecordPrediction records a created prediction.
func RecordPrediction(direction, regime string, confidence float64) {
	PredictionsTotal.WithLabelValues(direction, regime).Inc()
	PredictionConfidence.Observe(confidence)
}

// RecordValidation records a validated prediction.
// outcome should be one of: "correct", "incorrect", "within_tolerance"
func RecordValidation(outcome string) {
	ValidationsTotal.WithLabelValues(outcome).Inc()
}

// UpdateAccuracy updates the accuracy gauge.
func UpdateAccuracy(pct float64) {
	PredictionAccuracy.Set(pct)
}

// RecordAlert records a fired alert.
func RecordAlert(alertType, severity string) {
	AlertsTotal.WithLabelValues(alertType, severity).Inc()
}
