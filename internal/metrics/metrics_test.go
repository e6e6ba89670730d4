package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleValue reads a gauge or counter sample from the sentinel registry.
func sampleValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := GetRegistry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] == lp.GetValue() {
					matched++
				}
			}
			if matched != len(labels) {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestMetricsRegistry(t *testing.T) {
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, InitRegistry())
}

func TestRecordPrediction(t *testing.T) {
	labels := map[string]string{"direction": "up", "regime": "uptrend"}
	before := sampleValue(t, "crypto_sentinel_predictions_total", labels)

	RecordPrediction("up", "uptrend", 72)

	assert.Equal(t, before+1, sampleValue(t, "crypto_sentinel_predictions_total", labels))
}

func TestRecordValidation(t *testing.T) {
	tests := []string{"correct", "incorrect", "within_tolerance"}

	for _, outcome := range tests {
		t.Run(outcome, func(t *testing.T) {
			labels := map[string]string{"outcome": outcome}
			before := sampleValue(t, "crypto_sentinel_validations_total", labels)
			RecordValidation(outcome)
			assert.Equal(t, before+1, sampleValue(t, "crypto_sentinel_validations_total", labels))
		})
	}
}

func TestGauges(t *testing.T) {
	UpdateLedgerSize(12, 3)
	UpdateAccuracy(66.7)
	UpdateDriftScore(0.42)

	assert.Equal(t, 12.0, sampleValue(t, "crypto_sentinel_ledger_size", nil))
	assert.Equal(t, 3.0, sampleValue(t, "crypto_sentinel_pending_predictions", nil))
	assert.Equal(t, 66.7, sampleValue(t, "crypto_sentinel_prediction_accuracy_pct", nil))
	assert.Equal(t, 0.42, sampleValue(t, "crypto_sentinel_drift_score", nil))
}

func TestRecordFailures(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordPersistenceFailure("local")
		RecordNotificationFailure("slack")
		RecordEventPublished("prediction.created", false)
		RecordAlert("drawdown", "high")
		RecordPipelineRun("training", "failure", 1.5)
		RecordSchedulerSkip("training")
	})
	assert.Equal(t, 1.0, sampleValue(t, "crypto_sentinel_scheduler_skips_total", map[string]string{"lane": "training"}))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordPipelineRun("inference", "success", 0.2)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "crypto_sentinel_pipeline_runs_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
