package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		input string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"nonsense", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			log := NewLoggerForEnvironment(tt.input, "development")
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestNewLoggerProductionUsesJSON(t *testing.T) {
	log := NewLoggerForEnvironment("info", "production")
	_, ok := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestPredictionLoggerCreated(t *testing.T) {
	log, buf := setupTestLogger()
	predictionLogger := NewPredictionLogger(log)

	predictionLogger.LogPredictionCreated(
		"4b1c5a5e-1f3d-4a53-9a3e-1e9bd1f1c0aa",
		50000,
		50500,
		"up",
		60,
		"ridge",
		"uptrend",
		time.Date(2024, 2, 3, 12, 30, 0, 0, time.UTC),
	)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "prediction", logEntry["component"])
	assert.Equal(t, "up", logEntry["direction"])
	assert.Equal(t, "ridge", logEntry["model_used"])
	assert.Equal(t, float64(50500), logEntry["predicted_price"])
}

func TestPredictionLoggerValidated(t *testing.T) {
	log, buf := setupTestLogger()
	predictionLogger := NewPredictionLogger(log)

	predictionLogger.LogPredictionValidated("id-1", 50600, true, 100, "direction_validated")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, true, logEntry["was_correct"])
	assert.Equal(t, "direction_validated", logEntry["validation_note"])
	assert.Equal(t, "debug", logEntry["level"])
}

func TestPredictionLoggerValidationPassLevel(t *testing.T) {
	log, buf := setupTestLogger()
	predictionLogger := NewPredictionLogger(log)

	predictionLogger.LogValidationPass(2, 1, 3)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "info", logEntry["level"])
	assert.Equal(t, float64(2), logEntry["validated"])
}

func TestPredictionLoggerClassifierDisagreement(t *testing.T) {
	log, buf := setupTestLogger()
	predictionLogger := NewPredictionLogger(log)

	predictionLogger.LogClassifierDisagreement("up", "down", 0.9)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "down", logEntry["classifier_direction"])
}

func TestPipelineLoggerComplete(t *testing.T) {
	log, buf := setupTestLogger()
	pipelineLogger := NewPipelineLogger(log)

	pipelineLogger.LogPipelineComplete("training", 12.5, map[string]interface{}{"best_model": "ridge"})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "pipeline", logEntry["component"])
	assert.Equal(t, "training", logEntry["pipeline"])
	assert.Equal(t, "ridge", logEntry["best_model"])
}

func TestPipelineLoggerFailure(t *testing.T) {
	log, buf := setupTestLogger()
	pipelineLogger := NewPipelineLogger(log)

	pipelineLogger.LogPipelineFailure("inference", 0.4, errors.New("price source down"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "price source down", logEntry["error"])
}

func TestPipelineLoggerDriftCheck(t *testing.T) {
	log, buf := setupTestLogger()
	pipelineLogger := NewPipelineLogger(log)

	pipelineLogger.LogDriftCheck("ks_test", true, 0.45, 0.3)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, true, logEntry["drift_detected"])
}

func TestPipelineLoggerModelTraining(t *testing.T) {
	log, buf := setupTestLogger()
	pipelineLogger := NewPipelineLogger(log)

	pipelineLogger.LogModelTraining("ridge", 200, map[string]float64{"rmse": 12.3})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "ridge", logEntry["model_name"])
}

func TestAlertLoggerFired(t *testing.T) {
	log, buf := setupTestLogger()
	alertLogger := NewAlertLogger(log)

	alertLogger.LogAlertFired("price_change", "high", "Price moved 12.00%", map[string]float64{"change_pct": 12})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "alerts", logEntry["component"])
	assert.Equal(t, "Price moved 12.00%", logEntry["msg"])
}

func TestAlertLoggerNotificationFailure(t *testing.T) {
	log, buf := setupTestLogger()
	alertLogger := NewAlertLogger(log)

	alertLogger.LogNotificationFailure("slack", "drawdown", errors.New("timeout"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "slack", logEntry["channel"])
	assert.Equal(t, "timeout", logEntry["error"])
}

func BenchmarkPredictionLoggerCreated(b *testing.B) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	predictionLogger := NewPredictionLogger(log)

	for i := 0; i < b.N; i++ {
		predictionLogger.LogPredictionCreated("id", 50000, 50500, "up", 60, "ridge", "uptrend", time.Now())
	}
}
