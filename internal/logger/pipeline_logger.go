package logger

import (
	"github.com/sirupsen/logrus"
)

// PipelineLogger provides dedicated logging for feature, training and inference pipelines.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// LogPipelineStart logs the start of a pipeline run.
func (pl *PipelineLogger) LogPipelineStart(pipeline string) {
	pl.WithField("pipeline", pipeline).Info("Pipeline started")
}

// LogPipelineComplete logs a successful pipeline run.
func (pl *PipelineLogger) LogPipelineComplete(pipeline string, durationSeconds float64, fields map[string]interface{}) {
	entry := pl.WithFields(logrus.Fields{
		"pipeline":         pipeline,
		"duration_seconds": durationSeconds,
	})
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields))
	}
	entry.Info("Pipeline completed")
}

// LogPipelineFailure logs a failed pipeline run.
func (pl *PipelineLogger) LogPipelineFailure(pipeline string, durationSeconds float64, err error) {
	pl.WithFields(logrus.Fields{
		"pipeline":         pipeline,
		"duration_seconds": durationSeconds,
	}).WithError(err).Error("Pipeline failed")
}

// LogModelTraining logs the evaluation metrics of one trained model.
func (pl *PipelineLogger) LogModelTraining(modelName string, samples int, metrics map[string]float64) {
	pl.WithFields(logrus.Fields{
		"model_name": modelName,
		"samples":    samples,
		"metrics":    metrics,
	}).Info("Model training completed")
}

// LogDriftCheck logs a drift detection result.
func (pl *PipelineLogger) LogDriftCheck(method string, detected bool, score, threshold float64) {
	entry := pl.WithFields(logrus.Fields{
		"method":         method,
		"drift_detected": detected,
		"drift_score":    score,
		"threshold":      threshold,
	})
	if detected {
		entry.Warn("Data drift detected")
		return
	}
	entry.Info("Drift check completed")
}
