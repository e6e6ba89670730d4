package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// PredictionLogger provides dedicated logging for prediction and validation events.
type PredictionLogger struct {
	*logrus.Entry
}

// NewPredictionLogger creates a new prediction logger.
func NewPredictionLogger(baseLogger *logrus.Logger) *PredictionLogger {
	return &PredictionLogger{
		Entry: baseLogger.WithField("component", "prediction"),
	}
}

// LogPredictionCreated logs a newly appended prediction.
func (pl *PredictionLogger) LogPredictionCreated(id string, currentPrice, predictedPrice float64, direction string, confidence float64, modelUsed, regime string, targetAt time.Time) {
	pl.WithFields(logrus.Fields{
		"prediction_id":   id,
		"current_price":   currentPrice,
		"predicted_price": predictedPrice,
		"direction":       direction,
		"confidence":      confidence,
		"model_used":      modelUsed,
		"market_regime":   regime,
		"target_at":       targetAt.Unix(),
	}).Info("Prediction created")
}

// LogPredictionValidated logs the outcome of validating one prediction.
func (pl *PredictionLogger) LogPredictionValidated(id string, actualPrice float64, wasCorrect bool, errorAmount float64, note string) {
	pl.WithFields(logrus.Fields{
		"prediction_id":   id,
		"actual_price":    actualPrice,
		"was_correct":     wasCorrect,
		"error_amount":    errorAmount,
		"validation_note": note,
	}).Debug("Prediction validated")
}

// LogValidationPass logs a completed validation pass.
func (pl *PredictionLogger) LogValidationPass(validated, skipped, pending int) {
	entry := pl.WithFields(logrus.Fields{
		"validated": validated,
		"skipped":   skipped,
		"pending":   pending,
	})
	if validated > 0 {
		entry.Info("Validation pass completed")
		return
	}
	entry.Debug("Validation pass completed")
}

// LogClassifierDisagreement logs a direction classifier that disagrees with the price model.
func (pl *PredictionLogger) LogClassifierDisagreement(priceDirection, classifierDirection string, classifierConfidence float64) {
	pl.WithFields(logrus.Fields{
		"price_direction":       priceDirection,
		"classifier_direction":  classifierDirection,
		"classifier_confidence": classifierConfidence,
	}).Warn("Direction classifier disagrees with price model, keeping price direction")
}
