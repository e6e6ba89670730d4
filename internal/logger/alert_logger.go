package logger

import (
	"github.com/sirupsen/logrus"
)

// AlertLogger provides dedicated logging for alert events.
type AlertLogger struct {
	*logrus.Entry
}

// NewAlertLogger creates a new alert logger.
func NewAlertLogger(baseLogger *logrus.Logger) *AlertLogger {
	return &AlertLogger{
		Entry: baseLogger.WithField("component", "alerts"),
	}
}

// LogAlertFired logs an alert appended to the alert ledger.
func (al *AlertLogger) LogAlertFired(alertType, severity, message string, metrics map[string]float64) {
	al.WithFields(logrus.Fields{
		"alert_type": alertType,
		"severity":   severity,
		"metrics":    metrics,
	}).Warn(message)
}

// LogNotificationFailure logs a notifier that could not deliver an alert.
func (al *AlertLogger) LogNotificationFailure(channel, alertType string, err error) {
	al.WithFields(logrus.Fields{
		"channel":    channel,
		"alert_type": alertType,
	}).WithError(err).Error("Alert notification failed")
}
