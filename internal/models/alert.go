package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertType identifies the rule that produced an alert.
type AlertType string

const (
	AlertPriceChange         AlertType = "price_change"
	AlertHighVolatility      AlertType = "high_volatility"
	AlertPredictionDeviation AlertType = "prediction_deviation"
	AlertDrawdown            AlertType = "drawdown"
)

// Severity of an alert.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities so thresholds can be compared.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// AlertRecord is one entry of the alert ledger. Metrics carries the
// values specific to the alert type (change_percent, volatility, ...).
type AlertRecord struct {
	ID        uuid.UUID          `json:"id"`
	Type      AlertType          `json:"type"`
	Severity  Severity           `json:"severity"`
	Message   string             `json:"message"`
	Metrics   map[string]float64 `json:"metrics"`
	Timestamp time.Time          `json:"timestamp"`
}

// Clone returns a copy that shares no map with a.
func (a AlertRecord) Clone() AlertRecord {
	c := a
	if a.Metrics != nil {
		c.Metrics = make(map[string]float64, len(a.Metrics))
		for k, v := range a.Metrics {
			c.Metrics[k] = v
		}
	}
	return c
}

// AlertSummary holds alert ledger statistics.
type AlertSummary struct {
	TotalAlerts  int               `json:"total_alerts"`
	HighSeverity int               `json:"high_severity"`
	ByType       map[AlertType]int `json:"by_type"`
}
