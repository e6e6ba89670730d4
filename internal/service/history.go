package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// HistoryReport counts what normalization removed from a price history.
type HistoryReport struct {
	Received   int      `json:"received"`
	Kept       int      `json:"kept"`
	Invalid    int      `json:"invalid"`
	Duplicates int      `json:"duplicates"`
	Issues     []string `json:"issues,omitempty"`
}

// Dropped is the number of points that did not survive normalization.
func (r HistoryReport) Dropped() int {
	return r.Received - r.Kept
}

// HistoryValidator validates and normalizes price histories before they reach
// feature engineering.
type HistoryValidator struct {
	maxFuture time.Duration
	now       func() time.Time
	logger    *logrus.Entry
}

// NewHistoryValidator creates a history validator
func NewHistoryValidator(log *logrus.Logger) *HistoryValidator {
	return &HistoryValidator{
		maxFuture: 5 * time.Minute,
		now:       time.Now,
		logger:    log.WithField("component", "history_validator"),
	}
}

// ValidatePoint returns the problems with a single price point.
func (v *HistoryValidator) ValidatePoint(p models.PricePoint) []string {
	var errors []string

	if p.Timestamp.IsZero() {
		errors = append(errors, "timestamp is required")
	}

	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		errors = append(errors, fmt.Sprintf("price must be finite, got %v", p.Price))
	} else if p.Price <= 0 {
		errors = append(errors, fmt.Sprintf("price must be positive, got %v", p.Price))
	}

	// Clock skew tolerance for the upstream API
	if p.Timestamp.After(v.now().Add(v.maxFuture)) {
		errors = append(errors, fmt.Sprintf("timestamp %s is in the future", p.Timestamp.UTC().Format(time.RFC3339)))
	}

	return errors
}

// Normalize drops invalid points, sorts ascending and keeps the last point
// seen for each timestamp. The input slice is not modified.
func (v *HistoryValidator) Normalize(points []models.PricePoint) ([]models.PricePoint, HistoryReport) {
	report := HistoryReport{Received: len(points)}

	valid := make([]models.PricePoint, 0, len(points))
	for _, p := range points {
		if issues := v.ValidatePoint(p); len(issues) > 0 {
			report.Invalid++
			report.Issues = append(report.Issues, issues...)
			continue
		}
		valid = append(valid, models.PricePoint{Timestamp: p.Timestamp.UTC(), Price: p.Price})
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Timestamp.Before(valid[j].Timestamp)
	})

	normalized := valid[:0]
	for _, p := range valid {
		if n := len(normalized); n > 0 && normalized[n-1].Timestamp.Equal(p.Timestamp) {
			normalized[n-1] = p
			report.Duplicates++
			continue
		}
		normalized = append(normalized, p)
	}
	report.Kept = len(normalized)

	if report.Dropped() > 0 {
		v.logger.WithFields(logrus.Fields{
			"received":   report.Received,
			"invalid":    report.Invalid,
			"duplicates": report.Duplicates,
		}).Warn("Price history contained unusable points")
	}

	return normalized, report
}

// Peak returns the highest price in points, or 0 for an empty history.
func Peak(points []models.PricePoint) float64 {
	peak := 0.0
	for _, p := range points {
		if p.Price > peak {
			peak = p.Price
		}
	}
	return peak
}
