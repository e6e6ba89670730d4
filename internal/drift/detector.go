// Package drift compares the current feature distribution with the one the
// active models were trained on.
package drift

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/features"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ledger"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/logger"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/metrics"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

const (
	MethodDomainClassifier = "domain_classifier"
	MethodKSTest           = "ks_test"
)

// ReportCapacity is the number of past reports kept for the summary.
const ReportCapacity = 50

var (
	// ErrStrategyUnavailable means a strategy cannot score this data and the next one should be tried.
	ErrStrategyUnavailable = errors.New("drift strategy unavailable")
	ErrUnknownMethod       = errors.New("unknown drift method")
)

// Outcome is what a strategy reports for one comparison.
type Outcome struct {
	Score      float64
	PerFeature map[string]models.FeatureDrift
}

// Strategy scores the difference between reference and current frames over columns.
type Strategy interface {
	Name() string
	Score(reference, current *features.Frame, columns []string) (Outcome, error)
}

// Config holds detection parameters shared by the strategies.
type Config struct {
	Threshold float64
	PValue    float64
	MinRows   int
	Folds     int
	Seed      int64
}

// DefaultConfig returns threshold 0.3 and p-value 0.05.
func DefaultConfig() Config {
	return Config{
		Threshold: 0.3,
		PValue:    0.05,
		MinRows:   30,
		Folds:     3,
		Seed:      42,
	}
}

// StrategiesFor builds strategies for method names, in the given order.
func StrategiesFor(methods []string, cfg Config) ([]Strategy, error) {
	out := make([]Strategy, 0, len(methods))
	for _, m := range methods {
		switch m {
		case MethodDomainClassifier:
			out = append(out, NewDomainClassifier(cfg))
		case MethodKSTest:
			out = append(out, NewKSTest(cfg.PValue))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
		}
	}
	return out, nil
}

// Detector holds the reference frame and the recent reports.
// The reference only changes through SetReference.
type Detector struct {
	mu         sync.RWMutex
	reference  *features.Frame
	latest     *models.DriftReport
	reports    *ledger.Bounded[models.DriftReport]
	strategies []Strategy
	threshold  float64
	now        func() time.Time
	logger     *logger.PipelineLogger
}

// NewDetector creates a detector that tries strategies in order.
func NewDetector(threshold float64, log *logrus.Logger, strategies ...Strategy) *Detector {
	return &Detector{
		strategies: strategies,
		threshold:  threshold,
		reports:    ledger.NewBounded[models.DriftReport](ReportCapacity),
		now:        time.Now,
		logger:     logger.NewPipelineLogger(log),
	}
}

// SetReference replaces the reference frame.
func (d *Detector) SetReference(frame *features.Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reference = frame
}

// HasReference reports whether a reference frame is set.
func (d *Detector) HasReference() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reference != nil && d.reference.Len() > 0
}

// NoAnalysisMessage is the message of the report returned before any Detect call.
const NoAnalysisMessage = "No drift analysis available yet"

// Latest returns the report of the last Detect call. Before the first call it
// returns an undetected report stamped now, and false.
func (d *Detector) Latest() (models.DriftReport, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.latest == nil {
		return models.DriftReport{
			Threshold:  d.threshold,
			Message:    NoAnalysisMessage,
			ComputedAt: d.now().UTC(),
		}, false
	}
	return d.latest.Clone(), true
}

// Reports returns up to limit of the newest reports, oldest first.
func (d *Detector) Reports(limit int) []models.DriftReport {
	d.mu.RLock()
	items := d.reports.Items()
	d.mu.RUnlock()

	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	out := make([]models.DriftReport, len(items))
	for i, r := range items {
		out[i] = r.Clone()
	}
	return out
}

// Summary aggregates the retained reports. Scores are averaged over the
// reports a strategy actually scored.
func (d *Detector) Summary() models.DriftSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()

	summary := models.DriftSummary{Threshold: d.threshold}
	var total float64
	d.reports.Each(func(r models.DriftReport) {
		summary.TotalReports++
		at := r.ComputedAt
		summary.LastCheckedAt = &at
		if r.Method == "" {
			return
		}
		summary.ScoredReports++
		summary.LatestMethod = r.Method
		total += r.Score
		if r.Score > summary.MaxScore {
			summary.MaxScore = r.Score
		}
		if r.Detected {
			summary.DriftDetected++
			summary.LastDetectedAt = &at
		}
	})

	if summary.ScoredReports > 0 {
		n := float64(summary.ScoredReports)
		summary.AvgScore = models.Round(total/n, 4)
		summary.DriftRate = models.Round(float64(summary.DriftDetected)/n*100, 1)
	}
	summary.MaxScore = models.Round(summary.MaxScore, 4)
	return summary
}

// Detect compares current against the reference. It never fails: a missing
// reference or exhausted strategies yield an undetected report with a message.
func (d *Detector) Detect(current *features.Frame, columns []string) models.DriftReport {
	d.mu.RLock()
	reference := d.reference
	d.mu.RUnlock()

	report := models.DriftReport{
		Threshold:  d.threshold,
		ComputedAt: d.now().UTC(),
	}

	switch {
	case reference == nil || reference.Len() == 0:
		report.Message = "no reference data"
	case current == nil || current.Len() == 0:
		report.Message = "no current data"
	default:
		shared := sharedColumns(reference, current, columns)
		if len(shared) == 0 {
			report.Message = "no common feature columns"
			break
		}
		d.score(&report, reference, current, shared)
	}

	d.mu.Lock()
	d.latest = &report
	d.reports.Push(report)
	d.mu.Unlock()
	return report
}

func (d *Detector) score(report *models.DriftReport, reference, current *features.Frame, columns []string) {
	var errs []error
	for _, s := range d.strategies {
		outcome, err := s.Score(reference, current, columns)
		if err != nil {
			d.logger.WithError(err).WithField("method", s.Name()).Debug("Drift strategy skipped")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}

		report.Method = s.Name()
		report.Score = outcome.Score
		report.PerFeatureResults = outcome.PerFeature
		report.Detected = outcome.Score > d.threshold

		metrics.UpdateDriftScore(outcome.Score)
		d.logger.LogDriftCheck(s.Name(), report.Detected, outcome.Score, d.threshold)
		return
	}

	report.Message = "no drift strategy could score the data"
	if len(errs) > 0 {
		report.Message = errors.Join(errs...).Error()
	}
	d.logger.WithField("reason", report.Message).Warn("Drift check unavailable")
}

func sharedColumns(reference, current *features.Frame, columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if reference.HasColumns([]string{c}) && current.HasColumns([]string{c}) {
			out = append(out, c)
		}
	}
	return out
}
