package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/events"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/validation"
)

// ValidationReport is returned by a manual validation pass.
type ValidationReport struct {
	Message    string                 `json:"message"`
	Validation validation.Result      `json:"validation"`
	Accuracy   models.AccuracySummary `json:"accuracy"`
}

// CurrentPrice returns the latest quote.
func (s *Service) CurrentPrice(ctx context.Context) (*models.PriceQuote, error) {
	quote, err := s.prices.CurrentPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}
	return quote, nil
}

// PriceHistory returns normalized price history for the last hours.
func (s *Service) PriceHistory(ctx context.Context, hours int) ([]models.PricePoint, error) {
	raw, err := s.prices.History(ctx, float64(hours))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}
	history, _ := s.history.Normalize(raw)
	return history, nil
}

// CurrentPrediction returns the prediction made within the last inference
// interval, or makes a fresh one. A fresh prediction is appended to the ledger.
func (s *Service) CurrentPrediction(ctx context.Context) (*models.PredictionRecord, error) {
	if rec := s.cachedPrediction(); rec != nil {
		return rec, nil
	}

	quote, _, frame, err := s.marketFrame(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.predictor.Predict(ctx, frame, quote.Price)
	if err != nil {
		return nil, err
	}
	s.setLatest(rec)
	s.emit(ctx, events.PredictionCreated, rec)
	return rec.Clone(), nil
}

func (s *Service) cachedPrediction() *models.PredictionRecord {
	ttl := time.Duration(s.cfg.Scheduler.InferenceIntervalMinutes) * time.Minute

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil || s.now().Sub(s.latest.CreatedAt) >= ttl {
		return nil
	}
	return s.latest.Clone()
}

// PredictionHistory returns the newest limit ledger records, oldest first.
func (s *Service) PredictionHistory(limit int) []*models.PredictionRecord {
	return s.ledger.Recent(limit)
}

// Accuracy summarizes the validated records in the ledger.
func (s *Service) Accuracy() models.AccuracySummary {
	return validation.Summarize(s.ledger.Snapshot())
}

// ValidateNow runs a validation pass. When the current price cannot be
// fetched only records with a matching history point are validated.
func (s *Service) ValidateNow(ctx context.Context) ValidationReport {
	var current *float64
	if quote, err := s.prices.CurrentPrice(ctx); err != nil {
		s.logger.WithError(err).Warn("Current price unavailable, validating from history only")
	} else {
		current = &quote.Price
	}

	result := s.validator.Validate(ctx, current)
	if result.Validated > 0 {
		s.emit(ctx, events.PredictionValidated, result)
	}

	return ValidationReport{
		Message:    "Validation complete",
		Validation: result,
		Accuracy:   s.Accuracy(),
	}
}

// ModelMetadata describes the installed bundle.
func (s *Service) ModelMetadata() (*models.ModelInfo, error) {
	bundle, source, ok := s.models.Current()
	if !ok {
		return nil, ErrModelsNotLoaded
	}

	meta := bundle.Metadata
	return &models.ModelInfo{
		BestModel:      meta.BestModel,
		Version:        meta.Version,
		CreatedAt:      meta.CreatedAt,
		Source:         source,
		ModelsLoaded:   bundle.RegressorNames(),
		HasClassifier:  bundle.Classifier != nil,
		HasRegime:      bundle.Regime != nil,
		FeatureCount:   len(meta.FeatureNames),
		SamplesTrained: meta.SamplesTrained,
		Metrics:        meta.Metrics,
	}, nil
}

// Drift returns the most recent drift report, if any check has run.
func (s *Service) Drift() (models.DriftReport, bool) {
	return s.drift.Latest()
}

// Alerts returns the newest limit alerts, oldest first.
func (s *Service) Alerts(limit int) []models.AlertRecord {
	return s.alerts.History(limit)
}

// AlertSummary summarizes the alert ledger.
func (s *Service) AlertSummary() models.AlertSummary {
	return s.alerts.Summary()
}

// ClearLedger empties the prediction ledger and its stores.
func (s *Service) ClearLedger(ctx context.Context) error {
	s.mu.Lock()
	s.latest = nil
	s.mu.Unlock()
	return s.ledger.Clear(ctx)
}

// ModelsLoaded reports whether predictions can be made.
func (s *Service) ModelsLoaded() bool {
	return s.models.IsLoaded()
}

// Status is the service-wide status snapshot.
func (s *Service) Status() models.PipelineStatus {
	status := models.PipelineStatus{
		ModelsLoaded:           s.models.IsLoaded(),
		PredictionHistoryCount: s.ledger.Len(),
		PendingPredictions:     s.ledger.PendingCount(),
		DriftReference:         s.drift.HasReference(),
		AlertsCount:            s.alerts.Len(),
		Timestamp:              s.now().UTC(),
	}
	if bundle, _, ok := s.models.Current(); ok {
		status.BestModel = bundle.Metadata.BestModel
		status.ModelVersion = bundle.Metadata.Version
	}

	if sched := s.attachedScheduler(); sched != nil {
		for _, lane := range sched.Status() {
			ls := models.LaneStatus{
				Name:      lane.Name,
				Interval:  lane.Interval,
				LastError: lane.LastError,
			}
			if !lane.LastRun.IsZero() {
				lastRun := lane.LastRun
				ls.LastRun = &lastRun
			}
			if !lane.NextRun.IsZero() {
				nextRun := lane.NextRun
				ls.NextRun = &nextRun
			}
			status.Lanes = append(status.Lanes, ls)
		}
	}
	return status
}
