package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/events"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/features"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ml"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/scheduler"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/tracing"
)

// RunFeaturePipeline fetches price history, engineers features and stores the
// rows not yet in the feature store. When a drift reference exists the fresh
// frame is checked against it and detected drift triggers a training run.
func (s *Service) RunFeaturePipeline(ctx context.Context) (*models.FeatureRunResult, error) {
	start := s.now()
	s.pipelineLogger.LogPipelineStart(PipelineFeature)

	ctx, span := tracing.Start(ctx, PipelineFeature+"_pipeline")
	result, err := s.runFeature(ctx)
	span.End(err)
	if err != nil {
		s.finish(PipelineFeature, start, err, nil)
		return nil, err
	}

	result.DurationSeconds = s.finish(PipelineFeature, start, nil, map[string]interface{}{
		"rows_processed": result.RowsProcessed,
		"rows_stored":    result.RowsStored,
	})
	result.Timestamp = s.now().UTC()
	return result, nil
}

func (s *Service) runFeature(ctx context.Context) (*models.FeatureRunResult, error) {
	raw, err := s.prices.History(ctx, float64(s.cfg.PriceSource.HistoryHours))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}
	history, report := s.history.Normalize(raw)

	frame, err := s.engineer.Build(history)
	if err != nil {
		return nil, fmt.Errorf("failed to engineer features: %w", err)
	}

	rows := frame.ToRows(features.FeatureNames())
	stored, err := s.features.SaveNew(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to store features: %w", err)
	}

	result := &models.FeatureRunResult{
		Success:       true,
		PointsFetched: report.Received,
		PointsDropped: report.Dropped(),
		RowsProcessed: len(rows),
		RowsStored:    stored,
	}

	if s.drift.HasReference() {
		driftReport := s.drift.Detect(frame, features.FeatureNames())
		result.DriftReport = &driftReport
		s.emit(ctx, events.DriftChecked, driftReport)
		if driftReport.Detected {
			s.triggerRetraining()
		}
	}
	return result, nil
}

// triggerRetraining starts the training lane in the background. A lane that
// is already running is left alone.
func (s *Service) triggerRetraining() {
	sched := s.attachedScheduler()
	if sched == nil {
		return
	}

	s.logger.Warn("Feature drift detected, triggering retraining")
	// detached from the feature run, which has already finished its trace
	go func() {
		err := sched.RunNow(context.Background(), PipelineTraining)
		if err != nil && !errors.Is(err, scheduler.ErrLaneBusy) {
			s.logger.WithError(err).Error("Drift-triggered retraining failed")
		}
	}()
}

// RunTrainingPipeline trains a new bundle from the stored features, saves and
// promotes it locally, registers it remotely when a registry is configured,
// installs it for inference and makes the training frame the drift reference.
// Too few complete rows abort the run before any fit and keep the active bundle.
func (s *Service) RunTrainingPipeline(ctx context.Context) (*models.TrainingRunResult, error) {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	start := s.now()
	s.pipelineLogger.LogPipelineStart(PipelineTraining)

	ctx, span := tracing.Start(ctx, PipelineTraining+"_pipeline")
	result, err := s.runTraining(ctx)
	span.End(err)
	if err != nil {
		s.finish(PipelineTraining, start, err, nil)
		return nil, err
	}

	result.DurationSeconds = s.finish(PipelineTraining, start, nil, map[string]interface{}{
		"version":           result.Version,
		"best_model":        result.BestModel,
		"samples_trained":   result.SamplesTrained,
		"remote_registered": result.RemoteRegistered,
	})
	result.Timestamp = s.now().UTC()

	s.emit(ctx, events.ModelTrained, result)
	return result, nil
}

func (s *Service) runTraining(ctx context.Context) (*models.TrainingRunResult, error) {
	rows, err := s.features.Recent(ctx, s.cfg.Prediction.TrainingRowLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load features: %w", err)
	}
	frame := features.FrameFromRows(rows)
	names := features.FeatureNames()

	driftReport := s.drift.Detect(frame, names)
	s.emit(ctx, events.DriftChecked, driftReport)

	ds := frame.TrainingSet(names)
	if ds.Len() < s.cfg.Prediction.MinTrainingRows {
		return nil, fmt.Errorf("%w: have %d complete rows, need %d",
			ml.ErrInsufficientData, ds.Len(), s.cfg.Prediction.MinTrainingRows)
	}

	bundle, err := s.trainer.Train(ctx, ds, ml.NewVersion(s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to train models: %w", err)
	}
	version := bundle.Metadata.Version

	localPath, err := s.local.Save(bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to save bundle: %w", err)
	}
	if err := s.local.Promote(version); err != nil {
		return nil, fmt.Errorf("failed to promote bundle: %w", err)
	}

	registered := false
	if s.registry != nil {
		if err := s.registry.Register(ctx, bundle); err != nil {
			s.logger.WithError(err).WithField("version", version).Warn("Remote model registration failed, bundle kept locally")
		} else {
			registered = true
		}
	}

	if err := s.models.Install(bundle, s.local.Name()); err != nil {
		return nil, fmt.Errorf("failed to install bundle: %w", err)
	}
	s.drift.SetReference(frame)

	s.logger.WithFields(logrus.Fields{
		"version":    version,
		"best_model": bundle.Metadata.BestModel,
		"path":       localPath,
	}).Info("Model bundle promoted")

	return &models.TrainingRunResult{
		Version:          version,
		BestModel:        bundle.Metadata.BestModel,
		LocalPath:        localPath,
		RemoteRegistered: registered,
		SamplesTrained:   ds.Len(),
		Metrics:          bundle.Metadata.Metrics,
		DriftReport:      &driftReport,
	}, nil
}

// RunInferencePipeline validates matured predictions against the current
// price, creates a new prediction and evaluates the alert rules.
func (s *Service) RunInferencePipeline(ctx context.Context) (*models.InferenceRunResult, error) {
	start := s.now()
	s.pipelineLogger.LogPipelineStart(PipelineInference)

	ctx, span := tracing.Start(ctx, PipelineInference+"_pipeline")
	result, err := s.runInference(ctx)
	span.End(err)
	if err != nil {
		s.finish(PipelineInference, start, err, nil)
		return nil, err
	}

	fields := map[string]interface{}{
		"current_price": result.CurrentPrice,
		"validated":     result.Validated,
		"alerts":        len(result.Alerts),
	}
	if result.Prediction != nil {
		fields["predicted_price"] = result.Prediction.PredictedPrice
		fields["direction"] = result.Prediction.PredictedDirection
	}
	result.DurationSeconds = s.finish(PipelineInference, start, nil, fields)
	result.Timestamp = s.now().UTC()
	return result, nil
}

func (s *Service) runInference(ctx context.Context) (*models.InferenceRunResult, error) {
	quote, history, frame, err := s.marketFrame(ctx)
	if err != nil {
		return nil, err
	}
	price := quote.Price

	validated := s.validator.Validate(ctx, &price)
	if validated.Validated > 0 {
		s.emit(ctx, events.PredictionValidated, validated)
	}

	result := &models.InferenceRunResult{
		CurrentPrice: price,
		Validated:    validated.Validated,
	}

	prediction, err := s.predictor.Predict(ctx, frame, price)
	if err != nil {
		// Alerts still run without a prediction.
		s.logger.WithError(err).Warn("Prediction not available this cycle")
	} else {
		result.Prediction = prediction
		s.setLatest(prediction)
		s.emit(ctx, events.PredictionCreated, prediction)
	}

	var volatility *float64
	if column, ok := frame.Column(features.ColVolatility); ok {
		for i := len(column) - 1; i >= 0; i-- {
			if v := column[i]; !math.IsNaN(v) {
				volatility = &v
				break
			}
		}
	}

	fired := s.alerts.Evaluate(ctx, price, quote.PreviousPrice(), prediction, volatility)
	if alert := s.alerts.CheckDrawdown(ctx, price, Peak(history)); alert != nil {
		fired = append(fired, *alert)
	}
	for _, alert := range fired {
		s.emit(ctx, events.AlertFired, alert)
	}
	result.Alerts = fired
	if result.Alerts == nil {
		result.Alerts = []models.AlertRecord{}
	}

	return result, nil
}
