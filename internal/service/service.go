// Package service wires the price source, feature store, models, ledger,
// validator, drift detector and alert engine into the three pipelines and the
// read operations served by the API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/alerts"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/config"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/datasource"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/drift"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/events"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/features"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ledger"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/logger"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/metrics"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ml"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/predictor"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/repository"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/scheduler"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/validation"
)

// Pipeline and scheduler lane names.
const (
	PipelineFeature   = "feature"
	PipelineTraining  = "training"
	PipelineInference = "inference"
)

var (
	// ErrPriceUnavailable wraps price source failures.
	ErrPriceUnavailable = errors.New("price source unavailable")
	// ErrModelsNotLoaded is returned by model queries before any bundle is installed.
	ErrModelsNotLoaded = errors.New("models not loaded")
	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("missing service dependency")
)

// Deps are the collaborators the service is built from. Registry, Events and
// LedgerSources are optional.
type Deps struct {
	Config        *config.Config
	Prices        datasource.PriceSource
	Features      repository.FeatureRepository
	Ledger        *ledger.PredictionLedger
	LedgerSources []ledger.Store
	Models        *ml.ModelStore
	Trainer       *ml.Trainer
	LocalStore    *ml.LocalStore
	Registry      *ml.Registry
	Drift         *drift.Detector
	Alerts        *alerts.Engine
	Events        *events.Bus
	Logger        *logrus.Logger
}

// Service is the process-wide handle shared by the scheduler and the API.
type Service struct {
	cfg           *config.Config
	prices        datasource.PriceSource
	engineer      *features.Engineer
	history       *HistoryValidator
	features      repository.FeatureRepository
	ledger        *ledger.PredictionLedger
	ledgerSources []ledger.Store
	validator     *validation.Validator
	predictor     *predictor.Predictor
	models        *ml.ModelStore
	trainer       *ml.Trainer
	local         *ml.LocalStore
	registry      *ml.Registry
	drift         *drift.Detector
	alerts        *alerts.Engine
	events        *events.Bus

	mu        sync.RWMutex
	latest    *models.PredictionRecord
	scheduler *scheduler.Scheduler
	trainMu   sync.Mutex

	now            func() time.Time
	logger         *logrus.Logger
	pipelineLogger *logger.PipelineLogger
}

// New builds the service and its predictor and validator.
func New(deps Deps, opts ...predictor.Option) (*Service, error) {
	required := map[string]bool{
		"config":      deps.Config == nil,
		"prices":      deps.Prices == nil,
		"features":    deps.Features == nil,
		"ledger":      deps.Ledger == nil,
		"models":      deps.Models == nil,
		"trainer":     deps.Trainer == nil,
		"local_store": deps.LocalStore == nil,
		"drift":       deps.Drift == nil,
		"alerts":      deps.Alerts == nil,
		"logger":      deps.Logger == nil,
	}
	for name, missing := range required {
		if missing {
			return nil, fmt.Errorf("%w: %s", ErrMissingDependency, name)
		}
	}

	cfg := deps.Config
	s := &Service{
		cfg:      cfg,
		prices:   deps.Prices,
		features: deps.Features,
		engineer: features.NewEngineer(features.Params{
			RSIPeriod:      cfg.Prediction.RSIPeriod,
			MACDFast:       cfg.Prediction.MACDFast,
			MACDSlow:       cfg.Prediction.MACDSlow,
			MACDSignal:     cfg.Prediction.MACDSignal,
			HorizonPeriods: cfg.Prediction.HorizonPeriods(),
		}),
		history:        NewHistoryValidator(deps.Logger),
		ledger:         deps.Ledger,
		ledgerSources:  deps.LedgerSources,
		models:         deps.Models,
		trainer:        deps.Trainer,
		local:          deps.LocalStore,
		registry:       deps.Registry,
		drift:          deps.Drift,
		alerts:         deps.Alerts,
		events:         deps.Events,
		now:            time.Now,
		logger:         deps.Logger,
		pipelineLogger: logger.NewPipelineLogger(deps.Logger),
	}

	s.validator = validation.New(validation.Config{
		Horizon:      cfg.Prediction.Horizon(),
		MatchWindow:  cfg.Prediction.MatchWindow(),
		TolerancePct: cfg.Prediction.TolerancePct,
		FetchTimeout: time.Duration(cfg.PriceSource.TimeoutSeconds) * time.Second,
	}, deps.Prices, deps.Ledger, deps.Logger)
	s.predictor = predictor.New(deps.Models, deps.Ledger, cfg.Prediction.Horizon(), deps.Logger, opts...)

	return s, nil
}

// Init rehydrates the ledger and loads the active model bundle. Neither step
// can fail startup: an empty ledger and an unloaded store are valid states.
func (s *Service) Init(ctx context.Context) {
	source, n := s.ledger.Rehydrate(ctx, s.ledgerSources...)
	metrics.UpdateLedgerSize(s.ledger.Len(), s.ledger.PendingCount())

	bundle, err := s.models.EnsureLoaded(ctx)
	fields := logrus.Fields{
		"ledger_source":  source,
		"ledger_records": n,
		"models_loaded":  err == nil,
	}
	if err != nil {
		s.logger.WithError(err).Warn("No model bundle available yet, predictions disabled until training completes")
	} else {
		fields["model_version"] = bundle.Metadata.Version
	}
	s.logger.WithFields(fields).Info("Service initialized")
}

// RegisterLanes adds the feature, training and inference lanes to sched and
// keeps sched for status reporting and drift-triggered retraining.
func (s *Service) RegisterLanes(sched *scheduler.Scheduler) error {
	sc := s.cfg.Scheduler
	lanes := []struct {
		name     string
		interval time.Duration
		timeout  time.Duration
		job      scheduler.Job
	}{
		{
			name:     PipelineFeature,
			interval: time.Duration(sc.FeatureIntervalMinutes) * time.Minute,
			timeout:  time.Duration(sc.FeatureIntervalMinutes) * time.Minute,
			job: func(ctx context.Context) error {
				_, err := s.RunFeaturePipeline(ctx)
				return err
			},
		},
		{
			name:     PipelineTraining,
			interval: time.Duration(sc.TrainingIntervalMinutes) * time.Minute,
			timeout:  time.Duration(sc.TrainingTimeoutMinutes) * time.Minute,
			job: func(ctx context.Context) error {
				_, err := s.RunTrainingPipeline(ctx)
				return err
			},
		},
		{
			name:     PipelineInference,
			interval: time.Duration(sc.InferenceIntervalMinutes) * time.Minute,
			timeout:  time.Duration(sc.InferenceIntervalMinutes) * time.Minute,
			job: func(ctx context.Context) error {
				_, err := s.RunInferencePipeline(ctx)
				return err
			},
		},
	}

	for _, l := range lanes {
		if err := sched.AddLane(l.name, l.interval, l.timeout, l.job); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.scheduler = sched
	s.mu.Unlock()
	return nil
}

// RunPipeline runs the named pipeline synchronously.
func (s *Service) RunPipeline(ctx context.Context, name string) (interface{}, error) {
	switch name {
	case PipelineFeature:
		return s.RunFeaturePipeline(ctx)
	case PipelineTraining:
		return s.RunTrainingPipeline(ctx)
	case PipelineInference:
		return s.RunInferencePipeline(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", scheduler.ErrUnknownLane, name)
	}
}

func (s *Service) attachedScheduler() *scheduler.Scheduler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduler
}

// marketFrame fetches the current quote and recent history and engineers the
// inference frame from it.
func (s *Service) marketFrame(ctx context.Context) (*models.PriceQuote, []models.PricePoint, *features.Frame, error) {
	quote, err := s.prices.CurrentPrice(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}

	raw, err := s.prices.History(ctx, float64(s.cfg.PriceSource.InferenceHistoryHours))
	if err != nil {
		return quote, nil, nil, fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}
	history, _ := s.history.Normalize(raw)

	frame, err := s.engineer.Build(history)
	if err != nil {
		return quote, history, nil, fmt.Errorf("failed to engineer features: %w", err)
	}
	return quote, history, frame, nil
}

// finish records metrics and the completion log line for one pipeline run.
func (s *Service) finish(pipeline string, start time.Time, err error, fields map[string]interface{}) float64 {
	duration := s.now().Sub(start).Seconds()
	if err != nil {
		metrics.RecordPipelineRun(pipeline, "failure", duration)
		s.pipelineLogger.LogPipelineFailure(pipeline, duration, err)
		return duration
	}
	metrics.RecordPipelineRun(pipeline, "success", duration)
	s.pipelineLogger.LogPipelineComplete(pipeline, duration, fields)
	return duration
}

func (s *Service) emit(ctx context.Context, t events.Type, payload interface{}) {
	// Delivery failures are already logged by the bus.
	_ = s.events.Emit(ctx, t, payload)
}

func (s *Service) setLatest(rec *models.PredictionRecord) {
	s.mu.Lock()
	s.latest = rec.Clone()
	s.mu.Unlock()
}
