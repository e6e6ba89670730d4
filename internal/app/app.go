// Package app builds the sentinel's object graph from configuration. The
// server binary and the operator CLI share it.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/alerts"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/api"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/config"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/database"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/datasource"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/drift"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/events"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ledger"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/logger"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ml"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/predictor"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/repository"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/service"
)

const (
	memoryFeatureRows  = 5000
	inferenceCacheSize = 256
)

// LoadConfig reads configuration, overlays AWS secrets when
// AWS_SECRETS_ENABLED is true and validates the result.
func LoadConfig(ctx context.Context, path string) (*config.Config, error) {
	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return nil, fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return nil, fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the process logger from configuration.
func NewLogger(cfg *config.Config) *logrus.Logger {
	return logger.NewLoggerForEnvironment(cfg.App.LogLevel, cfg.App.Environment)
}

// OpenDatabase connects when the database is enabled. A connection failure
// is logged and the sentinel continues on its local stores.
func OpenDatabase(ctx context.Context, cfg *config.Config, log *logrus.Logger) *database.DB {
	if !cfg.Database.Enabled {
		return nil
	}
	db, err := database.Initialize(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Warn("Database unavailable, using local stores only")
		return nil
	}
	return db
}

// LedgerParts is a ledger together with its rehydration sources, in the
// order they are tried.
type LedgerParts struct {
	Ledger  *ledger.PredictionLedger
	File    *ledger.FileStore
	Sources []ledger.Store
}

// NewLedger builds the prediction ledger persisting to the local file and,
// when db is set and mirroring is enabled, to the remote mirror.
func NewLedger(cfg *config.Config, db *database.DB, log *logrus.Logger) LedgerParts {
	file := ledger.NewFileStore(cfg.Ledger.FilePath)
	stores := []ledger.Store{file}
	sources := []ledger.Store{file}

	if db != nil && cfg.Ledger.RemoteMirrorEnabled {
		mirror := ledger.NewRemoteMirror(
			repository.NewPostgresPredictionRepository(db),
			cfg.Ledger.RehydrateLimit,
			time.Duration(cfg.Ledger.RehydrateHours)*time.Hour,
		)
		stores = append(stores, mirror)
		sources = []ledger.Store{mirror, file}
	}

	return LedgerParts{
		Ledger:  ledger.New(cfg.Ledger.Capacity, log, ledger.WithStores(stores...)),
		File:    file,
		Sources: sources,
	}
}

// App holds the wired components and what must be released on shutdown.
type App struct {
	Config  *config.Config
	Logger  *logrus.Logger
	DB      *database.DB
	Ledger  *ledger.PredictionLedger
	Hub     *api.Hub
	Service *service.Service

	closers []func() error
}

// Build wires every component. The returned service is not yet initialized.
func Build(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}
	a.DB = OpenDatabase(ctx, cfg, log)
	if a.DB != nil {
		a.closers = append(a.closers, func() error {
			a.DB.Close()
			return nil
		})
	}

	var featureRepo repository.FeatureRepository = repository.NewMemoryFeatureRepository(memoryFeatureRows)
	if a.DB != nil {
		featureRepo = repository.NewPostgresFeatureRepository(a.DB)
	}

	parts := NewLedger(cfg, a.DB, log)
	a.Ledger = parts.Ledger

	local := ml.NewLocalStore(cfg.Registry.ModelDir, cfg.Registry.ActiveModelDir)
	loaders := []ml.BundleLoader{local}
	var registry *ml.Registry
	if a.DB != nil && cfg.Registry.RemoteEnabled {
		registry = ml.NewRegistry(repository.NewPostgresModelRepository(a.DB), cfg.Registry.ModelName)
		loaders = append(loaders, registry)
	}

	trainerCfg := ml.DefaultTrainerConfig()
	trainerCfg.MinRows = cfg.Prediction.MinTrainingRows
	trainerCfg.RegimeClusters = cfg.Prediction.NClusters

	driftCfg := drift.DefaultConfig()
	driftCfg.Threshold = cfg.Drift.Threshold
	driftCfg.PValue = cfg.Drift.PValue
	driftCfg.MinRows = cfg.Drift.MinRows
	strategies, err := drift.StrategiesFor(cfg.Drift.Methods, driftCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	webhookClient := datasource.NewRateLimitedHTTPClient(datasource.DefaultHTTPClientConfig(), log)
	a.closers = append(a.closers, webhookClient.Close)
	notifiers := alerts.NotifiersFromConfig(cfg.Notifications, webhookClient, log)
	alertEngine := alerts.NewEngine(
		alerts.ThresholdsFromConfig(cfg.Alerts),
		cfg.Ledger.AlertCapacity,
		log,
		alerts.WithNotifiers(alerts.ParseSeverity(cfg.Notifications.MinSeverity), notifiers...),
	)

	a.Hub = api.NewHub(log, nil)
	publishers := []events.Publisher{a.Hub}
	if cfg.Events.KafkaEnabled {
		kafka := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		publishers = append(publishers, kafka)
		a.closers = append(a.closers, kafka.Close)
	}

	prices := datasource.NewPriceSource(cfg.PriceSource, log)
	cache := ml.NewInferenceCache(cfg.Prediction.Horizon(), inferenceCacheSize)

	svc, err := service.New(service.Deps{
		Config:        cfg,
		Prices:        prices,
		Features:      featureRepo,
		Ledger:        parts.Ledger,
		LedgerSources: parts.Sources,
		Models:        ml.NewModelStore(log, loaders...),
		Trainer:       ml.NewTrainer(trainerCfg, log),
		LocalStore:    local,
		Registry:      registry,
		Drift:         drift.NewDetector(cfg.Drift.Threshold, log, strategies...),
		Alerts:        alertEngine,
		Events:        events.NewBus(log, publishers...),
		Logger:        log,
	}, predictor.WithCache(cache))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Service = svc

	log.WithFields(logrus.Fields{
		"database":   a.DB != nil,
		"registry":   registry != nil,
		"publishers": len(publishers),
		"notifiers":  len(notifiers),
		"drift":      cfg.Drift.Methods,
	}).Info("Components wired")
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	if a.Hub != nil {
		a.Hub.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.WithError(err).Warn("Failed to release resource")
		}
	}
	a.closers = nil
}
