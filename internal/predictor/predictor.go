// Package predictor turns the latest feature row and the current price into a
// prediction record and appends it to the ledger.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/features"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/logger"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/metrics"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ml"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// ErrNotAvailable is returned when no prediction can be produced. It wraps the cause.
var ErrNotAvailable = errors.New("prediction not available")

const (
	minConfidence = 50.0
	maxConfidence = 95.0

	// RegimeNeutral labels predictions made without a regime model.
	RegimeNeutral = "neutral"
)

var regimes = [...]string{"accumulation", "uptrend", "distribution", "downtrend"}

// RegimeLabel maps a cluster id to its market regime.
func RegimeLabel(cluster int) string {
	if cluster < 0 {
		cluster = -cluster
	}
	return regimes[cluster%len(regimes)]
}

// ModelProvider supplies the bundle used for inference.
type ModelProvider interface {
	EnsureLoaded(ctx context.Context) (*ml.ModelBundle, error)
}

// Appender stores created predictions.
type Appender interface {
	Append(ctx context.Context, rec *models.PredictionRecord)
}

// Predictor creates prediction records.
type Predictor struct {
	models  ModelProvider
	ledger  Appender
	horizon time.Duration
	cache   *ml.InferenceCache
	now     func() time.Time
	logger  *logger.PredictionLogger
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithCache reuses bundle outputs for an already seen feature row.
func WithCache(c *ml.InferenceCache) Option {
	return func(p *Predictor) {
		p.cache = c
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(p *Predictor) {
		p.now = now
	}
}

// New creates a predictor.
func New(provider ModelProvider, ledger Appender, horizon time.Duration, log *logrus.Logger, opts ...Option) *Predictor {
	p := &Predictor{
		models:  provider,
		ledger:  ledger,
		horizon: horizon,
		now:     time.Now,
		logger:  logger.NewPredictionLogger(log),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Predict runs the loaded bundle on the newest complete row of frame and
// appends the resulting record to the ledger.
func (p *Predictor) Predict(ctx context.Context, frame *features.Frame, currentPrice float64) (*models.PredictionRecord, error) {
	if currentPrice <= 0 || math.IsNaN(currentPrice) {
		return nil, fmt.Errorf("%w: invalid current price %v", ErrNotAvailable, currentPrice)
	}

	bundle, err := p.models.EnsureLoaded(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAvailable, err)
	}

	idx, row, ok := frame.LatestComplete(bundle.Metadata.FeatureNames)
	if !ok {
		return nil, fmt.Errorf("%w: no complete feature row", ErrNotAvailable)
	}

	inf, err := p.infer(bundle, row, frame.Timestamps[idx])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAvailable, err)
	}

	rec := p.build(inf, currentPrice)
	p.ledger.Append(ctx, rec)

	metrics.RecordPrediction(string(rec.PredictedDirection), rec.MarketRegime, rec.Confidence)
	p.logger.LogPredictionCreated(rec.ID.String(), rec.PriceAtCreation, rec.PredictedPrice,
		string(rec.PredictedDirection), rec.Confidence, rec.ModelUsed, rec.MarketRegime, rec.TargetAt)
	return rec, nil
}

func (p *Predictor) infer(bundle *ml.ModelBundle, row []float64, at time.Time) (*ml.Inference, error) {
	if p.cache == nil {
		return bundle.Infer(row)
	}
	key := ml.CacheKey{ModelVersion: bundle.Metadata.Version, FeatureTime: at}
	if inf, ok := p.cache.Get(key); ok {
		return inf, nil
	}
	inf, err := bundle.Infer(row)
	if err != nil {
		return nil, err
	}
	p.cache.Set(key, inf)
	return inf, nil
}

func (p *Predictor) build(inf *ml.Inference, currentPrice float64) *models.PredictionRecord {
	modelUsed, predicted := inf.Chosen()
	diff := predicted - currentPrice

	direction := models.DirectionOf(diff)
	confidence := math.Min(maxConfidence, minConfidence+math.Abs(diff)/currentPrice*100*10)

	if inf.Probability != nil {
		proba := *inf.Probability
		clsDirection := models.DirectionDown
		if proba > 0.5 {
			clsDirection = models.DirectionUp
		}
		clsConfidence := math.Max(proba, 1-proba) * 100

		switch {
		case clsDirection != direction:
			p.logger.LogClassifierDisagreement(string(direction), string(clsDirection), clsConfidence)
		case clsConfidence > confidence:
			confidence = math.Min(maxConfidence, clsConfidence)
		}
	}

	regime := RegimeNeutral
	if inf.Cluster != nil {
		regime = RegimeLabel(*inf.Cluster)
	}

	all := make(map[string]float64, len(inf.Predictions))
	for name, v := range inf.Predictions {
		all[name] = models.RoundPrice(v)
	}

	created := p.now().UTC()
	return &models.PredictionRecord{
		ID:                  uuid.New(),
		CreatedAt:           created,
		TargetAt:            created.Add(p.horizon),
		PriceAtCreation:     models.RoundPrice(currentPrice),
		PredictedPrice:      models.RoundPrice(predicted),
		PredictedDirection:  direction,
		Confidence:          models.Round(confidence, 1),
		MarketRegime:        regime,
		ModelUsed:           modelUsed,
		AllModelPredictions: all,
		PriceChange:         models.RoundPrice(diff),
		PriceChangePct:      models.Round(diff/currentPrice*100, 2),
		HorizonMinutes:      int(p.horizon / time.Minute),
	}
}
