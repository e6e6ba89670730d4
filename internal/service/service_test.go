package service

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/alerts"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/config"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/drift"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/events"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ledger"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ml"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/predictor"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/repository"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/scheduler"
)

type mockPriceSource struct {
	mock.Mock
}

func (m *mockPriceSource) CurrentPrice(ctx context.Context) (*models.PriceQuote, error) {
	args := m.Called(ctx)
	quote, _ := args.Get(0).(*models.PriceQuote)
	return quote, args.Error(1)
}

func (m *mockPriceSource) History(ctx context.Context, hours float64) ([]models.PricePoint, error) {
	args := m.Called(ctx, hours)
	points, _ := args.Get(0).([]models.PricePoint)
	return points, args.Error(1)
}

func (m *mockPriceSource) MarketData(ctx context.Context) (*models.MarketSnapshot, error) {
	args := m.Called(ctx)
	snapshot, _ := args.Get(0).(*models.MarketSnapshot)
	return snapshot, args.Error(1)
}

func (m *mockPriceSource) Name() string {
	return "mock"
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []events.Type
}

func (r *recordingPublisher) Name() string { return "recorder" }

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type)
	return nil
}

func (r *recordingPublisher) seen() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Type(nil), r.types...)
}

type fixture struct {
	svc       *Service
	prices    *mockPriceSource
	store     *repository.MemoryFeatureRepository
	ledger    *ledger.PredictionLedger
	local     *ml.LocalStore
	published *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg, err := config.LoadWithDefaults("testdata/missing.yaml")
	require.NoError(t, err)

	dir := t.TempDir()
	f := &fixture{
		prices:    &mockPriceSource{},
		store:     repository.NewMemoryFeatureRepository(0),
		ledger:    ledger.New(cfg.Ledger.Capacity, log),
		local:     ml.NewLocalStore(dir+"/saved", dir+"/active"),
		published: &recordingPublisher{},
	}

	svc, err := New(Deps{
		Config:     cfg,
		Prices:     f.prices,
		Features:   f.store,
		Ledger:     f.ledger,
		Models:     ml.NewModelStore(log),
		Trainer:    ml.NewTrainer(ml.DefaultTrainerConfig(), log),
		LocalStore: f.local,
		Drift:      drift.NewDetector(cfg.Drift.Threshold, log, drift.NewKSTest(cfg.Drift.PValue)),
		Alerts:     alerts.NewEngine(alerts.DefaultThresholds(), cfg.Ledger.AlertCapacity, log),
		Events:     events.NewBus(log, f.published),
		Logger:     log,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

// history returns n five-minute points ending at end.
func history(end time.Time, n int) []models.PricePoint {
	points := make([]models.PricePoint, n)
	for i := 0; i < n; i++ {
		points[i] = models.PricePoint{
			Timestamp: end.Add(-time.Duration(n-1-i) * 5 * time.Minute),
			Price:     models.RoundPrice(50000 + 2*float64(i) + 150*math.Sin(float64(i)/4)),
		}
	}
	return points
}

func flat(end time.Time, n int, price float64) []models.PricePoint {
	points := make([]models.PricePoint, n)
	for i := range points {
		points[i] = models.PricePoint{Timestamp: end.Add(-time.Duration(n-1-i) * 5 * time.Minute), Price: price}
	}
	return points
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestFeaturePipelineStoresOnlyNewRows(t *testing.T) {
	f := newFixture(t)
	end := time.Now().UTC().Truncate(time.Minute)
	f.prices.On("History", mock.Anything, 24.0).Return(history(end, 288), nil)

	first, err := f.svc.RunFeaturePipeline(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, 288, first.PointsFetched)
	assert.Zero(t, first.PointsDropped)
	assert.Greater(t, first.RowsStored, 0)
	assert.Equal(t, first.RowsProcessed, first.RowsStored)
	assert.Nil(t, first.DriftReport)

	second, err := f.svc.RunFeaturePipeline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.RowsProcessed, second.RowsProcessed)
	assert.Zero(t, second.RowsStored)

	count, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.RowsStored, count)
}

func TestFeaturePipelinePriceSourceFailure(t *testing.T) {
	f := newFixture(t)
	f.prices.On("History", mock.Anything, 24.0).Return(nil, errors.New("timeout"))

	_, err := f.svc.RunFeaturePipeline(context.Background())
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestTrainingPipelineInsufficientData(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RunTrainingPipeline(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ml.ErrInsufficientData)
	assert.False(t, f.svc.ModelsLoaded())
	assert.NoFileExists(t, f.local.ActivePath())
}

func TestTrainingThenInference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := time.Now().UTC().Truncate(time.Minute)
	points := history(end, 288)
	last := points[len(points)-1].Price

	f.prices.On("History", mock.Anything, 24.0).Return(points, nil)
	f.prices.On("History", mock.Anything, 6.0).Return(points[len(points)-72:], nil)
	f.prices.On("History", mock.Anything, 1.0).Return(points[len(points)-12:], nil)
	f.prices.On("CurrentPrice", mock.Anything).Return(&models.PriceQuote{Price: last, FetchedAt: end}, nil)

	_, err := f.svc.RunFeaturePipeline(ctx)
	require.NoError(t, err)

	trained, err := f.svc.RunTrainingPipeline(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, trained.Version)
	assert.NotEmpty(t, trained.BestModel)
	assert.GreaterOrEqual(t, trained.SamplesTrained, 50)
	assert.False(t, trained.RemoteRegistered)
	require.NotNil(t, trained.DriftReport)
	assert.Equal(t, "no reference data", trained.DriftReport.Message)
	assert.FileExists(t, f.local.ActivePath())

	info, err := f.svc.ModelMetadata()
	require.NoError(t, err)
	assert.Equal(t, trained.Version, info.Version)
	assert.Equal(t, "local", info.Source)
	assert.Contains(t, info.ModelsLoaded, trained.BestModel)

	status := f.svc.Status()
	assert.True(t, status.ModelsLoaded)
	assert.True(t, status.DriftReference)
	assert.Equal(t, trained.Version, status.ModelVersion)

	refreshed, err := f.svc.RunFeaturePipeline(ctx)
	require.NoError(t, err)
	require.NotNil(t, refreshed.DriftReport)
	assert.False(t, refreshed.DriftReport.Detected)

	result, err := f.svc.RunInferencePipeline(ctx)
	require.NoError(t, err)
	require.NotNil(t, result.Prediction)
	assert.Equal(t, last, result.CurrentPrice)
	assert.Equal(t, last, result.Prediction.PriceAtCreation)
	assert.NotNil(t, result.Alerts)
	assert.Equal(t, 1, f.ledger.Len())

	cached, err := f.svc.CurrentPrediction(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.Prediction.ID, cached.ID)
	assert.Equal(t, 1, f.ledger.Len())

	seen := f.published.seen()
	assert.Contains(t, seen, events.ModelTrained)
	assert.Contains(t, seen, events.DriftChecked)
	assert.Contains(t, seen, events.PredictionCreated)
}

func TestInferenceWithoutModels(t *testing.T) {
	f := newFixture(t)
	end := time.Now().UTC().Truncate(time.Minute)
	points := history(end, 72)

	f.prices.On("History", mock.Anything, 6.0).Return(points, nil)
	f.prices.On("History", mock.Anything, 1.0).Return(points[60:], nil)
	f.prices.On("CurrentPrice", mock.Anything).Return(&models.PriceQuote{Price: points[71].Price}, nil)

	result, err := f.svc.RunInferencePipeline(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result.Prediction)
	assert.Zero(t, f.ledger.Len())

	_, err = f.svc.CurrentPrediction(context.Background())
	assert.ErrorIs(t, err, predictor.ErrNotAvailable)

	_, err = f.svc.ModelMetadata()
	assert.ErrorIs(t, err, ErrModelsNotLoaded)
}

func TestInferenceValidatesMaturedPredictions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := time.Now().UTC().Truncate(time.Minute)

	f.ledger.Append(ctx, &models.PredictionRecord{
		ID:                 uuid.New(),
		CreatedAt:          end.Add(-40 * time.Minute),
		TargetAt:           end.Add(-10 * time.Minute),
		PriceAtCreation:    50000,
		PredictedPrice:     50600,
		PredictedDirection: models.DirectionUp,
		Confidence:         60,
		HorizonMinutes:     30,
	})

	f.prices.On("History", mock.Anything, 6.0).Return(flat(end, 72, 50300), nil)
	f.prices.On("History", mock.Anything, 1.0).Return(flat(end, 12, 50300), nil)
	f.prices.On("CurrentPrice", mock.Anything).Return(&models.PriceQuote{Price: 50300}, nil)

	result, err := f.svc.RunInferencePipeline(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Validated)

	accuracy := f.svc.Accuracy()
	assert.Equal(t, 1, accuracy.ValidatedCount)
	assert.Equal(t, 1, accuracy.CorrectCount)
	assert.Equal(t, 100.0, accuracy.AccuracyPct)
	assert.Contains(t, f.published.seen(), events.PredictionValidated)
}

func TestInferencePriceSourceFailure(t *testing.T) {
	f := newFixture(t)
	f.prices.On("CurrentPrice", mock.Anything).Return(nil, errors.New("circuit open"))

	_, err := f.svc.RunInferencePipeline(context.Background())
	assert.ErrorIs(t, err, ErrPriceUnavailable)

	_, err = f.svc.CurrentPrice(context.Background())
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestValidateNowWithoutCurrentPrice(t *testing.T) {
	f := newFixture(t)
	end := time.Now().UTC().Truncate(time.Minute)

	f.ledger.Append(context.Background(), &models.PredictionRecord{
		ID:                 uuid.New(),
		CreatedAt:          end.Add(-40 * time.Minute),
		TargetAt:           end.Add(-10 * time.Minute),
		PriceAtCreation:    50000,
		PredictedPrice:     50600,
		PredictedDirection: models.DirectionUp,
		Confidence:         60,
	})

	f.prices.On("CurrentPrice", mock.Anything).Return(nil, errors.New("rate limited"))
	f.prices.On("History", mock.Anything, 1.0).Return(flat(end, 12, 49700), nil)

	report := f.svc.ValidateNow(context.Background())
	assert.Equal(t, "Validation complete", report.Message)
	assert.Equal(t, 1, report.Validation.Validated)
	assert.Equal(t, 1, report.Accuracy.ValidatedCount)
	assert.Zero(t, report.Accuracy.CorrectCount)
}

func TestPriceHistoryNormalizes(t *testing.T) {
	f := newFixture(t)
	end := time.Now().UTC().Truncate(time.Minute)
	points := []models.PricePoint{
		{Timestamp: end, Price: 101},
		{Timestamp: end.Add(-5 * time.Minute), Price: 100},
		{Timestamp: end.Add(-10 * time.Minute), Price: -1},
	}
	f.prices.On("History", mock.Anything, 2.0).Return(points, nil)

	got, err := f.svc.PriceHistory(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 100.0, got[0].Price)
	assert.Equal(t, 101.0, got[1].Price)
}

func TestClearLedger(t *testing.T) {
	f := newFixture(t)
	f.ledger.Append(context.Background(), &models.PredictionRecord{ID: uuid.New(), CreatedAt: time.Now()})

	require.NoError(t, f.svc.ClearLedger(context.Background()))
	assert.Empty(t, f.svc.PredictionHistory(20))
	assert.Equal(t, 0, f.svc.Accuracy().Total)
}

func TestStatusListsSchedulerLanes(t *testing.T) {
	f := newFixture(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	sched := scheduler.New(log)
	require.NoError(t, f.svc.RegisterLanes(sched))

	status := f.svc.Status()
	assert.False(t, status.ModelsLoaded)
	assert.False(t, status.DriftReference)
	require.Len(t, status.Lanes, 3)
	assert.Equal(t, PipelineFeature, status.Lanes[0].Name)
	assert.Equal(t, PipelineTraining, status.Lanes[1].Name)
	assert.Equal(t, PipelineInference, status.Lanes[2].Name)
	assert.Nil(t, status.Lanes[0].LastRun)
}

func TestRunPipelineUnknown(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RunPipeline(context.Background(), "backfill")
	assert.ErrorIs(t, err, scheduler.ErrUnknownLane)
}

func TestAlertQueries(t *testing.T) {
	f := newFixture(t)
	end := time.Now().UTC().Truncate(time.Minute)
	points := flat(end, 72, 50000)

	f.prices.On("History", mock.Anything, 6.0).Return(points, nil)
	f.prices.On("History", mock.Anything, 1.0).Return(points[60:], nil)
	f.prices.On("CurrentPrice", mock.Anything).Return(&models.PriceQuote{Price: 50000, Change24h: 6000}, nil)

	result, err := f.svc.RunInferencePipeline(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, models.AlertPriceChange, result.Alerts[0].Type)
	assert.Equal(t, models.SeverityHigh, result.Alerts[0].Severity)

	assert.Len(t, f.svc.Alerts(20), 1)
	summary := f.svc.AlertSummary()
	assert.Equal(t, 1, summary.TotalAlerts)
	assert.Equal(t, 1, summary.HighSeverity)
	assert.Contains(t, f.published.seen(), events.AlertFired)
}
