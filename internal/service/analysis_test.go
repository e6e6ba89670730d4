package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/features"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ml"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

func TestAnalysisQueries(t *testing.T) {
	f := newFixture(t)
	end := time.Now().UTC().Truncate(time.Minute)
	f.prices.On("History", mock.Anything, 24.0).Return(history(end, 288), nil)

	trend, err := f.svc.Trend(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, features.TrendInsufficientData, trend.Trend)
	assert.NotZero(t, trend.SMA)

	report, err := f.svc.EDA(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 288, report.Statistics.Count)
	assert.Equal(t, 288, report.DataQuality.TotalRows)
	assert.NotEmpty(t, report.Correlations.TopCorrelations)
}

func TestAnalysisQueryFailures(t *testing.T) {
	f := newFixture(t)
	end := time.Now().UTC().Truncate(time.Minute)
	f.prices.On("History", mock.Anything, 24.0).Return(nil, errors.New("timeout")).Once()
	f.prices.On("History", mock.Anything, 24.0).Return(history(end, 1), nil).Once()

	_, err := f.svc.Trend(context.Background())
	assert.ErrorIs(t, err, ErrPriceUnavailable)

	_, err = f.svc.EDA(context.Background())
	assert.ErrorIs(t, err, ml.ErrInsufficientData)
}

func TestMarketData(t *testing.T) {
	f := newFixture(t)
	f.prices.On("MarketData", mock.Anything).Return(&models.MarketSnapshot{Price: 50000, High24h: 51000}, nil).Once()
	f.prices.On("MarketData", mock.Anything).Return(nil, errors.New("rate limited")).Once()

	snapshot, err := f.svc.MarketData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 51000.0, snapshot.High24h)

	_, err = f.svc.MarketData(context.Background())
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestModelQueriesWithoutModels(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ModelImportance("")
	assert.ErrorIs(t, err, ErrModelsNotLoaded)

	_, err = f.svc.Explainability(context.Background())
	assert.ErrorIs(t, err, ErrModelsNotLoaded)
}

func TestExplainabilityAfterTraining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := time.Now().UTC().Truncate(time.Minute)
	points := history(end, 288)

	f.prices.On("History", mock.Anything, 24.0).Return(points, nil)
	f.prices.On("History", mock.Anything, 6.0).Return(points[len(points)-72:], nil)
	f.prices.On("CurrentPrice", mock.Anything).Return(&models.PriceQuote{Price: points[len(points)-1].Price}, nil)

	_, err := f.svc.RunFeaturePipeline(ctx)
	require.NoError(t, err)
	_, err = f.svc.RunTrainingPipeline(ctx)
	require.NoError(t, err)

	importance, err := f.svc.ModelImportance(ml.KindRidge)
	require.NoError(t, err)
	assert.Equal(t, ml.KindRidge, importance.Model)
	assert.Len(t, importance.Features, len(features.FeatureNames()))

	_, err = f.svc.ModelImportance("xgboost")
	assert.ErrorIs(t, err, ml.ErrUnknownModel)

	explanation, err := f.svc.Explainability(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, ml.KindKNN, explanation.ModelUsed)
	assert.Len(t, explanation.TopContributions, 5)
	assert.Contains(t, explanation.Text, "Key features:")

	reports := f.svc.DriftReports(10)
	require.NotEmpty(t, reports)
	assert.Equal(t, len(reports), f.svc.DriftSummary().TotalReports)
}
