package service

import (
	"context"
	"fmt"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/features"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ml"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// analysisHours is the price window behind the trend and EDA reports.
const analysisHours = 24

// MarketData returns the coin's 24h market summary.
func (s *Service) MarketData(ctx context.Context) (*models.MarketSnapshot, error) {
	snapshot, err := s.prices.MarketData(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}
	return snapshot, nil
}

// ModelImportance ranks the features of the named model of the installed
// bundle. An empty name selects the best model.
func (s *Service) ModelImportance(name string) (*ml.FeatureImportance, error) {
	bundle, _, ok := s.models.Current()
	if !ok {
		return nil, ErrModelsNotLoaded
	}
	return bundle.FeatureImportance(name)
}

// Explainability attributes the prediction for the latest complete feature
// row to its features.
func (s *Service) Explainability(ctx context.Context) (*ml.Explanation, error) {
	bundle, _, ok := s.models.Current()
	if !ok {
		return nil, ErrModelsNotLoaded
	}

	_, _, frame, err := s.marketFrame(ctx)
	if err != nil {
		return nil, err
	}

	_, row, ok := frame.LatestComplete(bundle.Metadata.FeatureNames)
	if !ok {
		return nil, fmt.Errorf("%w: no complete feature row", ml.ErrInsufficientData)
	}
	return bundle.Explain(row)
}

// Trend labels the last day of prices bullish, bearish or neutral.
func (s *Service) Trend(ctx context.Context) (features.TrendReport, error) {
	frame, err := s.analysisFrame(ctx)
	if err != nil {
		return features.TrendReport{}, err
	}
	prices, _ := frame.Column(features.ColPrice)
	return features.Trend(prices, features.TrendWindow), nil
}

// EDA builds the exploratory report over the last day of features.
func (s *Service) EDA(ctx context.Context) (*features.EDAReport, error) {
	frame, err := s.analysisFrame(ctx)
	if err != nil {
		return nil, err
	}
	return features.Analyze(frame)
}

func (s *Service) analysisFrame(ctx context.Context) (*features.Frame, error) {
	raw, err := s.prices.History(ctx, analysisHours)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}
	history, _ := s.history.Normalize(raw)

	frame, err := s.engineer.Build(history)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ml.ErrInsufficientData, err)
	}
	return frame, nil
}

// DriftReports returns the newest limit drift reports, oldest first.
func (s *Service) DriftReports(limit int) []models.DriftReport {
	return s.drift.Reports(limit)
}

// DriftSummary aggregates the retained drift reports.
func (s *Service) DriftSummary() models.DriftSummary {
	return s.drift.Summary()
}
