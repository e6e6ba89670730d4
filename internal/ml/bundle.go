package ml

import (
	"fmt"
	"sort"
	"time"
)

// Regressor estimates a future price from one scaled feature row.
type Regressor interface {
	Kind() string
	Predict(row []float64) (float64, error)
}

// Classifier estimates the probability that the price goes up.
type Classifier interface {
	Kind() string
	PredictProba(row []float64) (float64, error)
}

// Reducer projects a scaled row into a lower-dimensional space.
type Reducer interface {
	Kind() string
	Transform(row []float64) ([]float64, error)
}

// Clusterer assigns a reduced row to a cluster.
type Clusterer interface {
	Kind() string
	Assign(row []float64) (int, error)
}

// RegimeModel maps a scaled row to a market regime cluster.
type RegimeModel struct {
	Reducer   Reducer
	Clusterer Clusterer
}

// Cluster returns the regime cluster for a scaled row.
func (r *RegimeModel) Cluster(row []float64) (int, error) {
	reduced, err := r.Reducer.Transform(row)
	if err != nil {
		return 0, fmt.Errorf("failed to reduce row: %w", err)
	}
	return r.Clusterer.Assign(reduced)
}

// Metadata describes how a bundle was trained.
type Metadata struct {
	Version        string                        `json:"version"`
	BestModel      string                        `json:"best_model"`
	FeatureNames   []string                      `json:"feature_names"`
	Metrics        map[string]map[string]float64 `json:"metrics"`
	CreatedAt      time.Time                     `json:"created_at"`
	SamplesTrained int                           `json:"samples_trained"`
}

// ModelBundle is everything inference needs, produced by one training run.
type ModelBundle struct {
	Metadata   Metadata
	Scaler     *StandardScaler
	Regressors map[string]Regressor
	Classifier Classifier
	Regime     *RegimeModel
}

// RegressorNames returns the regressor names in a stable order.
func (b *ModelBundle) RegressorNames() []string {
	names := make([]string, 0, len(b.Regressors))
	for name := range b.Regressors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that a bundle can serve inference.
func (b *ModelBundle) Validate() error {
	if b == nil {
		return ErrBundleNotFound
	}
	if b.Scaler == nil {
		return fmt.Errorf("bundle %s has no scaler", b.Metadata.Version)
	}
	if len(b.Regressors) == 0 {
		return fmt.Errorf("bundle %s has no regressors", b.Metadata.Version)
	}
	if len(b.Metadata.FeatureNames) != len(b.Scaler.Mean) {
		return fmt.Errorf("%w: bundle %s lists %d features, scaler fitted on %d",
			ErrFeatureMismatch, b.Metadata.Version, len(b.Metadata.FeatureNames), len(b.Scaler.Mean))
	}
	return nil
}
