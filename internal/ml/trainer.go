package ml

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/features"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/logger"
)

// VersionLayout formats bundle versions.
const VersionLayout = "20060102_150405"

// NewVersion returns the bundle version for a training run started at t.
func NewVersion(t time.Time) string {
	return t.UTC().Format(VersionLayout)
}

// TrainerConfig holds training hyper-parameters.
type TrainerConfig struct {
	MinRows        int
	TestFraction   float64
	RidgeAlpha     float64
	KNeighbors     int
	PCAComponents  int
	RegimeClusters int
	Seed           int64
}

// DefaultTrainerConfig returns the production training settings.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		MinRows:        50,
		TestFraction:   0.2,
		RidgeAlpha:     1.0,
		KNeighbors:     5,
		PCAComponents:  5,
		RegimeClusters: 4,
		Seed:           42,
	}
}

// Trainer fits a complete ModelBundle from a dataset.
type Trainer struct {
	cfg    TrainerConfig
	logger *logger.PipelineLogger
}

// NewTrainer creates a trainer.
func NewTrainer(cfg TrainerConfig, log *logrus.Logger) *Trainer {
	return &Trainer{cfg: cfg, logger: logger.NewPipelineLogger(log)}
}

type fittable interface {
	Regressor
	Fit(x [][]float64, y []float64) error
}

// Train splits ds chronologically, fits every estimator on the training
// part and scores it on the held-out tail.
func (t *Trainer) Train(ctx context.Context, ds *features.Dataset, version string) (*ModelBundle, error) {
	bundle, err := t.train(ctx, ds, version)
	if err != nil {
		MLTrainingJobsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	MLTrainingJobsTotal.WithLabelValues("success").Inc()
	return bundle, nil
}

func (t *Trainer) train(ctx context.Context, ds *features.Dataset, version string) (*ModelBundle, error) {
	n := ds.Len()
	if n < t.cfg.MinRows {
		return nil, fmt.Errorf("%w: have %d rows, need %d", ErrInsufficientData, n, t.cfg.MinRows)
	}

	nTest := int(math.Ceil(t.cfg.TestFraction * float64(n)))
	if nTest < 1 {
		nTest = 1
	}
	split := n - nTest

	scaler, err := FitScaler(ds.X[:split])
	if err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	xTrain, err := scaler.TransformAll(ds.X[:split])
	if err != nil {
		return nil, err
	}
	xTest, err := scaler.TransformAll(ds.X[split:])
	if err != nil {
		return nil, err
	}
	yTrain, yTest := ds.FuturePrice[:split], ds.FuturePrice[split:]
	dirTrain, dirTest := ds.Direction[:split], ds.Direction[split:]

	bundle := &ModelBundle{
		Metadata: Metadata{
			Version:        version,
			FeatureNames:   append([]string(nil), ds.FeatureNames...),
			Metrics:        make(map[string]map[string]float64),
			CreatedAt:      time.Now().UTC(),
			SamplesTrained: split,
		},
		Scaler:     scaler,
		Regressors: make(map[string]Regressor),
	}

	candidates := []fittable{
		NewRidge(t.cfg.RidgeAlpha),
		NewLinear(),
		NewKNN(t.cfg.KNeighbors),
	}
	bestRMSE := math.Inf(1)
	for _, model := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := model.Fit(xTrain, yTrain); err != nil {
			t.logger.WithError(err).WithField("model_name", model.Kind()).Warn("Regressor failed to fit, skipping")
			continue
		}
		metrics, err := scoreRegressor(model, xTest, yTest)
		if err != nil {
			t.logger.WithError(err).WithField("model_name", model.Kind()).Warn("Regressor failed to score, skipping")
			continue
		}
		bundle.Regressors[model.Kind()] = model
		bundle.Metadata.Metrics[model.Kind()] = metrics
		MLModelRMSE.WithLabelValues(model.Kind()).Set(metrics["rmse"])
		t.logger.LogModelTraining(model.Kind(), split, metrics)

		if metrics["rmse"] < bestRMSE {
			bestRMSE = metrics["rmse"]
			bundle.Metadata.BestModel = model.Kind()
		}
	}
	if len(bundle.Regressors) == 0 {
		return nil, fmt.Errorf("%w: every regressor failed to train", ErrNoRegressorOutput)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	classifier := NewLogistic()
	if err := classifier.Fit(xTrain, dirTrain); err != nil {
		t.logger.WithError(err).Warn("Direction classifier failed to fit, bundle will not carry one")
	} else {
		metrics := scoreClassifier(classifier, xTest, dirTest)
		bundle.Classifier = classifier
		bundle.Metadata.Metrics[KindLogistic] = metrics
		t.logger.LogModelTraining(KindLogistic, split, metrics)
	}

	regime, err := t.fitRegime(xTrain)
	if err != nil {
		t.logger.WithError(err).Warn("Regime model failed to fit, bundle will not carry one")
	} else {
		bundle.Regime = regime
	}

	return bundle, nil
}

func (t *Trainer) fitRegime(x [][]float64) (*RegimeModel, error) {
	components := t.cfg.PCAComponents
	if width := len(x[0]); components > width {
		components = width
	}
	pca := NewPCA(components)
	if err := pca.Fit(x); err != nil {
		return nil, err
	}
	reduced := make([][]float64, len(x))
	for i, row := range x {
		r, err := pca.Transform(row)
		if err != nil {
			return nil, err
		}
		reduced[i] = r
	}
	km := NewKMeans(t.cfg.RegimeClusters, t.cfg.Seed)
	if err := km.Fit(reduced); err != nil {
		return nil, err
	}
	return &RegimeModel{Reducer: pca, Clusterer: km}, nil
}

func scoreRegressor(model Regressor, x [][]float64, y []float64) (map[string]float64, error) {
	predicted := make([]float64, len(x))
	for i, row := range x {
		p, err := model.Predict(row)
		if err != nil {
			return nil, err
		}
		predicted[i] = p
	}
	return RegressionMetrics(y, predicted), nil
}

func scoreClassifier(model Classifier, x [][]float64, y []float64) map[string]float64 {
	predicted := make([]float64, len(x))
	for i, row := range x {
		p, err := model.PredictProba(row)
		if err != nil {
			continue
		}
		if p >= 0.5 {
			predicted[i] = 1
		}
	}
	return ClassificationMetrics(y, predicted)
}
