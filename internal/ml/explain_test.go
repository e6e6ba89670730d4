package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weightedBundle() *ModelBundle {
	b := tinyBundle("v1")
	b.Regressors[KindRidge] = &RidgeRegressor{Name: KindRidge, Weights: []float64{3, -1}, Intercept: 100}
	b.Regressors[KindKNN] = &KNNRegressor{K: 1, Samples: [][]float64{{0, 0}}, Targets: []float64{1}}
	b.Classifier = &LogisticClassifier{Weights: []float64{0, 2}}
	return b
}

func TestFeatureImportance(t *testing.T) {
	b := weightedBundle()

	imp, err := b.FeatureImportance("")
	require.NoError(t, err)
	assert.Equal(t, KindRidge, imp.Model)
	assert.Equal(t, "v1", imp.Version)
	assert.Equal(t, []FeatureWeight{
		{Feature: "a", Coefficient: 3, Importance: 0.75},
		{Feature: "b", Coefficient: -1, Importance: 0.25},
	}, imp.Features)

	classifier, err := b.FeatureImportance(KindLogistic)
	require.NoError(t, err)
	assert.Equal(t, "b", classifier.Features[0].Feature)
	assert.Equal(t, 1.0, classifier.Features[0].Importance)
	assert.Equal(t, 0.0, classifier.Features[1].Importance)
}

func TestFeatureImportanceErrors(t *testing.T) {
	b := weightedBundle()

	_, err := b.FeatureImportance(KindKNN)
	assert.ErrorIs(t, err, ErrNotExplainable)

	_, err = b.FeatureImportance("xgboost")
	assert.ErrorIs(t, err, ErrUnknownModel)

	b.Regressors[KindRidge] = &RidgeRegressor{Name: KindRidge, Weights: []float64{1}}
	_, err = b.FeatureImportance(KindRidge)
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestExplainAttributesPrediction(t *testing.T) {
	b := weightedBundle()

	exp, err := b.Explain([]float64{2, 4})
	require.NoError(t, err)

	assert.Equal(t, KindRidge, exp.ModelUsed)
	assert.Equal(t, 100.0, exp.BaseValue)
	assert.Equal(t, 102.0, exp.Prediction)
	assert.Equal(t, []Contribution{
		{Feature: "a", Value: 2, Contribution: 6},
		{Feature: "b", Value: 4, Contribution: -4},
	}, exp.TopContributions)
	assert.Len(t, exp.TopImportance, 2)
	assert.Equal(t, "The most influential factor is a, which is increasing the predicted price. Key features: a, b.", exp.Text)

	inf, err := b.Infer([]float64{2, 4})
	require.NoError(t, err)
	assert.Equal(t, inf.Predictions[KindRidge], exp.Prediction)
}

func TestExplainFallsBackToLinearRegressor(t *testing.T) {
	b := weightedBundle()
	b.Metadata.BestModel = KindKNN

	exp, err := b.Explain([]float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, KindRidge, exp.ModelUsed)
	assert.Contains(t, exp.Text, "decreasing")

	delete(b.Regressors, KindRidge)
	_, err = b.Explain([]float64{0, 1})
	assert.ErrorIs(t, err, ErrNotExplainable)
}
