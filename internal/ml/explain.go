package ml

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

const explainTopN = 5

// Linear is implemented by models whose output is an affine function of the
// scaled row.
type Linear interface {
	Coefficients() (weights []float64, intercept float64)
}

// FeatureWeight is one feature's share of a model's absolute coefficients.
type FeatureWeight struct {
	Feature     string  `json:"feature"`
	Coefficient float64 `json:"coefficient"`
	Importance  float64 `json:"importance"`
}

// FeatureImportance ranks every input feature of one model.
type FeatureImportance struct {
	Model    string          `json:"model_name"`
	Version  string          `json:"version"`
	Features []FeatureWeight `json:"features"`
}

// Contribution is a feature's additive effect on one prediction.
type Contribution struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// Explanation attributes one prediction of a linear model to its features.
// On standardized inputs the intercept is the prediction at the training
// mean, and Prediction = BaseValue + sum of every contribution.
type Explanation struct {
	ModelUsed        string          `json:"model_used"`
	Version          string          `json:"version"`
	BaseValue        float64         `json:"expected_value"`
	Prediction       float64         `json:"prediction"`
	TopContributions []Contribution  `json:"contribution_top_features"`
	TopImportance    []FeatureWeight `json:"importance_top_features"`
	Text             string          `json:"explanation"`
}

// linearModel resolves name to a model with coefficients. An empty name
// selects the best regressor; the classifier is addressed by its kind.
func (b *ModelBundle) linearModel(name string) (string, Linear, error) {
	if name == "" {
		name = b.Metadata.BestModel
	}

	var model interface{}
	if r, ok := b.Regressors[name]; ok {
		model = r
	} else if b.Classifier != nil && b.Classifier.Kind() == name {
		model = b.Classifier
	} else {
		return name, nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}

	lin, ok := model.(Linear)
	if !ok {
		return name, nil, fmt.Errorf("%w: %s", ErrNotExplainable, name)
	}
	weights, _ := lin.Coefficients()
	if len(weights) != len(b.Metadata.FeatureNames) {
		return name, nil, fmt.Errorf("%w: %s has %d coefficients for %d features",
			ErrFeatureMismatch, name, len(weights), len(b.Metadata.FeatureNames))
	}
	return name, lin, nil
}

// FeatureImportance ranks features by the absolute coefficient of the named
// model. Importances are normalised to sum to 1.
func (b *ModelBundle) FeatureImportance(name string) (*FeatureImportance, error) {
	name, lin, err := b.linearModel(name)
	if err != nil {
		return nil, err
	}
	return &FeatureImportance{
		Model:    name,
		Version:  b.Metadata.Version,
		Features: rankWeights(b.Metadata.FeatureNames, lin),
	}, nil
}

func rankWeights(names []string, lin Linear) []FeatureWeight {
	weights, _ := lin.Coefficients()
	var total float64
	for _, w := range weights {
		total += math.Abs(w)
	}

	out := make([]FeatureWeight, len(names))
	for j, name := range names {
		imp := 0.0
		if total > 0 {
			imp = math.Abs(weights[j]) / total
		}
		out[j] = FeatureWeight{
			Feature:     name,
			Coefficient: models.Round(weights[j], 4),
			Importance:  models.Round(imp, 4),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out
}

// Explain attributes the prediction for one unscaled row. The best regressor
// is used when it is linear, otherwise the first linear regressor by name.
func (b *ModelBundle) Explain(row []float64) (*Explanation, error) {
	name, lin, err := b.explainableRegressor()
	if err != nil {
		return nil, err
	}

	scaled, err := b.Scaler.Transform(row)
	if err != nil {
		return nil, fmt.Errorf("failed to scale features: %w", err)
	}

	weights, intercept := lin.Coefficients()
	contributions := make([]Contribution, len(scaled))
	prediction := intercept
	for j, z := range scaled {
		c := weights[j] * z
		prediction += c
		contributions[j] = Contribution{
			Feature:      b.Metadata.FeatureNames[j],
			Value:        row[j],
			Contribution: models.Round(c, 4),
		}
	}
	sort.SliceStable(contributions, func(i, j int) bool {
		return math.Abs(contributions[i].Contribution) > math.Abs(contributions[j].Contribution)
	})

	ranked := rankWeights(b.Metadata.FeatureNames, lin)
	out := &Explanation{
		ModelUsed:        name,
		Version:          b.Metadata.Version,
		BaseValue:        models.RoundPrice(intercept),
		Prediction:       models.RoundPrice(prediction),
		TopContributions: contributions[:min(explainTopN, len(contributions))],
		TopImportance:    ranked[:min(explainTopN, len(ranked))],
	}
	out.Text = explanationText(out.TopContributions, out.TopImportance)
	return out, nil
}

func (b *ModelBundle) explainableRegressor() (string, Linear, error) {
	if name, lin, err := b.linearModel(""); err == nil {
		return name, lin, nil
	}
	for _, n := range b.RegressorNames() {
		if name, lin, err := b.linearModel(n); err == nil {
			return name, lin, nil
		}
	}
	return "", nil, fmt.Errorf("%w: no linear regressor in bundle %s", ErrNotExplainable, b.Metadata.Version)
}

func explanationText(contributions []Contribution, importance []FeatureWeight) string {
	if len(contributions) == 0 && len(importance) == 0 {
		return "No explanation available."
	}

	var parts []string
	if len(contributions) > 0 {
		top := contributions[0]
		direction := "increasing"
		if top.Contribution < 0 {
			direction = "decreasing"
		}
		parts = append(parts, fmt.Sprintf("The most influential factor is %s, which is %s the predicted price.", top.Feature, direction))
	}
	if len(importance) > 0 {
		names := make([]string, 0, 3)
		for _, f := range importance[:min(3, len(importance))] {
			names = append(names, f.Feature)
		}
		parts = append(parts, "Key features: "+strings.Join(names, ", ")+".")
	}
	return strings.Join(parts, " ")
}
