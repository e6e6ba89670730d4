package drift

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/features"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ml"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// DomainClassifier trains a classifier to tell reference rows from current
// rows. Its out-of-fold ROC AUC is mapped to a score of 2*AUC-1, clamped at 0:
// indistinguishable samples score 0, perfectly separable ones score 1.
type DomainClassifier struct {
	minRows   int
	folds     int
	seed      int64
	threshold float64
}

// NewDomainClassifier creates the classifier strategy.
func NewDomainClassifier(cfg Config) *DomainClassifier {
	folds := cfg.Folds
	if folds < 2 {
		folds = 2
	}
	return &DomainClassifier{minRows: cfg.MinRows, folds: folds, seed: cfg.Seed, threshold: cfg.Threshold}
}

// Name returns the method name.
func (c *DomainClassifier) Name() string {
	return MethodDomainClassifier
}

// Score implements Strategy.
func (c *DomainClassifier) Score(reference, current *features.Frame, columns []string) (Outcome, error) {
	ref := reference.Matrix(columns)
	cur := current.Matrix(columns)
	if len(ref) < c.minRows || len(cur) < c.minRows {
		return Outcome{}, fmt.Errorf("%w: %d reference and %d current complete rows, need %d",
			ErrStrategyUnavailable, len(ref), len(cur), c.minRows)
	}

	x := make([][]float64, 0, len(ref)+len(cur))
	y := make([]float64, 0, len(ref)+len(cur))
	x = append(x, ref...)
	x = append(x, cur...)
	for range ref {
		y = append(y, 0)
	}
	for range cur {
		y = append(y, 1)
	}

	scaler, err := ml.FitScaler(x)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrStrategyUnavailable, err)
	}
	scaled, err := scaler.TransformAll(x)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrStrategyUnavailable, err)
	}

	scores, err := c.outOfFold(scaled, y)
	if err != nil {
		return Outcome{}, err
	}
	score := math.Max(0, 2*ml.AUC(y, scores)-1)

	full := ml.NewLogistic()
	if err := full.Fit(scaled, y); err != nil {
		return Outcome{}, fmt.Errorf("failed to fit domain classifier: %w", err)
	}

	return Outcome{Score: score, PerFeature: importances(full.Weights, columns, score >= c.threshold)}, nil
}

func (c *DomainClassifier) outOfFold(x [][]float64, y []float64) ([]float64, error) {
	order := rand.New(rand.NewSource(c.seed)).Perm(len(x))
	scores := make([]float64, len(x))

	for fold := 0; fold < c.folds; fold++ {
		var trainX [][]float64
		var trainY []float64
		var held []int
		for pos, i := range order {
			if pos%c.folds == fold {
				held = append(held, i)
				continue
			}
			trainX = append(trainX, x[i])
			trainY = append(trainY, y[i])
		}

		model := ml.NewLogistic()
		if err := model.Fit(trainX, trainY); err != nil {
			return nil, fmt.Errorf("failed to fit fold %d: %w", fold, err)
		}
		for _, i := range held {
			p, err := model.PredictProba(x[i])
			if err != nil {
				return nil, err
			}
			scores[i] = p
		}
	}
	return scores, nil
}

// importances normalises absolute weights to sum to 1. When the samples are
// separable, a column is flagged if it carries at least its even share.
func importances(weights []float64, columns []string, separable bool) map[string]models.FeatureDrift {
	var total float64
	for _, w := range weights {
		total += math.Abs(w)
	}

	out := make(map[string]models.FeatureDrift, len(columns))
	even := 1 / float64(len(columns))
	for j, name := range columns {
		imp := 0.0
		if total > 0 {
			imp = math.Abs(weights[j]) / total
		}
		out[name] = models.FeatureDrift{
			Statistic:  weights[j],
			Importance: &imp,
			Drifted:    separable && total > 0 && imp >= even,
		}
	}
	return out
}
