package ml

import (
	"fmt"
	"math"
)

// LogisticClassifier is an L2-regularised logistic regression fitted by batch gradient descent.
type LogisticClassifier struct {
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	LearningRate float64   `json:"learning_rate"`
	Iterations   int       `json:"iterations"`
	L2           float64   `json:"l2"`
}

// NewLogistic creates a classifier with default optimisation settings.
func NewLogistic() *LogisticClassifier {
	return &LogisticClassifier{LearningRate: 0.1, Iterations: 500, L2: 1e-3}
}

// Kind returns the model kind.
func (m *LogisticClassifier) Kind() string {
	return KindLogistic
}

// Fit learns weights for binary labels (0 or 1).
func (m *LogisticClassifier) Fit(x [][]float64, y []float64) error {
	n := len(x)
	if n == 0 || n != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrInsufficientData, n, len(y))
	}
	p := len(x[0])
	m.Weights = make([]float64, p)
	m.Bias = 0

	grad := make([]float64, p)
	for iter := 0; iter < m.Iterations; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradBias float64
		for i, row := range x {
			if len(row) != p {
				return fmt.Errorf("%w: row %d", ErrFeatureMismatch, i)
			}
			diff := sigmoid(m.linear(row)) - y[i]
			for j, v := range row {
				grad[j] += diff * v
			}
			gradBias += diff
		}
		for j := range m.Weights {
			m.Weights[j] -= m.LearningRate * (grad[j]/float64(n) + m.L2*m.Weights[j])
		}
		m.Bias -= m.LearningRate * gradBias / float64(n)
	}
	return nil
}

// Coefficients returns the fitted weights and bias, on the log-odds scale.
func (m *LogisticClassifier) Coefficients() ([]float64, float64) {
	return m.Weights, m.Bias
}

// PredictProba returns the probability of the positive (up) class.
func (m *LogisticClassifier) PredictProba(row []float64) (float64, error) {
	if m.Weights == nil {
		return 0, ErrNotFitted
	}
	if len(row) != len(m.Weights) {
		return 0, fmt.Errorf("%w: got %d values, want %d", ErrFeatureMismatch, len(row), len(m.Weights))
	}
	return sigmoid(m.linear(row)), nil
}

func (m *LogisticClassifier) linear(row []float64) float64 {
	z := m.Bias
	for j, v := range row {
		z += m.Weights[j] * v
	}
	return z
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
