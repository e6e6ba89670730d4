package ml

import (
	"fmt"
	"sort"
)

// KNNRegressor averages the targets of the k nearest training rows.
type KNNRegressor struct {
	K       int         `json:"k"`
	Samples [][]float64 `json:"samples"`
	Targets []float64   `json:"targets"`
}

// NewKNN creates a k-nearest-neighbours regressor.
func NewKNN(k int) *KNNRegressor {
	if k < 1 {
		k = 1
	}
	return &KNNRegressor{K: k}
}

// Kind returns the model kind.
func (m *KNNRegressor) Kind() string {
	return KindKNN
}

// Fit stores the training rows.
func (m *KNNRegressor) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("%w: %d rows, %d targets", ErrInsufficientData, len(x), len(y))
	}
	m.Samples = make([][]float64, len(x))
	for i, row := range x {
		m.Samples[i] = append([]float64(nil), row...)
	}
	m.Targets = append([]float64(nil), y...)
	return nil
}

// Predict returns the mean target of the nearest neighbours.
func (m *KNNRegressor) Predict(row []float64) (float64, error) {
	if len(m.Samples) == 0 {
		return 0, ErrNotFitted
	}
	if len(row) != len(m.Samples[0]) {
		return 0, fmt.Errorf("%w: got %d values, want %d", ErrFeatureMismatch, len(row), len(m.Samples[0]))
	}

	type neighbour struct {
		dist   float64
		target float64
	}
	neighbours := make([]neighbour, len(m.Samples))
	for i, sample := range m.Samples {
		neighbours[i] = neighbour{dist: squaredDistance(row, sample), target: m.Targets[i]}
	}
	sort.SliceStable(neighbours, func(i, j int) bool { return neighbours[i].dist < neighbours[j].dist })

	k := m.K
	if k > len(neighbours) {
		k = len(neighbours)
	}
	var sum float64
	for _, nb := range neighbours[:k] {
		sum += nb.target
	}
	return sum / float64(k), nil
}

func squaredDistance(a, b []float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}
