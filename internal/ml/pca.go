package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCA projects rows onto their leading principal components.
type PCA struct {
	Components int         `json:"components"`
	Mean       []float64   `json:"mean"`
	Vectors    [][]float64 `json:"vectors"` // one row per component
}

// NewPCA creates a reducer keeping up to components dimensions.
func NewPCA(components int) *PCA {
	return &PCA{Components: components}
}

// Kind returns the model kind.
func (m *PCA) Kind() string {
	return KindPCA
}

// Fit computes the principal directions of x.
func (m *PCA) Fit(x [][]float64) error {
	n := len(x)
	if n < 2 {
		return fmt.Errorf("%w: PCA needs at least 2 rows, got %d", ErrInsufficientData, n)
	}
	p := len(x[0])

	data := mat.NewDense(n, p, nil)
	for i, row := range x {
		if len(row) != p {
			return fmt.Errorf("%w: row %d", ErrFeatureMismatch, i)
		}
		data.SetRow(i, row)
	}

	m.Mean = make([]float64, p)
	for j := 0; j < p; j++ {
		m.Mean[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return fmt.Errorf("principal component decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	_, available := vecs.Dims()
	k := m.Components
	if k <= 0 || k > available {
		k = available
	}
	m.Components = k
	m.Vectors = make([][]float64, k)
	for c := 0; c < k; c++ {
		m.Vectors[c] = mat.Col(nil, c, &vecs)
	}
	return nil
}

// Transform projects one row.
func (m *PCA) Transform(row []float64) ([]float64, error) {
	if m.Vectors == nil {
		return nil, ErrNotFitted
	}
	if len(row) != len(m.Mean) {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrFeatureMismatch, len(row), len(m.Mean))
	}
	out := make([]float64, len(m.Vectors))
	for c, vec := range m.Vectors {
		var dot float64
		for j, v := range row {
			dot += (v - m.Mean[j]) * vec[j]
		}
		out[c] = dot
	}
	return out, nil
}
