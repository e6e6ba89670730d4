package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Model kinds as written in serialized bundles.
const (
	KindRidge    = "ridge"
	KindLinear   = "linear"
	KindKNN      = "knn"
	KindLogistic = "logistic"
	KindPCA      = "pca"
	KindKMeans   = "kmeans"
)

// RidgeRegressor is L2-regularised least squares with an unpenalised intercept.
type RidgeRegressor struct {
	Name      string    `json:"name"`
	Alpha     float64   `json:"alpha"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// NewRidge creates a ridge regressor.
func NewRidge(alpha float64) *RidgeRegressor {
	return &RidgeRegressor{Name: KindRidge, Alpha: alpha}
}

// NewLinear creates an ordinary least squares regressor, kept solvable on
// collinear features by a negligible penalty.
func NewLinear() *RidgeRegressor {
	return &RidgeRegressor{Name: KindLinear, Alpha: 1e-3}
}

// Kind returns the model kind.
func (r *RidgeRegressor) Kind() string {
	return r.Name
}

// Fit solves (XcᵀXc + αI)w = Xcᵀyc on centered data.
func (r *RidgeRegressor) Fit(x [][]float64, y []float64) error {
	n := len(x)
	if n == 0 || n != len(y) {
		return fmt.Errorf("%w: %d rows, %d targets", ErrInsufficientData, n, len(y))
	}
	p := len(x[0])

	means := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		means[j] = stat.Mean(col, nil)
	}
	yMean := stat.Mean(y, nil)

	xc := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	for i := range x {
		if len(x[i]) != p {
			return fmt.Errorf("%w: row %d", ErrFeatureMismatch, i)
		}
		for j := 0; j < p; j++ {
			xc.Set(i, j, x[i][j]-means[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	var gram mat.Dense
	gram.Mul(xc.T(), xc)
	for j := 0; j < p; j++ {
		gram.Set(j, j, gram.At(j, j)+r.Alpha)
	}

	var rhs mat.VecDense
	rhs.MulVec(xc.T(), yc)

	var w mat.VecDense
	if err := w.SolveVec(&gram, &rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return fmt.Errorf("failed to solve %s system: %w", r.Name, err)
		}
	}

	r.Weights = make([]float64, p)
	intercept := yMean
	for j := 0; j < p; j++ {
		r.Weights[j] = w.AtVec(j)
		intercept -= r.Weights[j] * means[j]
	}
	r.Intercept = intercept
	return nil
}

// Coefficients returns the fitted weights and intercept.
func (r *RidgeRegressor) Coefficients() ([]float64, float64) {
	return r.Weights, r.Intercept
}

// Predict returns the estimate for one scaled row.
func (r *RidgeRegressor) Predict(row []float64) (float64, error) {
	if r.Weights == nil {
		return 0, ErrNotFitted
	}
	if len(row) != len(r.Weights) {
		return 0, fmt.Errorf("%w: got %d values, want %d", ErrFeatureMismatch, len(row), len(r.Weights))
	}
	out := r.Intercept
	for j, v := range row {
		out += r.Weights[j] * v
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("%s produced a non-finite estimate", r.Name)
	}
	return out, nil
}
