package ml

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each column and divides by its population standard deviation.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler learns column statistics from rows.
func FitScaler(rows [][]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, ErrInsufficientData
	}
	width := len(rows[0])
	s := &StandardScaler{
		Mean:  make([]float64, width),
		Scale: make([]float64, width),
	}

	col := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		for i, row := range rows {
			if len(row) != width {
				return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureMismatch, i, len(row), width)
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

// Transform scales one row.
func (s *StandardScaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrFeatureMismatch, len(row), len(s.Mean))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// TransformAll scales every row.
func (s *StandardScaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}
