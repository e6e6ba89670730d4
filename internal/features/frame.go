// Package features turns realized price history into the engineered feature
// frame consumed by training, inference and drift detection.
package features

import (
	"math"
	"sort"
	"time"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// Frame is a column-oriented table indexed by timestamp. Missing values are NaN.
type Frame struct {
	Timestamps []time.Time
	columns    map[string][]float64
	order      []string
}

// NewFrame creates an empty frame over the given timestamps.
func NewFrame(timestamps []time.Time) *Frame {
	return &Frame{
		Timestamps: timestamps,
		columns:    make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Timestamps)
}

// Set adds or replaces a column. values must have Len() entries.
func (f *Frame) Set(name string, values []float64) {
	if _, exists := f.columns[name]; !exists {
		f.order = append(f.order, name)
	}
	f.columns[name] = values
}

// Column returns the named column.
func (f *Frame) Column(name string) ([]float64, bool) {
	values, ok := f.columns[name]
	return values, ok
}

// Columns returns column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// HasColumns reports whether every named column is present.
func (f *Frame) HasColumns(names []string) bool {
	for _, name := range names {
		if _, ok := f.columns[name]; !ok {
			return false
		}
	}
	return true
}

// Row returns the values of the named columns at row i. ok is false when a
// column is absent or any value is not finite.
func (f *Frame) Row(i int, names []string) ([]float64, bool) {
	row := make([]float64, len(names))
	for j, name := range names {
		col, exists := f.columns[name]
		if !exists || i >= len(col) || !isFinite(col[i]) {
			return nil, false
		}
		row[j] = col[i]
	}
	return row, true
}

// CompleteRows returns the indexes of rows where every named column is finite.
func (f *Frame) CompleteRows(names []string) []int {
	idx := make([]int, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		if _, ok := f.Row(i, names); ok {
			idx = append(idx, i)
		}
	}
	return idx
}

// Matrix returns the complete rows of the named columns, oldest first.
func (f *Frame) Matrix(names []string) [][]float64 {
	idx := f.CompleteRows(names)
	out := make([][]float64, 0, len(idx))
	for _, i := range idx {
		row, _ := f.Row(i, names)
		out = append(out, row)
	}
	return out
}

// LatestComplete returns the most recent row whose named columns are all finite.
func (f *Frame) LatestComplete(names []string) (int, []float64, bool) {
	for i := f.Len() - 1; i >= 0; i-- {
		if row, ok := f.Row(i, names); ok {
			return i, row, true
		}
	}
	return -1, nil, false
}

// Tail returns a frame holding the last n rows.
func (f *Frame) Tail(n int) *Frame {
	if n >= f.Len() {
		return f
	}
	start := f.Len() - n
	out := NewFrame(append([]time.Time(nil), f.Timestamps[start:]...))
	for _, name := range f.order {
		out.Set(name, append([]float64(nil), f.columns[name][start:]...))
	}
	return out
}

// Dataset is the supervised view of a frame used for model fitting.
type Dataset struct {
	FeatureNames []string
	Timestamps   []time.Time
	Prices       []float64
	X            [][]float64
	FuturePrice  []float64
	Direction    []float64
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.X)
}

// TrainingSet returns rows with complete features and targets.
func (f *Frame) TrainingSet(names []string) *Dataset {
	required := append(append([]string{}, names...), ColPrice, ColFuturePrice)
	ds := &Dataset{FeatureNames: append([]string(nil), names...)}

	price := f.columns[ColPrice]
	future := f.columns[ColFuturePrice]
	for _, i := range f.CompleteRows(required) {
		row, _ := f.Row(i, names)
		ds.Timestamps = append(ds.Timestamps, f.Timestamps[i])
		ds.Prices = append(ds.Prices, price[i])
		ds.X = append(ds.X, row)
		ds.FuturePrice = append(ds.FuturePrice, future[i])
		if future[i] > price[i] {
			ds.Direction = append(ds.Direction, 1)
		} else {
			ds.Direction = append(ds.Direction, 0)
		}
	}
	return ds
}

// ToRows converts complete training rows into feature store rows.
func (f *Frame) ToRows(names []string) []models.FeatureRow {
	required := append(append([]string{}, names...), ColPrice, ColFuturePrice)
	price := f.columns[ColPrice]

	rows := make([]models.FeatureRow, 0, f.Len())
	for _, i := range f.CompleteRows(required) {
		values := make(map[string]float64, len(f.order))
		for _, name := range f.order {
			if v := f.columns[name][i]; isFinite(v) {
				values[name] = v
			}
		}
		rows = append(rows, models.FeatureRow{
			Timestamp: f.Timestamps[i],
			Price:     price[i],
			Values:    values,
		})
	}
	return rows
}

// FrameFromRows rebuilds a frame from stored feature rows, ordered by timestamp.
func FrameFromRows(rows []models.FeatureRow) *Frame {
	sorted := append([]models.FeatureRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	timestamps := make([]time.Time, len(sorted))
	names := map[string]struct{}{}
	for i, row := range sorted {
		timestamps[i] = row.Timestamp
		for name := range row.Values {
			names[name] = struct{}{}
		}
	}

	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	frame := NewFrame(timestamps)
	prices := make([]float64, len(sorted))
	for i, row := range sorted {
		prices[i] = row.Price
	}
	frame.Set(ColPrice, prices)

	for _, name := range ordered {
		if name == ColPrice {
			continue
		}
		col := make([]float64, len(sorted))
		for i, row := range sorted {
			v, ok := row.Values[name]
			if !ok {
				v = math.NaN()
			}
			col[i] = v
		}
		frame.Set(name, col)
	}
	return frame
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
