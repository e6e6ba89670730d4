package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// KMeans partitions rows into k clusters using k-means++ seeding and Lloyd iterations.
type KMeans struct {
	K         int         `json:"k"`
	Seed      int64       `json:"seed"`
	Restarts  int         `json:"restarts"`
	MaxIter   int         `json:"max_iter"`
	Centroids [][]float64 `json:"centroids"`
	Inertia   float64     `json:"inertia"`
}

// NewKMeans creates a clusterer with a fixed seed so training is reproducible.
func NewKMeans(k int, seed int64) *KMeans {
	return &KMeans{K: k, Seed: seed, Restarts: 10, MaxIter: 300}
}

// Kind returns the model kind.
func (m *KMeans) Kind() string {
	return KindKMeans
}

// Fit keeps the lowest-inertia result over all restarts.
func (m *KMeans) Fit(x [][]float64) error {
	if len(x) == 0 {
		return fmt.Errorf("%w: no rows to cluster", ErrInsufficientData)
	}
	k := m.K
	if k > len(x) {
		k = len(x)
	}
	if k < 1 {
		return fmt.Errorf("k must be positive, got %d", m.K)
	}

	rng := rand.New(rand.NewSource(m.Seed))
	restarts := m.Restarts
	if restarts < 1 {
		restarts = 1
	}

	best := math.Inf(1)
	var bestCentroids [][]float64
	for r := 0; r < restarts; r++ {
		centroids := seedCentroids(x, k, rng)
		inertia := lloyd(x, centroids, m.MaxIter)
		if inertia < best {
			best = inertia
			bestCentroids = centroids
		}
	}

	m.Centroids = bestCentroids
	m.Inertia = best
	return nil
}

// Assign returns the index of the nearest centroid.
func (m *KMeans) Assign(row []float64) (int, error) {
	if len(m.Centroids) == 0 {
		return 0, ErrNotFitted
	}
	if len(row) != len(m.Centroids[0]) {
		return 0, fmt.Errorf("%w: got %d values, want %d", ErrFeatureMismatch, len(row), len(m.Centroids[0]))
	}
	idx, _ := nearest(row, m.Centroids)
	return idx, nil
}

func seedCentroids(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), x[rng.Intn(len(x))]...))

	dist := make([]float64, len(x))
	for len(centroids) < k {
		var total float64
		for i, row := range x {
			_, d := nearest(row, centroids)
			dist[i] = d
			total += d
		}
		if total == 0 {
			centroids = append(centroids, append([]float64(nil), x[rng.Intn(len(x))]...))
			continue
		}
		target := rng.Float64() * total
		chosen := len(x) - 1
		for i, d := range dist {
			target -= d
			if target <= 0 {
				chosen = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), x[chosen]...))
	}
	return centroids
}

func lloyd(x [][]float64, centroids [][]float64, maxIter int) float64 {
	assignment := make([]int, len(x))
	for i := range assignment {
		assignment[i] = -1
	}
	width := len(centroids[0])

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, row := range x {
			idx, _ := nearest(row, centroids)
			if idx != assignment[i] {
				assignment[i] = idx
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, len(centroids))
		counts := make([]int, len(centroids))
		for c := range sums {
			sums[c] = make([]float64, width)
		}
		for i, row := range x {
			c := assignment[i]
			counts[c]++
			for j, v := range row {
				sums[c][j] += v
			}
		}
		for c := range centroids {
			// empty clusters keep their previous centroid
			if counts[c] == 0 {
				continue
			}
			for j := range sums[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	var inertia float64
	for _, row := range x {
		_, d := nearest(row, centroids)
		inertia += d
	}
	return inertia
}

func nearest(row []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(row, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}
