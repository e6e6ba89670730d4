package drift

import (
	"io"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/features"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// normalFrame builds a frame whose columns are drawn from N(mean, std).
func normalFrame(seed int64, n int, mean, std float64, columns ...string) *features.Frame {
	r := rand.New(rand.NewSource(seed))
	ts := make([]time.Time, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range ts {
		ts[i] = base.Add(time.Duration(i) * 5 * time.Minute)
	}
	frame := features.NewFrame(ts)
	for _, c := range columns {
		values := make([]float64, n)
		for i := range values {
			values[i] = mean + std*r.NormFloat64()
		}
		frame.Set(c, values)
	}
	return frame
}

func ksOnly(t *testing.T) *Detector {
	t.Helper()
	strategies, err := StrategiesFor([]string{MethodKSTest}, DefaultConfig())
	require.NoError(t, err)
	return NewDetector(0.3, quietLogger(), strategies...)
}

func TestDetectShiftedMeanWithKS(t *testing.T) {
	d := ksOnly(t)
	d.SetReference(normalFrame(1, 200, 100, 10, "price"))

	report := d.Detect(normalFrame(2, 200, 150, 10, "price"), []string{"price"})

	assert.True(t, report.Detected)
	assert.Equal(t, MethodKSTest, report.Method)
	assert.Greater(t, report.Score, 0.9)
	assert.Equal(t, 0.3, report.Threshold)

	feature := report.PerFeatureResults["price"]
	require.NotNil(t, feature.PValue)
	assert.Less(t, *feature.PValue, 0.05)
	assert.True(t, feature.Drifted)
}

func TestReportsAndSummary(t *testing.T) {
	d := ksOnly(t)
	empty := d.Summary()
	assert.Zero(t, empty.TotalReports)
	assert.Nil(t, empty.LastCheckedAt)
	assert.Empty(t, d.Reports(10))

	d.Detect(normalFrame(2, 50, 100, 10, "a"), []string{"a"})

	d.SetReference(normalFrame(1, 500, 100, 10, "a", "b"))
	shifted := d.Detect(normalFrame(2, 500, 150, 10, "a", "b"), []string{"a", "b"})
	same := d.Detect(normalFrame(3, 500, 100, 10, "a", "b"), []string{"a", "b"})
	require.True(t, shifted.Detected)
	require.False(t, same.Detected)

	reports := d.Reports(2)
	require.Len(t, reports, 2)
	assert.Equal(t, shifted.Score, reports[0].Score)
	assert.Equal(t, same.Score, reports[1].Score)
	assert.Len(t, d.Reports(0), 3)

	reports[0].PerFeatureResults["a"] = models.FeatureDrift{}
	assert.True(t, d.Reports(2)[0].PerFeatureResults["a"].Drifted)

	summary := d.Summary()
	assert.Equal(t, 3, summary.TotalReports)
	assert.Equal(t, 2, summary.ScoredReports)
	assert.Equal(t, 1, summary.DriftDetected)
	assert.Equal(t, 50.0, summary.DriftRate)
	assert.Equal(t, models.Round(shifted.Score, 4), summary.MaxScore)
	assert.Equal(t, MethodKSTest, summary.LatestMethod)
	assert.Equal(t, 0.3, summary.Threshold)
	require.NotNil(t, summary.LastDetectedAt)
	assert.Equal(t, shifted.ComputedAt, *summary.LastDetectedAt)
	require.NotNil(t, summary.LastCheckedAt)
	assert.Equal(t, same.ComputedAt, *summary.LastCheckedAt)
}

func TestReportsAreBounded(t *testing.T) {
	d := ksOnly(t)
	for i := 0; i < ReportCapacity+5; i++ {
		d.Detect(nil, []string{"a"})
	}
	assert.Len(t, d.Reports(0), ReportCapacity)
	assert.Equal(t, ReportCapacity, d.Summary().TotalReports)
}

func TestDetectSameDistributionWithKS(t *testing.T) {
	d := ksOnly(t)
	d.SetReference(normalFrame(1, 500, 100, 10, "a", "b"))

	report := d.Detect(normalFrame(2, 500, 100, 10, "a", "b"), []string{"a", "b"})

	assert.False(t, report.Detected)
	assert.Less(t, report.Score, 0.3)
	assert.Len(t, report.PerFeatureResults, 2)
}

func TestDetectWithoutReference(t *testing.T) {
	d := ksOnly(t)
	assert.False(t, d.HasReference())

	empty, ok := d.Latest()
	require.False(t, ok)
	assert.False(t, empty.Detected)
	assert.Equal(t, NoAnalysisMessage, empty.Message)
	assert.False(t, empty.ComputedAt.IsZero())

	report := d.Detect(normalFrame(2, 50, 100, 10, "price"), []string{"price"})

	assert.False(t, report.Detected)
	assert.Zero(t, report.Score)
	assert.Equal(t, "no reference data", report.Message)

	latest, ok := d.Latest()
	require.True(t, ok)
	assert.Equal(t, report, latest)
}

func TestDetectNoSharedColumns(t *testing.T) {
	d := ksOnly(t)
	d.SetReference(normalFrame(1, 50, 100, 10, "a"))

	report := d.Detect(normalFrame(2, 50, 100, 10, "b"), []string{"a", "b"})

	assert.False(t, report.Detected)
	assert.Equal(t, "no common feature columns", report.Message)
}

func TestDomainClassifierSeparatesShiftedData(t *testing.T) {
	cfg := DefaultConfig()
	strategy := NewDomainClassifier(cfg)

	outcome, err := strategy.Score(
		normalFrame(1, 150, 100, 10, "a", "b"),
		normalFrame(2, 150, 150, 10, "a", "b"),
		[]string{"a", "b"},
	)
	require.NoError(t, err)

	assert.Greater(t, outcome.Score, 0.8)
	require.Len(t, outcome.PerFeature, 2)
	var total float64
	for _, f := range outcome.PerFeature {
		require.NotNil(t, f.Importance)
		total += *f.Importance
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestDomainClassifierFlagsSingleColumn(t *testing.T) {
	outcome, err := NewDomainClassifier(DefaultConfig()).Score(
		normalFrame(1, 150, 100, 10, "a"),
		normalFrame(2, 150, 150, 10, "a"),
		[]string{"a"},
	)
	require.NoError(t, err)

	assert.Greater(t, outcome.Score, 0.8)
	feature := outcome.PerFeature["a"]
	require.NotNil(t, feature.Importance)
	assert.Equal(t, 1.0, *feature.Importance)
	assert.True(t, feature.Drifted)
}

func TestImportancesFlagOnlyWhenSeparable(t *testing.T) {
	weights := []float64{3, -1}
	columns := []string{"a", "b"}

	flagged := importances(weights, columns, true)
	assert.True(t, flagged["a"].Drifted)
	assert.False(t, flagged["b"].Drifted)
	assert.InDelta(t, 0.75, *flagged["a"].Importance, 1e-9)

	quiet := importances(weights, columns, false)
	assert.False(t, quiet["a"].Drifted)

	single := importances([]float64{0.4}, []string{"a"}, true)
	assert.True(t, single["a"].Drifted)
}

func TestDomainClassifierSameDistribution(t *testing.T) {
	outcome, err := NewDomainClassifier(DefaultConfig()).Score(
		normalFrame(1, 200, 100, 10, "a"),
		normalFrame(2, 200, 100, 10, "a"),
		[]string{"a"},
	)
	require.NoError(t, err)
	assert.Less(t, outcome.Score, 0.3)
	assert.GreaterOrEqual(t, outcome.Score, 0.0)
	assert.False(t, outcome.PerFeature["a"].Drifted)
}

func TestDetectFallsBackWhenClassifierUnavailable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinRows = 1000
	strategies, err := StrategiesFor([]string{MethodDomainClassifier, MethodKSTest}, cfg)
	require.NoError(t, err)

	d := NewDetector(cfg.Threshold, quietLogger(), strategies...)
	d.SetReference(normalFrame(1, 100, 100, 10, "price"))
	report := d.Detect(normalFrame(2, 100, 150, 10, "price"), []string{"price"})

	assert.Equal(t, MethodKSTest, report.Method)
	assert.True(t, report.Detected)
}

func TestDetectPrefersClassifierWhenAvailable(t *testing.T) {
	strategies, err := StrategiesFor([]string{MethodDomainClassifier, MethodKSTest}, DefaultConfig())
	require.NoError(t, err)

	d := NewDetector(0.3, quietLogger(), strategies...)
	d.SetReference(normalFrame(1, 100, 100, 10, "price"))
	report := d.Detect(normalFrame(2, 100, 150, 10, "price"), []string{"price"})

	assert.Equal(t, MethodDomainClassifier, report.Method)
	assert.True(t, report.Detected)
}

func TestDetectAllStrategiesUnavailable(t *testing.T) {
	d := ksOnly(t)
	empty := features.NewFrame([]time.Time{time.Now(), time.Now()})
	empty.Set("price", []float64{math.NaN(), math.NaN()})
	d.SetReference(empty)

	report := d.Detect(normalFrame(2, 10, 100, 10, "price"), []string{"price"})

	assert.False(t, report.Detected)
	assert.Empty(t, report.Method)
	assert.Contains(t, report.Message, MethodKSTest)
}

func TestSetReferenceReplacesWholesale(t *testing.T) {
	d := ksOnly(t)
	d.SetReference(normalFrame(1, 200, 100, 10, "price"))
	current := normalFrame(2, 200, 150, 10, "price")
	require.True(t, d.Detect(current, []string{"price"}).Detected)

	d.SetReference(normalFrame(3, 200, 150, 10, "price"))
	assert.False(t, d.Detect(current, []string{"price"}).Detected)
}

func TestStrategiesForUnknownMethod(t *testing.T) {
	_, err := StrategiesFor([]string{"psi"}, DefaultConfig())
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestKSPValue(t *testing.T) {
	tests := []struct {
		name string
		d    float64
		n, m int
		min  float64
		max  float64
	}{
		{"identical samples", 0, 100, 100, 1, 1},
		{"small difference", 0.05, 100, 100, 0.9, 1},
		{"large difference", 0.5, 100, 100, 0, 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := KSPValue(tt.d, tt.n, tt.m)
			assert.GreaterOrEqual(t, p, tt.min)
			assert.LessOrEqual(t, p, tt.max)
		})
	}
}
