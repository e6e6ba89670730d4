package service

import (
	"io"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

var historyNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestHistoryValidator() *HistoryValidator {
	log := logrus.New()
	log.SetOutput(io.Discard)
	v := NewHistoryValidator(log)
	v.now = func() time.Time { return historyNow }
	return v
}

func TestValidatePoint(t *testing.T) {
	validator := newTestHistoryValidator()

	tests := []struct {
		name       string
		point      models.PricePoint
		shouldHave string
	}{
		{
			name:  "valid point",
			point: models.PricePoint{Timestamp: historyNow.Add(-time.Minute), Price: 50000},
		},
		{
			name:       "missing timestamp",
			point:      models.PricePoint{Price: 50000},
			shouldHave: "timestamp is required",
		},
		{
			name:       "zero price",
			point:      models.PricePoint{Timestamp: historyNow, Price: 0},
			shouldHave: "price must be positive",
		},
		{
			name:       "NaN price",
			point:      models.PricePoint{Timestamp: historyNow, Price: math.NaN()},
			shouldHave: "price must be finite",
		},
		{
			name:       "future timestamp",
			point:      models.PricePoint{Timestamp: historyNow.Add(time.Hour), Price: 50000},
			shouldHave: "in the future",
		},
		{
			name:  "small clock skew allowed",
			point: models.PricePoint{Timestamp: historyNow.Add(2 * time.Minute), Price: 50000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validator.ValidatePoint(tt.point)
			if tt.shouldHave == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0], tt.shouldHave)
		})
	}
}

func TestNormalizeSortsDeduplicatesAndDrops(t *testing.T) {
	validator := newTestHistoryValidator()
	t0 := historyNow.Add(-time.Hour)

	input := []models.PricePoint{
		{Timestamp: t0.Add(10 * time.Minute), Price: 102},
		{Timestamp: t0, Price: 100},
		{Timestamp: t0.Add(5 * time.Minute), Price: 101},
		{Timestamp: t0.Add(5 * time.Minute), Price: 101.5},
		{Timestamp: t0.Add(15 * time.Minute), Price: -3},
	}
	original := append([]models.PricePoint(nil), input...)

	got, report := validator.Normalize(input)

	require.Len(t, got, 3)
	assert.Equal(t, []float64{100, 101.5, 102}, []float64{got[0].Price, got[1].Price, got[2].Price})
	assert.Equal(t, 5, report.Received)
	assert.Equal(t, 3, report.Kept)
	assert.Equal(t, 1, report.Invalid)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 2, report.Dropped())
	assert.Equal(t, original, input)
}

func TestNormalizeEmpty(t *testing.T) {
	got, report := newTestHistoryValidator().Normalize(nil)
	assert.Empty(t, got)
	assert.Zero(t, report.Dropped())
}

func TestPeak(t *testing.T) {
	assert.Equal(t, 0.0, Peak(nil))
	assert.Equal(t, 105.0, Peak([]models.PricePoint{{Price: 100}, {Price: 105}, {Price: 99}}))
}
