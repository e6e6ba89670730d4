package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

var base = time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)

func featureRows(start time.Time, n int) []models.FeatureRow {
	rows := make([]models.FeatureRow, n)
	for i := range rows {
		rows[i] = models.FeatureRow{
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
			Price:     100 + float64(i),
			Values:    map[string]float64{"rsi": 50 + float64(i)},
		}
	}
	return rows
}

func TestMemoryFeatureRepositorySkipsKnownMinutes(t *testing.T) {
	repo := NewMemoryFeatureRepository(0)
	ctx := context.Background()

	added, err := repo.SaveNew(ctx, featureRows(base, 4))
	require.NoError(t, err)
	assert.Equal(t, 4, added)

	// same minutes with different seconds are duplicates
	again := featureRows(base.Add(20*time.Second), 6)
	added, err = repo.SaveNew(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestMemoryFeatureRepositoryRecent(t *testing.T) {
	repo := NewMemoryFeatureRepository(0)
	ctx := context.Background()
	_, err := repo.SaveNew(ctx, featureRows(base, 10))
	require.NoError(t, err)

	recent, err := repo.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, base.Add(35*time.Minute), recent[0].Timestamp)
	assert.Equal(t, base.Add(45*time.Minute), recent[2].Timestamp)
	assert.Equal(t, 109.0, recent[2].Price)

	all, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestMemoryFeatureRepositoryDropsOldest(t *testing.T) {
	repo := NewMemoryFeatureRepository(5)
	ctx := context.Background()
	_, err := repo.SaveNew(ctx, featureRows(base, 8))
	require.NoError(t, err)

	rows, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, base.Add(15*time.Minute), rows[0].Timestamp)
}

func TestNewRepositoriesRequiresDatabase(t *testing.T) {
	_, err := NewRepositories(nil)
	assert.Error(t, err)
}
