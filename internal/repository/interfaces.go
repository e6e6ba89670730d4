package repository

import (
	"context"
	"time"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// PredictionRepository mirrors the prediction ledger.
type PredictionRepository interface {
	UpsertBatch(ctx context.Context, records []*models.PredictionRecord) error
	Recent(ctx context.Context, limit int, since time.Time) ([]*models.PredictionRecord, error)
	DeleteAll(ctx context.Context) error
}

// ModelRepository stores registered model bundles.
type ModelRepository interface {
	Register(ctx context.Context, version *models.ModelVersion) error
	GetActive(ctx context.Context, name string) (*models.ModelVersion, error)
	GetByVersion(ctx context.Context, name, version string) (*models.ModelVersion, error)
	List(ctx context.Context, name string, limit int) ([]*models.ModelVersion, error)
}

// FeatureRepository stores engineered feature rows keyed by minute.
type FeatureRepository interface {
	// SaveNew stores rows whose minute is not yet stored and returns how many were added.
	SaveNew(ctx context.Context, rows []models.FeatureRow) (int, error)
	// Recent returns up to limit of the newest rows, oldest first.
	Recent(ctx context.Context, limit int) ([]models.FeatureRow, error)
	Count(ctx context.Context) (int, error)
}
