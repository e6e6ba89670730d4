// Package repository holds the Postgres-backed stores and their in-memory fallbacks.
package repository

import (
	"fmt"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Predictions PredictionRepository
	Models      ModelRepository
	Features    FeatureRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Predictions: NewPostgresPredictionRepository(db),
		Models:      NewPostgresModelRepository(db),
		Features:    NewPostgresFeatureRepository(db),
	}, nil
}
