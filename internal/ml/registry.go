package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// RegistryRepository persists model versions remotely.
type RegistryRepository interface {
	Register(ctx context.Context, version *models.ModelVersion) error
	GetActive(ctx context.Context, name string) (*models.ModelVersion, error)
}

// Registry publishes bundles to the remote model registry and loads the active one.
type Registry struct {
	repo      RegistryRepository
	modelName string
}

// NewRegistry creates a registry for the named model.
func NewRegistry(repo RegistryRepository, modelName string) *Registry {
	return &Registry{repo: repo, modelName: modelName}
}

// Name identifies the registry as a bundle source.
func (r *Registry) Name() string {
	return "remote"
}

// Register stores a bundle as the new active version.
func (r *Registry) Register(ctx context.Context, b *ModelBundle) error {
	data, err := EncodeBundle(b)
	if err != nil {
		return err
	}
	metrics, err := json.Marshal(b.Metadata.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}

	return r.repo.Register(ctx, &models.ModelVersion{
		ID:        uuid.New(),
		Name:      r.modelName,
		Version:   b.Metadata.Version,
		BestModel: b.Metadata.BestModel,
		Metrics:   metrics,
		Bundle:    data,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
}

// Load returns the active registered bundle.
func (r *Registry) Load(ctx context.Context) (*ModelBundle, error) {
	version, err := r.repo.GetActive(ctx, r.modelName)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: no active %s in registry", ErrBundleNotFound, r.modelName)
		}
		return nil, fmt.Errorf("failed to query registry: %w", err)
	}
	return DecodeBundle(version.Bundle)
}
