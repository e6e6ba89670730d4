package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/database"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

const uniqueViolation = "23505"

// PostgresModelRepository implements ModelRepository for PostgreSQL
type PostgresModelRepository struct {
	db *database.DB
}

// NewPostgresModelRepository creates a new model repository
func NewPostgresModelRepository(db *database.DB) ModelRepository {
	return &PostgresModelRepository{db: db}
}

const modelColumns = `id, name, version, best_model, metrics, bundle, active, created_at`

func scanModel(row pgx.Row) (*models.ModelVersion, error) {
	m := &models.ModelVersion{}
	err := row.Scan(&m.ID, &m.Name, &m.Version, &m.BestModel, &m.Metrics, &m.Bundle, &m.Active, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Register inserts a model version. An active version deactivates the other
// versions of the same name in the same transaction.
func (m *PostgresModelRepository) Register(ctx context.Context, version *models.ModelVersion) error {
	metrics := version.Metrics
	if metrics == nil {
		metrics = []byte("{}")
	}

	return m.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if version.Active {
			if _, err := tx.Exec(ctx, "UPDATE model_registry SET active = false WHERE name = $1", version.Name); err != nil {
				return fmt.Errorf("failed to deactivate other versions: %w", err)
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO model_registry (id, name, version, best_model, metrics, bundle, active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, version.ID, version.Name, version.Version, version.BestModel, metrics, version.Bundle, version.Active, version.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: %s %s", models.ErrDuplicateKey, version.Name, version.Version)
			}
			return fmt.Errorf("failed to register model: %w", err)
		}
		return nil
	})
}

// GetActive retrieves the active version of name, or the newest one when none is active
func (m *PostgresModelRepository) GetActive(ctx context.Context, name string) (*models.ModelVersion, error) {
	query := `SELECT ` + modelColumns + `
		FROM model_registry
		WHERE name = $1
		ORDER BY active DESC, created_at DESC
		LIMIT 1
	`
	model, err := scanModel(m.db.QueryRow(ctx, query, name))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to get active model: %w", err)
	}
	return model, err
}

// GetByVersion retrieves a specific model version
func (m *PostgresModelRepository) GetByVersion(ctx context.Context, name, version string) (*models.ModelVersion, error) {
	query := `SELECT ` + modelColumns + ` FROM model_registry WHERE name = $1 AND version = $2`
	model, err := scanModel(m.db.QueryRow(ctx, query, name, version))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to get model by version: %w", err)
	}
	return model, err
}

// List returns up to limit versions of name, newest first, without bundle blobs
func (m *PostgresModelRepository) List(ctx context.Context, name string, limit int) ([]*models.ModelVersion, error) {
	query := `
		SELECT id, name, version, best_model, metrics, active, created_at
		FROM model_registry
		WHERE name = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := m.db.Query(ctx, query, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer rows.Close()

	var versions []*models.ModelVersion
	for rows.Next() {
		v := &models.ModelVersion{}
		if err := rows.Scan(&v.ID, &v.Name, &v.Version, &v.BestModel, &v.Metrics, &v.Active, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		versions = append(versions, v)
	}

	return versions, rows.Err()
}
