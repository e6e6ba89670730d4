package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ModelVersion is one registered model bundle in the remote registry.
type ModelVersion struct {
	ID        uuid.UUID       `db:"id" json:"id" validate:"required"`
	Name      string          `db:"name" json:"name" validate:"required"`
	Version   string          `db:"version" json:"version" validate:"required"`
	BestModel string          `db:"best_model" json:"best_model" validate:"required"`
	Metrics   json.RawMessage `db:"metrics" json:"metrics"`
	Bundle    []byte          `db:"bundle" json:"-"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// GetMetric retrieves a metric value from the Metrics JSON
func (m *ModelVersion) GetMetric(name string) (interface{}, error) {
	if m.Metrics == nil {
		return nil, nil
	}

	var metrics map[string]interface{}
	if err := json.Unmarshal(m.Metrics, &metrics); err != nil {
		return nil, err
	}

	return metrics[name], nil
}

// FeatureRow is one engineered feature row as held by the feature store.
type FeatureRow struct {
	Timestamp time.Time          `db:"ts" json:"timestamp"`
	Price     float64            `db:"price" json:"price"`
	Values    map[string]float64 `db:"features" json:"features"`
}
