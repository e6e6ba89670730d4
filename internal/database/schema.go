package database

import (
	"context"
	"fmt"
)

// schema is idempotent; it runs on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS predictions (
		id                    UUID PRIMARY KEY,
		created_at            TIMESTAMPTZ NOT NULL,
		target_at             TIMESTAMPTZ NOT NULL,
		price_at_creation     DOUBLE PRECISION NOT NULL,
		predicted_price       DOUBLE PRECISION NOT NULL,
		predicted_direction   TEXT NOT NULL,
		confidence            DOUBLE PRECISION NOT NULL,
		market_regime         TEXT NOT NULL DEFAULT '',
		model_used            TEXT NOT NULL DEFAULT '',
		all_model_predictions JSONB NOT NULL DEFAULT '{}',
		price_change          DOUBLE PRECISION NOT NULL DEFAULT 0,
		price_change_pct      DOUBLE PRECISION NOT NULL DEFAULT 0,
		horizon_minutes       INTEGER NOT NULL,
		actual_price          DOUBLE PRECISION,
		was_correct           BOOLEAN,
		error_amount          DOUBLE PRECISION,
		validated_at          TIMESTAMPTZ,
		validation_note       TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS model_registry (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		version    TEXT NOT NULL,
		best_model TEXT NOT NULL,
		metrics    JSONB NOT NULL DEFAULT '{}',
		bundle     BYTEA NOT NULL,
		active     BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (name, version)
	)`,
	`CREATE TABLE IF NOT EXISTS features (
		ts       TIMESTAMPTZ PRIMARY KEY,
		price    DOUBLE PRECISION NOT NULL,
		features JSONB NOT NULL
	)`,
}

// EnsureSchema creates the tables used by the repositories.
func EnsureSchema(ctx context.Context, db *DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
