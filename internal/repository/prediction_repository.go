package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/database"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

const upsertPrediction = `
	INSERT INTO predictions (
		id, created_at, target_at, price_at_creation, predicted_price, predicted_direction,
		confidence, market_regime, model_used, all_model_predictions, price_change,
		price_change_pct, horizon_minutes, actual_price, was_correct, error_amount,
		validated_at, validation_note
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	ON CONFLICT (id) DO UPDATE SET
		actual_price = EXCLUDED.actual_price,
		was_correct = EXCLUDED.was_correct,
		error_amount = EXCLUDED.error_amount,
		validated_at = EXCLUDED.validated_at,
		validation_note = EXCLUDED.validation_note
`

// UpsertBatch inserts new records and updates the validation fields of known ones
func (p *PostgresPredictionRepository) UpsertBatch(ctx context.Context, records []*models.PredictionRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		var note *string
		if r.ValidationNote != nil {
			s := string(*r.ValidationNote)
			note = &s
		}
		all := r.AllModelPredictions
		if all == nil {
			all = map[string]float64{}
		}
		batch.Queue(upsertPrediction,
			r.ID, r.CreatedAt, r.TargetAt, r.PriceAtCreation, r.PredictedPrice, string(r.PredictedDirection),
			r.Confidence, r.MarketRegime, r.ModelUsed, all, r.PriceChange,
			r.PriceChangePct, r.HorizonMinutes, r.ActualPrice, r.WasCorrect, r.ErrorAmount,
			r.ValidatedAt, note,
		)
	}

	results := p.db.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert prediction: %w", err)
		}
	}
	return nil
}

// Recent returns up to limit of the newest records created since the given time, oldest first
func (p *PostgresPredictionRepository) Recent(ctx context.Context, limit int, since time.Time) ([]*models.PredictionRecord, error) {
	query := `
		SELECT * FROM (
			SELECT id, created_at, target_at, price_at_creation, predicted_price, predicted_direction,
				confidence, market_regime, model_used, all_model_predictions, price_change,
				price_change_pct, horizon_minutes, actual_price, was_correct, error_amount,
				validated_at, validation_note
			FROM predictions
			WHERE created_at >= $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`

	rows, err := p.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var records []*models.PredictionRecord
	for rows.Next() {
		r := &models.PredictionRecord{}
		var direction string
		var note *string
		err := rows.Scan(
			&r.ID, &r.CreatedAt, &r.TargetAt, &r.PriceAtCreation, &r.PredictedPrice, &direction,
			&r.Confidence, &r.MarketRegime, &r.ModelUsed, &r.AllModelPredictions, &r.PriceChange,
			&r.PriceChangePct, &r.HorizonMinutes, &r.ActualPrice, &r.WasCorrect, &r.ErrorAmount,
			&r.ValidatedAt, &note,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		r.PredictedDirection = models.Direction(direction)
		if note != nil {
			n := models.ValidationNote(*note)
			r.ValidationNote = &n
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// DeleteAll removes every mirrored record
func (p *PostgresPredictionRepository) DeleteAll(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, "DELETE FROM predictions"); err != nil {
		return fmt.Errorf("failed to delete predictions: %w", err)
	}
	return nil
}
