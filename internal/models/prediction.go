package models

import (
	"time"

	"github.com/google/uuid"
)

// Direction is the predicted or realized price movement.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// DirectionOf returns up for a positive change and down otherwise.
func DirectionOf(change float64) Direction {
	if change > 0 {
		return DirectionUp
	}
	return DirectionDown
}

// ValidationNote records which rule decided a validated record.
type ValidationNote string

const (
	NotePriceWithinTolerance ValidationNote = "price_within_tolerance"
	NoteDirectionValidated   ValidationNote = "direction_validated"
)

// PredictionRecord is one entry of the prediction ledger.
// Validation fields stay nil while the record is pending.
type PredictionRecord struct {
	ID                  uuid.UUID          `db:"id" json:"id"`
	CreatedAt           time.Time          `db:"created_at" json:"created_at"`
	TargetAt            time.Time          `db:"target_at" json:"target_at"`
	PriceAtCreation     float64            `db:"price_at_creation" json:"price_at_creation" validate:"required,gt=0"`
	PredictedPrice      float64            `db:"predicted_price" json:"predicted_price" validate:"required,gt=0"`
	PredictedDirection  Direction          `db:"predicted_direction" json:"predicted_direction" validate:"required,oneof=up down"`
	Confidence          float64            `db:"confidence" json:"confidence" validate:"gte=50,lte=95"`
	MarketRegime        string             `db:"market_regime" json:"market_regime"`
	ModelUsed           string             `db:"model_used" json:"model_used"`
	AllModelPredictions map[string]float64 `db:"all_model_predictions" json:"all_model_predictions"`
	PriceChange         float64            `db:"price_change" json:"price_change"`
	PriceChangePct      float64            `db:"price_change_pct" json:"price_change_pct"`
	HorizonMinutes      int                `db:"horizon_minutes" json:"prediction_horizon_minutes"`

	ActualPrice    *float64        `db:"actual_price" json:"actual_price"`
	WasCorrect     *bool           `db:"was_correct" json:"was_correct"`
	ErrorAmount    *float64        `db:"error_amount" json:"error_amount"`
	ValidatedAt    *time.Time      `db:"validated_at" json:"validated_at"`
	ValidationNote *ValidationNote `db:"validation_note" json:"validation_note"`
}

// IsPending reports whether the record still awaits validation.
func (r *PredictionRecord) IsPending() bool {
	return r.WasCorrect == nil
}

// EffectiveTarget returns the stored target time, recomputing it from
// created_at for legacy records persisted without one.
func (r *PredictionRecord) EffectiveTarget(horizon time.Duration) time.Time {
	if r.TargetAt.IsZero() {
		return r.CreatedAt.Add(horizon)
	}
	return r.TargetAt
}

// Clone returns a deep copy so callers can never alias ledger state.
func (r *PredictionRecord) Clone() *PredictionRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.AllModelPredictions != nil {
		c.AllModelPredictions = make(map[string]float64, len(r.AllModelPredictions))
		for k, v := range r.AllModelPredictions {
			c.AllModelPredictions[k] = v
		}
	}
	if r.ActualPrice != nil {
		v := *r.ActualPrice
		c.ActualPrice = &v
	}
	if r.WasCorrect != nil {
		v := *r.WasCorrect
		c.WasCorrect = &v
	}
	if r.ErrorAmount != nil {
		v := *r.ErrorAmount
		c.ErrorAmount = &v
	}
	if r.ValidatedAt != nil {
		v := *r.ValidatedAt
		c.ValidatedAt = &v
	}
	if r.ValidationNote != nil {
		v := *r.ValidationNote
		c.ValidationNote = &v
	}
	return &c
}

// AccuracySummary aggregates validated ledger entries.
type AccuracySummary struct {
	AccuracyPct    float64 `json:"accuracy"`
	Total          int     `json:"total_predictions"`
	ValidatedCount int     `json:"validated_count"`
	CorrectCount   int     `json:"correct_count"`
	AvgError       float64 `json:"avg_error"`
}
