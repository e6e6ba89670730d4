// Package validation scores matured predictions against realized prices and
// aggregates the ledger's accuracy.
package validation

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/logger"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/metrics"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// PriceHistory supplies realized prices.
type PriceHistory interface {
	History(ctx context.Context, hours float64) ([]models.PricePoint, error)
}

// Ledger is the subset of the prediction ledger the validator needs.
type Ledger interface {
	MutatePending(match func(*models.PredictionRecord) bool, mutate func(*models.PredictionRecord) bool) int
	Persist(ctx context.Context)
	PendingCount() int
}

// Config holds the validation rules.
type Config struct {
	Horizon      time.Duration
	MatchWindow  time.Duration
	TolerancePct float64
	FetchTimeout time.Duration
}

// DefaultConfig returns a 30 minute horizon, ±5 minute matching and a 0.1% tolerance band.
func DefaultConfig() Config {
	return Config{
		Horizon:      30 * time.Minute,
		MatchWindow:  5 * time.Minute,
		TolerancePct: 0.1,
		FetchTimeout: 10 * time.Second,
	}
}

// Result summarizes one validation pass.
type Result struct {
	Validated int `json:"validated"`
	Skipped   int `json:"skipped"`
	Pending   int `json:"pending"`
}

// Validator updates pending ledger records once their realized price is known.
type Validator struct {
	cfg    Config
	prices PriceHistory
	ledger Ledger
	now    func() time.Time
	logger *logger.PredictionLogger
}

// New creates a validator.
func New(cfg Config, prices PriceHistory, ledger Ledger, log *logrus.Logger) *Validator {
	return &Validator{
		cfg:    cfg,
		prices: prices,
		ledger: ledger,
		now:    time.Now,
		logger: logger.NewPredictionLogger(log),
	}
}

// WindowHours is the realized-price lookup covering the horizon plus matching slack.
func (v *Validator) WindowHours() float64 {
	return math.Ceil((v.cfg.Horizon + 2*v.cfg.MatchWindow).Hours())
}

// Validate scores every pending record whose target time has passed.
// currentPrice, when non-nil, is used for those with no matching history point.
// It never fails; the ledger is persisted once at the end of the pass.
func (v *Validator) Validate(ctx context.Context, currentPrice *float64) Result {
	history := v.fetchHistory(ctx)
	now := v.now().UTC()

	var result Result
	validated := v.ledger.MutatePending(
		func(*models.PredictionRecord) bool { return true },
		func(rec *models.PredictionRecord) bool {
			target := rec.EffectiveTarget(v.cfg.Horizon)
			if now.Before(target) {
				result.Skipped++
				return false
			}

			actual, ok := MatchPrice(history, target, v.cfg.MatchWindow)
			if !ok {
				if currentPrice == nil {
					result.Skipped++
					return false
				}
				actual = *currentPrice
			}

			if !Apply(rec, actual, v.cfg.TolerancePct, now) {
				v.logger.WithField("prediction_id", rec.ID.String()).Warn("Prediction has no creation price, leaving it pending")
				result.Skipped++
				return false
			}
			v.observe(rec)
			return true
		},
	)

	result.Validated = validated
	result.Pending = v.ledger.PendingCount()
	v.ledger.Persist(ctx)

	v.logger.LogValidationPass(result.Validated, result.Skipped, result.Pending)
	return result
}

func (v *Validator) fetchHistory(ctx context.Context) []models.PricePoint {
	fetchCtx, cancel := context.WithTimeout(ctx, v.cfg.FetchTimeout)
	defer cancel()

	history, err := v.prices.History(fetchCtx, v.WindowHours())
	if err != nil {
		v.logger.WithError(err).Warn("Realized price window unavailable, validating with current price only")
		return nil
	}
	return history
}

func (v *Validator) observe(rec *models.PredictionRecord) {
	outcome := "incorrect"
	switch {
	case *rec.ValidationNote == models.NotePriceWithinTolerance:
		outcome = "within_tolerance"
	case *rec.WasCorrect:
		outcome = "correct"
	}
	metrics.RecordValidation(outcome)
	v.logger.LogPredictionValidated(rec.ID.String(), *rec.ActualPrice, *rec.WasCorrect, *rec.ErrorAmount, string(*rec.ValidationNote))
}

// MatchPrice returns the first history price within window of target.
func MatchPrice(history []models.PricePoint, target time.Time, window time.Duration) (float64, bool) {
	for _, p := range history {
		d := p.Timestamp.Sub(target)
		if d < 0 {
			d = -d
		}
		if d <= window {
			return p.Price, true
		}
	}
	return 0, false
}

// Apply scores rec against the realized price. A move smaller than the
// tolerance band is never a correct call, whatever its direction. Records
// without a positive creation price cannot be scored and are left untouched.
func Apply(rec *models.PredictionRecord, actual, tolerancePct float64, at time.Time) bool {
	if rec.PriceAtCreation <= 0 || math.IsNaN(actual) || math.IsInf(actual, 0) {
		return false
	}

	change := actual - rec.PriceAtCreation
	changePct := math.Abs(change/rec.PriceAtCreation) * 100

	var correct bool
	var note models.ValidationNote
	if changePct < tolerancePct {
		correct, note = false, models.NotePriceWithinTolerance
	} else {
		correct, note = models.DirectionOf(change) == rec.PredictedDirection, models.NoteDirectionValidated
	}

	actualPrice := models.RoundPrice(actual)
	errAmount := models.RoundPrice(math.Abs(rec.PredictedPrice - actual))
	validatedAt := at

	rec.ActualPrice = &actualPrice
	rec.ErrorAmount = &errAmount
	rec.ValidatedAt = &validatedAt
	rec.ValidationNote = &note
	rec.WasCorrect = &correct
	return true
}
