package validation

import (
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// Summarize aggregates the validated records. Empty or all-pending input
// yields an all-zero summary.
func Summarize(records []*models.PredictionRecord) models.AccuracySummary {
	summary := models.AccuracySummary{Total: len(records)}

	var errSum float64
	var errCount int
	for _, r := range records {
		if r.IsPending() {
			continue
		}
		summary.ValidatedCount++
		if *r.WasCorrect {
			summary.CorrectCount++
		}
		if r.ErrorAmount != nil {
			errSum += *r.ErrorAmount
			errCount++
		}
	}

	if summary.ValidatedCount > 0 {
		summary.AccuracyPct = models.Round(100*float64(summary.CorrectCount)/float64(summary.ValidatedCount), 1)
	}
	if errCount > 0 {
		summary.AvgError = models.RoundPrice(errSum / float64(errCount))
	}
	return summary
}
