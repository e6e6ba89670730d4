package features

import (
	"math"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// MissingStat counts undefined values in one column.
type MissingStat struct {
	Count int     `json:"count"`
	Pct   float64 `json:"pct"`
}

// QualityReport summarises the completeness of a frame.
type QualityReport struct {
	TotalRows     int                    `json:"total_rows"`
	TotalColumns  int                    `json:"total_columns"`
	MissingValues map[string]MissingStat `json:"missing_values"`
	DuplicateRows int                    `json:"duplicate_rows"`
}

// CheckQuality reports missing values per column and rows sharing a timestamp.
func CheckQuality(frame *Frame) QualityReport {
	report := QualityReport{
		TotalRows:     frame.Len(),
		TotalColumns:  len(frame.order),
		MissingValues: make(map[string]MissingStat, len(frame.order)),
	}

	for _, name := range frame.order {
		missing := 0
		for _, v := range frame.columns[name] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				missing++
			}
		}
		if missing == 0 {
			continue
		}
		pct := 0.0
		if frame.Len() > 0 {
			pct = models.Round(float64(missing)/float64(frame.Len())*100, 2)
		}
		report.MissingValues[name] = MissingStat{Count: missing, Pct: pct}
	}

	seen := make(map[int64]struct{}, frame.Len())
	for _, ts := range frame.Timestamps {
		key := ts.UnixNano()
		if _, dup := seen[key]; dup {
			report.DuplicateRows++
			continue
		}
		seen[key] = struct{}{}
	}

	return report
}
