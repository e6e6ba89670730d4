package models

import "time"

// FeatureDrift is the per-column outcome of a drift check.
type FeatureDrift struct {
	Statistic  float64  `json:"statistic"`
	PValue     *float64 `json:"p_value,omitempty"`
	Importance *float64 `json:"importance,omitempty"`
	Drifted    bool     `json:"drifted"`
}

// DriftReport is replaced wholesale on every detection run.
type DriftReport struct {
	Detected          bool                    `json:"drift_detected"`
	Score             float64                 `json:"drift_score"`
	Threshold         float64                 `json:"threshold"`
	PerFeatureResults map[string]FeatureDrift `json:"feature_drifts,omitempty"`
	Method            string                  `json:"method,omitempty"`
	Message           string                  `json:"message,omitempty"`
	ComputedAt        time.Time               `json:"timestamp"`
}

// Clone returns a copy that shares no map with r.
func (r DriftReport) Clone() DriftReport {
	c := r
	if r.PerFeatureResults != nil {
		c.PerFeatureResults = make(map[string]FeatureDrift, len(r.PerFeatureResults))
		for k, v := range r.PerFeatureResults {
			c.PerFeatureResults[k] = v
		}
	}
	return c
}

// DriftSummary aggregates the retained drift reports.
type DriftSummary struct {
	TotalReports   int        `json:"total_reports"`
	ScoredReports  int        `json:"scored_reports"`
	DriftDetected  int        `json:"drift_detected_count"`
	DriftRate      float64    `json:"drift_rate"`
	AvgScore       float64    `json:"avg_drift_score"`
	MaxScore       float64    `json:"max_drift_score"`
	Threshold      float64    `json:"threshold"`
	LatestMethod   string     `json:"latest_method,omitempty"`
	LastDetectedAt *time.Time `json:"last_detected_at,omitempty"`
	LastCheckedAt  *time.Time `json:"last_checked_at,omitempty"`
}
