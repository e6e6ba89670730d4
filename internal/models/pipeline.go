package models

import "time"

// FeatureRunResult summarizes one feature pipeline run.
type FeatureRunResult struct {
	Success         bool         `json:"success"`
	PointsFetched   int          `json:"points_fetched"`
	PointsDropped   int          `json:"points_dropped"`
	RowsProcessed   int          `json:"rows_processed"`
	RowsStored      int          `json:"rows_stored"`
	DriftReport     *DriftReport `json:"drift_report,omitempty"`
	DurationSeconds float64      `json:"duration_seconds"`
	Timestamp       time.Time    `json:"timestamp"`
}

// TrainingRunResult summarizes one training pipeline run.
type TrainingRunResult struct {
	Version          string                        `json:"version"`
	BestModel        string                        `json:"best_model"`
	LocalPath        string                        `json:"local_path"`
	RemoteRegistered bool                          `json:"remote_registered"`
	SamplesTrained   int                           `json:"samples_trained"`
	Metrics          map[string]map[string]float64 `json:"metrics"`
	DriftReport      *DriftReport                  `json:"drift_report,omitempty"`
	DurationSeconds  float64                       `json:"duration_seconds"`
	Timestamp        time.Time                     `json:"timestamp"`
}

// InferenceRunResult summarizes one inference pipeline run.
type InferenceRunResult struct {
	CurrentPrice    float64           `json:"current_price"`
	Prediction      *PredictionRecord `json:"prediction"`
	Validated       int               `json:"validated"`
	Alerts          []AlertRecord     `json:"alerts"`
	DurationSeconds float64           `json:"duration_seconds"`
	Timestamp       time.Time         `json:"timestamp"`
}

// LaneStatus describes one scheduler lane.
type LaneStatus struct {
	Name      string     `json:"name"`
	Interval  string     `json:"interval"`
	LastRun   *time.Time `json:"last_run"`
	LastError string     `json:"last_error,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
}

// PipelineStatus is the service-wide status snapshot.
type PipelineStatus struct {
	ModelsLoaded           bool         `json:"models_loaded"`
	BestModel              string       `json:"best_model,omitempty"`
	ModelVersion           string       `json:"model_version,omitempty"`
	PredictionHistoryCount int          `json:"prediction_history_count"`
	PendingPredictions     int          `json:"pending_predictions"`
	DriftReference         bool         `json:"drift_reference_set"`
	AlertsCount            int          `json:"alerts_count"`
	Lanes                  []LaneStatus `json:"lanes,omitempty"`
	Timestamp              time.Time    `json:"timestamp"`
}

// ModelInfo describes the installed model bundle.
type ModelInfo struct {
	BestModel      string                        `json:"best_model"`
	Version        string                        `json:"version"`
	CreatedAt      time.Time                     `json:"created_at"`
	Source         string                        `json:"source"`
	ModelsLoaded   []string                      `json:"models_loaded"`
	HasClassifier  bool                          `json:"has_classifier"`
	HasRegime      bool                          `json:"has_regime_model"`
	FeatureCount   int                           `json:"feature_count"`
	SamplesTrained int                           `json:"samples_trained"`
	Metrics        map[string]map[string]float64 `json:"metrics"`
}
