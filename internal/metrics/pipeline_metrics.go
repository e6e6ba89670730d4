package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline metrics
var (
	PipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_total",
		Help:      "Total number of pipeline runs by pipeline and status",
	}, []string{"pipeline", "status"})

	PipelineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of pipeline runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 1200},
	}, []string{"pipeline"})

	SchedulerSkipsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduler_skips_total",
		Help:      "Scheduled runs skipped because the previous run of the lane was still active",
	}, []string{"lane"})
)

// RecordPipelineRun records a pipeline run.
// status should be one of: "success", "failure"
func RecordPipelineRun(pipeline, status string, durationSeconds float64) {
	PipelineRunsTotal.WithLabelValues(pipeline, status).Inc()
	PipelineDuration.WithLabelValues(pipeline).Observe(durationSeconds)
}

// RecordSchedulerSkip records a skipped scheduled run.
func RecordSchedulerSkip(lane string) {
	SchedulerSkipsTotal.WithLabelValues(lane).Inc()
}
