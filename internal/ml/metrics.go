package ml

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MLInferenceTotal tracks per-model inference attempts
	MLInferenceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crypto_sentinel",
			Name:      "ml_inference_total",
			Help:      "Total number of per-model inference calls",
		},
		[]string{"model", "status"},
	)

	// MLInferenceLatency tracks bundle inference latency
	MLInferenceLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "crypto_sentinel",
			Name:      "ml_inference_latency_seconds",
			Help:      "Latency of one full bundle inference in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// MLTrainingJobsTotal tracks training jobs
	MLTrainingJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crypto_sentinel",
			Name:      "ml_training_jobs_total",
			Help:      "Total number of model training jobs",
		},
		[]string{"status"},
	)

	// MLModelRMSE tracks the test RMSE of each regressor in the latest bundle
	MLModelRMSE = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "crypto_sentinel",
			Name:      "ml_model_rmse",
			Help:      "Test-split RMSE of each regressor from the latest training run",
		},
		[]string{"model"},
	)

	// MLBundleLoadsTotal tracks Model Store load attempts per source
	MLBundleLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crypto_sentinel",
			Name:      "ml_bundle_loads_total",
			Help:      "Model bundle load attempts by source and outcome",
		},
		[]string{"source", "status"},
	)

	// MLCacheHitRatio tracks cache hit ratio
	MLCacheHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "crypto_sentinel",
			Name:      "ml_cache_hit_ratio",
			Help:      "Current prediction cache hit ratio",
		},
	)
)
