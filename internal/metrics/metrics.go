package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PowerAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_analyzer_power_api_calls_total",
			Help: "Total NASA POWER API calls",
		},
		[]string{"status"},
	)

	PowerAPILatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weather_analyzer_power_api_latency_seconds",
			Help:    "NASA POWER API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ModelTrainingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_analyzer_model_trainings_total",
			Help: "Total forecast model training runs",
		},
	)

	ModelTrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weather_analyzer_model_training_seconds",
			Help:    "Forecast model training duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ModelCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_analyzer_model_cache_hits_total",
			Help: "Forecast model cache hits",
		},
	)

	ModelCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_analyzer_model_cache_misses_total",
			Help: "Forecast model cache misses",
		},
	)
)
