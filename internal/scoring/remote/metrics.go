package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yourusername/parlay-engine/internal/metrics"
)

var factory = promauto.With(metrics.GetRegistry())

var (
	// ModelScoresTotal tracks model scores served, split by cache hit
	ModelScoresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parlay_engine",
			Name:      "model_scores_total",
			Help:      "Total number of model scores served",
		},
		[]string{"cache_hit"},
	)

	// ModelScoreLatency tracks Score RPC latency
	ModelScoreLatency = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "parlay_engine",
			Name:      "model_score_latency_seconds",
			Help:      "Model service Score RPC latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ModelRPCErrorsTotal tracks failed Score RPCs
	ModelRPCErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parlay_engine",
			Name:      "model_rpc_errors_total",
			Help:      "Total number of model service errors",
		},
		[]string{"error_type"},
	)

	// ModelCacheHitRatio tracks the score cache hit ratio
	ModelCacheHitRatio = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "parlay_engine",
			Name:      "model_cache_hit_ratio",
			Help:      "Model score cache hit ratio",
		},
	)
)
