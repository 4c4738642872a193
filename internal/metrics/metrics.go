// Package metrics provides centralized Prometheus metrics registry for the parlay engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	InsufficientCandidatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "parlay_engine",
		Name:      "insufficient_candidates_total",
		Help:      "Total number of parlay builds that requested more legs than scoreable candidates",
	})
	CandidatesScoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_engine",
		Name:      "candidates_scored_total",
		Help:      "Total number of market outcomes scored, by result",
	}, []string{"result"})
	CalibrationAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_engine",
		Name:      "calibration_applied_total",
		Help:      "Total number of calibrations by mode (binned or identity)",
	}, []string{"mode"})
	FeedEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_engine",
		Name:      "feed_events_total",
		Help:      "Total number of feed events by type and publish result",
	}, []string{"event_type", "result"})
	IngestedRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_engine",
		Name:      "ingested_records_total",
		Help:      "Total number of inbound odds snapshots and game results, by kind and result",
	}, []string{"kind", "result"})
	ParlaysBuiltTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_engine",
		Name:      "parlays_built_total",
		Help:      "Total number of parlay builds by risk profile and result",
	}, []string{"risk_profile", "result"})
)

// Gauge metrics
var (
	CalibrationBinSetAge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "parlay_engine",
		Name:      "calibration_bin_set_trained_timestamp_seconds",
		Help:      "Unix time of the active calibration bin set (0 when untrained)",
	})
)

// Histogram metrics
var (
	ParlayProbabilityDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parlay_engine",
		Name:      "parlay_probability_duration_seconds",
		Help:      "Duration of parlay probability computations in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	ParlayHitProbability = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parlay_engine",
		Name:      "parlay_hit_probability",
		Help:      "Distribution of calibrated parlay hit probabilities",
		Buckets:   []float64{0.01, 0.02, 0.05, 0.1, 0.15, 0.2, 0.3, 0.4, 0.5, 0.75, 1.0},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register probability metrics
		registry.MustRegister(InsufficientCandidatesTotal)
		registry.MustRegister(CandidatesScoredTotal)
		registry.MustRegister(CalibrationAppliedTotal)
		registry.MustRegister(CalibrationBinSetAge)
		registry.MustRegister(ParlayProbabilityDuration)
		registry.MustRegister(ParlayHitProbability)

		// Register settlement metrics
		registry.MustRegister(LegsGradedTotal)
		registry.MustRegister(LegGradeFailuresTotal)
		registry.MustRegister(LegGradesIgnoredTotal)
		registry.MustRegister(ParlayTransitionsTotal)
		registry.MustRegister(StaleClaimsReclaimedTotal)
		registry.MustRegister(SettlementRunDuration)
		registry.MustRegister(SettlementLastRunSuccess)

		registry.MustRegister(FeedEventsTotal)
		registry.MustRegister(IngestedRecordsTotal)
		registry.MustRegister(ParlaysBuiltTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordInsufficientCandidates records one insufficient-candidates occurrence.
func RecordInsufficientCandidates() {
	InsufficientCandidatesTotal.Inc()
}

// RecordCandidateScored records the outcome of scoring one market outcome.
func RecordCandidateScored(result string) {
	CandidatesScoredTotal.WithLabelValues(result).Inc()
}

// RecordCalibration records whether a bin set or the identity mapping was used.
func RecordCalibration(mode string) {
	CalibrationAppliedTotal.WithLabelValues(mode).Inc()
}

// UpdateCalibrationTrainedAt updates the active bin set timestamp gauge.
func UpdateCalibrationTrainedAt(unixSeconds float64) {
	CalibrationBinSetAge.Set(unixSeconds)
}

// RecordParlayProbability records the duration and result of a probability computation.
func RecordParlayProbability(durationSeconds, probability float64) {
	ParlayProbabilityDuration.Observe(durationSeconds)
	ParlayHitProbability.Observe(probability)
}

// RecordFeedEvent records a feed event publish attempt.
func RecordFeedEvent(eventType, result string) {
	FeedEventsTotal.WithLabelValues(eventType, result).Inc()
}

// RecordIngested records n inbound records. kind is "odds" or "result".
func RecordIngested(kind, result string, n int) {
	IngestedRecordsTotal.WithLabelValues(kind, result).Add(float64(n))
}

// RecordParlayBuilt records the result of one parlay build.
func RecordParlayBuilt(riskProfile, result string) {
	ParlaysBuiltTotal.WithLabelValues(riskProfile, result).Inc()
}
