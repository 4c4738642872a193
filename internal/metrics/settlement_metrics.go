// Package metrics defines settlement-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Settlement counter vectors
var (
	LegsGradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_engine",
		Name:      "legs_graded_total",
		Help:      "Total number of leg grades applied by resulting status",
	}, []string{"status"})

	LegGradeFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_engine",
		Name:      "leg_grade_failures_total",
		Help:      "Total number of legs that failed grading by reason",
	}, []string{"reason"})

	LegGradesIgnoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_engine",
		Name:      "leg_grades_ignored_total",
		Help:      "Total number of grading attempts that were no-ops by reason",
	}, []string{"reason"})

	ParlayTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_engine",
		Name:      "parlay_transitions_total",
		Help:      "Total number of parlay status transitions by new status",
	}, []string{"status"})

	StaleClaimsReclaimedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "parlay_engine",
		Name:      "stale_claims_reclaimed_total",
		Help:      "Total number of leg claims reclaimed after the claim timeout",
	})
)

// Settlement run metrics
var (
	SettlementRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parlay_engine",
		Name:      "settlement_run_duration_seconds",
		Help:      "Duration of settlement runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})

	SettlementLastRunSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "parlay_engine",
		Name:      "settlement_last_run_success",
		Help:      "1 if the last settlement run succeeded, 0 otherwise",
	})
)

// RecordLegGraded records an applied grade.
func RecordLegGraded(status string) {
	LegsGradedTotal.WithLabelValues(status).Inc()
}

// RecordLegGradeFailure records a leg that failed grading.
func RecordLegGradeFailure(reason string) {
	LegGradeFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordLegGradeIgnored records a grading attempt that changed nothing.
func RecordLegGradeIgnored(reason string) {
	LegGradesIgnoredTotal.WithLabelValues(reason).Inc()
}

// RecordParlayTransition records a parlay status change.
func RecordParlayTransition(status string) {
	ParlayTransitionsTotal.WithLabelValues(status).Inc()
}

// RecordStaleClaims records reclaimed stale claims.
func RecordStaleClaims(n int) {
	StaleClaimsReclaimedTotal.Add(float64(n))
}

// RecordSettlementRun records duration and outcome of a settlement run.
func RecordSettlementRun(durationSeconds float64, success bool) {
	SettlementRunDuration.Observe(durationSeconds)
	if success {
		SettlementLastRunSuccess.Set(1)
	} else {
		SettlementLastRunSuccess.Set(0)
	}
}
