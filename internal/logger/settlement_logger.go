// Package logger provides settlement-specific logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// SettlementLogger provides dedicated logging for settlement runs.
type SettlementLogger struct {
	*logrus.Entry
}

// NewSettlementLogger creates a new settlement logger.
func NewSettlementLogger(baseLogger *logrus.Logger) *SettlementLogger {
	return &SettlementLogger{
		Entry: baseLogger.WithField("component", "settlement"),
	}
}

// LogLegGraded logs a grade that changed a leg.
func (sl *SettlementLogger) LogLegGraded(legID, gameID, oldStatus, newStatus, reason string, correction bool) {
	sl.WithFields(logrus.Fields{
		"leg_id":     legID,
		"game_id":    gameID,
		"old_status": oldStatus,
		"new_status": newStatus,
		"reason":     reason,
		"correction": correction,
	}).Info("Leg graded")
}

// LogLegGradeIgnored logs a grading attempt on a locked leg. These are never dropped silently.
func (sl *SettlementLogger) LogLegGradeIgnored(legID, gameID, currentStatus, attemptedStatus, why string) {
	sl.WithFields(logrus.Fields{
		"leg_id":           legID,
		"game_id":          gameID,
		"current_status":   currentStatus,
		"attempted_status": attemptedStatus,
		"why":              why,
	}).Warn("Leg grade ignored")
}

// LogLegFailure logs a leg that could not be graded. The run continues.
func (sl *SettlementLogger) LogLegFailure(legID, gameID, marketType string, err error) {
	sl.WithFields(logrus.Fields{
		"leg_id":      legID,
		"game_id":     gameID,
		"market_type": marketType,
	}).WithError(err).Error("Leg grading failed")
}

// LogRunSummary logs the outcome of a settlement run.
func (sl *SettlementLogger) LogRunSummary(runID string, claimed, processed, failed, skipped int, duration time.Duration, budgetExhausted bool) {
	sl.WithFields(logrus.Fields{
		"run_id":           runID,
		"claimed":          claimed,
		"processed":        processed,
		"failed":           failed,
		"skipped":          skipped,
		"duration_ms":      duration.Milliseconds(),
		"budget_exhausted": budgetExhausted,
	}).Info("Settlement run completed")
}
