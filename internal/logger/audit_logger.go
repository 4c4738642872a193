// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogParlayStatusChange logs a parlay status transition.
func (al *AuditLogger) LogParlayStatusChange(parlayID, kind, oldStatus, newStatus string, legCount int) {
	al.WithFields(logrus.Fields{
		"parlay_id":   parlayID,
		"parlay_kind": kind,
		"old_status":  oldStatus,
		"new_status":  newStatus,
		"leg_count":   legCount,
	}).Info("Parlay status changed")
}

// LogParlayProbabilityStored logs the one-time storage of a parlay hit probability.
func (al *AuditLogger) LogParlayProbabilityStored(parlayID string, raw, calibrated float64, calibratedApplied bool) {
	al.WithFields(logrus.Fields{
		"parlay_id":          parlayID,
		"raw_probability":    raw,
		"calibrated":         calibrated,
		"calibration_active": calibratedApplied,
	}).Info("Parlay hit probability stored")
}

// LogCalibrationActivated logs activation of a newly trained bin set.
func (al *AuditLogger) LogCalibrationActivated(trainedAt time.Time, bins, samples int, trained bool) {
	al.WithFields(logrus.Fields{
		"trained_at":    trainedAt.UTC().Format(time.RFC3339),
		"bins":          bins,
		"total_samples": samples,
		"trained":       trained,
	}).Info("Calibration bin set activated")
}
