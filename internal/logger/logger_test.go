package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerInvalidLevelDefaultsToInfo(t *testing.T) {
	log := NewLogger("loud")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewLoggerParsesLevel(t *testing.T) {
	log := NewLogger("debug")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestSettlementLoggerLegGraded(t *testing.T) {
	log, buf := setupTestLogger()
	settlementLogger := NewSettlementLogger(log)

	settlementLogger.LogLegGraded("leg_1", "game_1", "PENDING", "WON", "home 24-17", false)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "settlement", logEntry["component"])
	assert.Equal(t, "leg_1", logEntry["leg_id"])
	assert.Equal(t, "WON", logEntry["new_status"])
	assert.Equal(t, false, logEntry["correction"])
}

func TestSettlementLoggerGradeIgnoredIsWarning(t *testing.T) {
	log, buf := setupTestLogger()
	settlementLogger := NewSettlementLogger(log)

	settlementLogger.LogLegGradeIgnored("leg_1", "game_1", "WON", "LOST", "re-evaluation window elapsed")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "LOST", logEntry["attempted_status"])
}

func TestSettlementLoggerLegFailure(t *testing.T) {
	log, buf := setupTestLogger()
	settlementLogger := NewSettlementLogger(log)

	settlementLogger.LogLegFailure("leg_9", "game_2", "spread", errors.New("no line"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "no line", logEntry["error"])
	assert.Equal(t, "spread", logEntry["market_type"])
}

func TestSettlementLoggerRunSummary(t *testing.T) {
	log, buf := setupTestLogger()
	settlementLogger := NewSettlementLogger(log)

	settlementLogger.LogRunSummary("run_1", 10, 8, 1, 1, 1500*time.Millisecond, true)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(10), logEntry["claimed"])
	assert.Equal(t, float64(1500), logEntry["duration_ms"])
	assert.Equal(t, true, logEntry["budget_exhausted"])
}

func TestAuditLoggerParlayStatusChange(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogParlayStatusChange("parlay_1", "saved", "LIVE", "WON", 4)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, "WON", logEntry["new_status"])
	assert.Equal(t, float64(4), logEntry["leg_count"])
}

func TestAuditLoggerCalibrationActivated(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	trainedAt := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	auditLogger.LogCalibrationActivated(trainedAt, 10, 2500, true)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "2026-10-01T12:00:00Z", logEntry["trained_at"])
	assert.Equal(t, true, logEntry["trained"])
}
