package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/parlay-engine/internal/metrics"
)

const (
	kindOdds   = "odds"
	kindResult = "result"
)

// IngestionMetrics tracks statistics about one ingestion pass
type IngestionMetrics struct {
	mu               sync.RWMutex
	StartTime        time.Time
	Duration         time.Duration
	OddsAccepted     int
	ResultsAccepted  int
	ValidationErrors int
	Errors           int
}

// NewIngestionMetrics creates a new metrics tracker
func NewIngestionMetrics() *IngestionMetrics {
	return &IngestionMetrics{
		StartTime: time.Now(),
	}
}

// RecordAccepted counts records of one kind that reached the repository
func (m *IngestionMetrics) RecordAccepted(kind string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case kindOdds:
		m.OddsAccepted += n
	case kindResult:
		m.ResultsAccepted += n
	}
	metrics.RecordIngested(kind, "accepted", n)
}

// RecordValidationError counts one rejected record
func (m *IngestionMetrics) RecordValidationError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ValidationErrors++
	metrics.RecordIngested(kind, "rejected", 1)
}

// RecordError counts records lost to a repository failure
func (m *IngestionMetrics) RecordError(kind string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors += n
	metrics.RecordIngested(kind, "failed", n)
}

// Finish stamps the pass duration
func (m *IngestionMetrics) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Duration = time.Since(m.StartTime)
}

// String returns a formatted string representation of metrics
func (m *IngestionMetrics) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fmt.Sprintf(
		"IngestionMetrics{Odds=%d, Results=%d, ValidationErrors=%d, Errors=%d, Duration=%v}",
		m.OddsAccepted,
		m.ResultsAccepted,
		m.ValidationErrors,
		m.Errors,
		m.Duration,
	)
}
