package models

import (
	"time"

	"github.com/google/uuid"
)

const maxErrorSnippet = 500

// JobRun records one execution of a scheduled job for operational visibility
type JobRun struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	JobName      string        `db:"job_name" json:"job_name"`
	StartedAt    time.Time     `db:"started_at" json:"started_at"`
	FinishedAt   time.Time     `db:"finished_at" json:"finished_at"`
	Duration     time.Duration `db:"duration" json:"duration"`
	Success      bool          `db:"success" json:"success"`
	Processed    int           `db:"processed" json:"processed"`
	Failed       int           `db:"failed" json:"failed"`
	Skipped      int           `db:"skipped" json:"skipped"`
	ErrorSnippet string        `db:"error_snippet" json:"error_snippet,omitempty"`
}

// SetError records a truncated error message on the run
func (r *JobRun) SetError(err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	if len(msg) > maxErrorSnippet {
		msg = msg[:maxErrorSnippet]
	}
	r.ErrorSnippet = msg
}
