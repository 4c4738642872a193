package scheduler

import (
	"sort"
	"sync"

	"github.com/yourusername/parlay-engine/internal/models"
)

const defaultHistory = 50

// JobStatusTracker keeps the most recent job runs in memory for the job status surface
type JobStatusTracker struct {
	mu      sync.RWMutex
	last    map[string]models.JobRun
	recent  []models.JobRun
	history int
}

// NewJobStatusTracker creates a tracker holding up to history runs
func NewJobStatusTracker(history int) *JobStatusTracker {
	if history <= 0 {
		history = defaultHistory
	}
	return &JobStatusTracker{
		last:    make(map[string]models.JobRun),
		history: history,
	}
}

// Record stores a finished run
func (t *JobStatusTracker) Record(run models.JobRun) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last[run.JobName] = run
	t.recent = append(t.recent, run)
	if len(t.recent) > t.history {
		t.recent = t.recent[len(t.recent)-t.history:]
	}
}

// Last returns the latest run of a job
func (t *JobStatusTracker) Last(jobName string) (models.JobRun, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	run, ok := t.last[jobName]
	return run, ok
}

// Latest returns the latest run of every job ordered by job name
func (t *JobStatusTracker) Latest() []models.JobRun {
	t.mu.RLock()
	defer t.mu.RUnlock()

	runs := make([]models.JobRun, 0, len(t.last))
	for _, run := range t.last {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].JobName < runs[j].JobName })
	return runs
}

// Recent returns recorded runs, newest first
func (t *JobStatusTracker) Recent() []models.JobRun {
	t.mu.RLock()
	defer t.mu.RUnlock()

	runs := make([]models.JobRun, len(t.recent))
	for i, run := range t.recent {
		runs[len(t.recent)-1-i] = run
	}
	return runs
}
