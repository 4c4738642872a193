// Package scheduler runs the settlement and calibration jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-engine/internal/calibration"
	"github.com/yourusername/parlay-engine/internal/models"
	"github.com/yourusername/parlay-engine/internal/repository"
)

// Job names used on the job status surface
const (
	SettlementJob  = "settlement"
	CalibrationJob = "calibration"
)

// SettlementRunner performs one settlement pass and records its own run
type SettlementRunner interface {
	Run(ctx context.Context) (models.JobRun, error)
}

// CalibrationTrainer retrains calibration bins from stored history
type CalibrationTrainer interface {
	TrainFromHistory(ctx context.Context) (*calibration.BinSet, error)
}

// Scheduler manages the scheduled jobs. A job never overlaps itself within
// one process; overlap across processes is handled by leg claims.
type Scheduler struct {
	cron            *cron.Cron
	tracker         *JobStatusTracker
	runs            repository.JobRunRepository
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          map[string]cron.EntryID
	gracefulTimeout time.Duration
	now             func() time.Time
}

// NewScheduler creates a new scheduler. runs may be nil.
func NewScheduler(tracker *JobStatusTracker, runs repository.JobRunRepository, log *logrus.Logger) *Scheduler {
	entry := log.WithField("component", "scheduler")
	cronLog := cronLogger{entry}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		tracker:         tracker,
		runs:            runs,
		logger:          entry,
		jobIDs:          make(map[string]cron.EntryID),
		gracefulTimeout: 30 * time.Second,
		now:             time.Now,
	}
}

// ScheduleSettlement schedules settlement runs. timeout bounds a single run
// beyond its own soft budget.
func (s *Scheduler) ScheduleSettlement(spec string, runner SettlementRunner, timeout time.Duration) error {
	return s.schedule(SettlementJob, spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		run, err := runner.Run(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled settlement run failed")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"processed": run.Processed,
			"failed":    run.Failed,
			"skipped":   run.Skipped,
		}).Debug("Scheduled settlement run finished")
	})
}

// ScheduleCalibration schedules calibration retraining
func (s *Scheduler) ScheduleCalibration(spec string, trainer CalibrationTrainer, timeout time.Duration) error {
	return s.schedule(CalibrationJob, spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.RunCalibration(ctx, trainer)
	})
}

// RunCalibration trains once and records the run
func (s *Scheduler) RunCalibration(ctx context.Context, trainer CalibrationTrainer) models.JobRun {
	run := models.JobRun{ID: uuid.New(), JobName: CalibrationJob, StartedAt: s.now()}

	set, err := trainer.TrainFromHistory(ctx)
	switch {
	case errors.Is(err, calibration.ErrNoTrainingData):
		// identity calibration stays in effect
		run.Success = true
		s.logger.Info("No resolved predictions in training window, calibration unchanged")
	case err != nil:
		run.SetError(err)
		s.logger.WithError(err).Error("Calibration training failed")
	default:
		run.Success = true
		run.Processed = set.TotalSamples
	}

	run.FinishedAt = s.now()
	run.Duration = run.FinishedAt.Sub(run.StartedAt)
	s.record(ctx, run)
	return run
}

func (s *Scheduler) record(ctx context.Context, run models.JobRun) {
	if s.runs != nil {
		if err := s.runs.Insert(context.WithoutCancel(ctx), &run); err != nil {
			s.logger.WithError(err).WithField("job", run.JobName).Warn("Failed to record job run")
		}
	}
	if s.tracker != nil {
		s.tracker.Record(run)
	}
}

func (s *Scheduler) schedule(name, spec string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if _, exists := s.jobIDs[name]; exists {
		return fmt.Errorf("job %s is already scheduled", name)
	}

	entryID, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobIDs[name] = entryID
	s.logger.WithFields(logrus.Fields{"job": name, "schedule": spec}).Info("Scheduled job")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop stops scheduling and waits for running jobs up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.gracefulTimeout)
	defer cancel()

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop timed out waiting for running jobs")
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRuns returns the next scheduled time of every job
func (s *Scheduler) NextRuns() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	next := make(map[string]time.Time, len(s.jobIDs))
	for name, id := range s.jobIDs {
		if entry := s.cron.Entry(id); entry.Valid() {
			next[name] = entry.Next
		}
	}
	return next
}

// Interval returns the gap between two consecutive runs of a scheduled job
func (s *Scheduler) Interval(name string) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.jobIDs[name]
	if !ok {
		return 0, false
	}
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return 0, false
	}
	first := entry.Schedule.Next(s.now().UTC())
	return entry.Schedule.Next(first).Sub(first), true
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) fields(keysAndValues []interface{}) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return l.entry.WithFields(fields)
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).WithError(err).Error(msg)
}
