package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-engine/internal/config"
	"github.com/yourusername/parlay-engine/internal/logger"
	"github.com/yourusername/parlay-engine/internal/metrics"
	"github.com/yourusername/parlay-engine/internal/models"
	"github.com/yourusername/parlay-engine/internal/repository"
)

// JobName identifies settlement runs in job_runs and on the job status surface
const JobName = "settlement"

// EventPublisher delivers feed events to the notification collaborator
type EventPublisher interface {
	Publish(ctx context.Context, event models.FeedEvent) error
}

// RunRecorder keeps the latest job runs in memory
type RunRecorder interface {
	Record(run models.JobRun)
}

// Options bound one settlement run
type Options struct {
	BatchSize          int
	MaxRunDuration     time.Duration
	ClaimTimeout       time.Duration
	ReevaluationWindow time.Duration
}

// OptionsFromConfig converts the settlement config section
func OptionsFromConfig(cfg config.SettlementConfig) Options {
	return Options{
		BatchSize:          cfg.BatchSize,
		MaxRunDuration:     cfg.MaxRunDuration(),
		ClaimTimeout:       cfg.ClaimTimeout(),
		ReevaluationWindow: cfg.ReevaluationWindow(),
	}
}

// Orchestrator claims legs, grades them and rolls the results up into parlays
type Orchestrator struct {
	legs      repository.LegRepository
	parlays   repository.ParlayRepository
	results   repository.GameResultRepository
	runs      repository.JobRunRepository
	outcomes  repository.TrainingDataRepository
	grader    *Grader
	publisher EventPublisher
	recorder  RunRecorder
	opts      Options
	logger    *logger.SettlementLogger
	audit     *logger.AuditLogger
	now       func() time.Time
}

// NewOrchestrator creates a settlement orchestrator. publisher and recorder may be nil.
func NewOrchestrator(
	repos *repository.Repositories,
	grader *Grader,
	publisher EventPublisher,
	recorder RunRecorder,
	opts Options,
	log *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		legs:      repos.Leg,
		parlays:   repos.Parlay,
		results:   repos.GameResult,
		runs:      repos.JobRun,
		outcomes:  repos.TrainingData,
		grader:    grader,
		publisher: publisher,
		recorder:  recorder,
		opts:      opts,
		logger:    logger.NewSettlementLogger(log),
		audit:     logger.NewAuditLogger(log),
		now:       time.Now,
	}
}

type legOutcome int

const (
	outcomeSkipped legOutcome = iota
	outcomeSettled
	outcomeCorrected
	outcomeFailed
)

// runState accumulates the effects of one run
type runState struct {
	run         models.JobRun
	release     []uuid.UUID
	touched     []models.ParlayRef
	seen        map[models.ParlayRef]bool
	corrections map[models.ParlayRef][]*models.Leg
	exhausted   bool
	claimed     int
}

func (s *runState) touch(leg *models.Leg) models.ParlayRef {
	id, kind := leg.OwnerID()
	ref := models.ParlayRef{ID: id, Kind: kind}
	if !s.seen[ref] {
		s.seen[ref] = true
		s.touched = append(s.touched, ref)
	}
	return ref
}

// Run performs one settlement pass. Leg level failures are isolated and
// counted on the returned JobRun; the error is non-nil only when the run
// could not claim or load its batch.
func (o *Orchestrator) Run(ctx context.Context) (models.JobRun, error) {
	start := o.now()
	state := &runState{
		run:         models.JobRun{ID: uuid.New(), JobName: JobName, StartedAt: start},
		seen:        make(map[models.ParlayRef]bool),
		corrections: make(map[models.ParlayRef][]*models.Leg),
	}

	err := o.settleBatch(ctx, state, start.Add(o.opts.MaxRunDuration))
	return o.finish(ctx, state, err), err
}

func (o *Orchestrator) settleBatch(ctx context.Context, state *runState, deadline time.Time) error {
	claim, err := o.legs.ClaimBatch(ctx, repository.ClaimParams{
		Now:                o.now(),
		Limit:              o.opts.BatchSize,
		ClaimTimeout:       o.opts.ClaimTimeout,
		ReevaluationWindow: o.opts.ReevaluationWindow,
	})
	if err != nil {
		return fmt.Errorf("claim legs: %w", err)
	}
	state.claimed = len(claim.Legs)
	if claim.Reclaimed > 0 {
		metrics.RecordStaleClaims(claim.Reclaimed)
		o.logger.WithField("reclaimed", claim.Reclaimed).Warn("Reclaimed stale leg claims")
	}
	if len(claim.Legs) == 0 {
		return nil
	}

	defer o.releaseClaims(ctx, state, claim.ClaimedAt)

	results, err := o.results.GetByIDs(ctx, gameIDs(claim.Legs))
	if err != nil {
		for _, leg := range claim.Legs {
			state.release = append(state.release, leg.ID)
		}
		return fmt.Errorf("load game results: %w", err)
	}

	for i, leg := range claim.Legs {
		if ctx.Err() != nil || !o.now().Before(deadline) {
			state.exhausted = true
			for _, rest := range claim.Legs[i:] {
				state.release = append(state.release, rest.ID)
			}
			break
		}

		outcome, err := o.settleLeg(ctx, leg, results[leg.GameID], claim.ClaimedAt)
		switch outcome {
		case outcomeSettled:
			state.run.Processed++
			state.touch(leg)
		case outcomeCorrected:
			state.run.Processed++
			ref := state.touch(leg)
			state.corrections[ref] = append(state.corrections[ref], leg)
		case outcomeFailed:
			state.run.Failed++
			state.run.SetError(err)
			state.release = append(state.release, leg.ID)
		default:
			state.run.Skipped++
			state.release = append(state.release, leg.ID)
		}
	}

	o.updateParlays(ctx, state)
	return nil
}

// settleLeg grades and persists one leg. A panic is converted into a failure
// so sibling legs are still graded.
func (o *Orchestrator) settleLeg(ctx context.Context, leg *models.Leg, result *models.GameResult, claimedAt time.Time) (outcome legOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = outcomeFailed, fmt.Errorf("%w: panic grading leg %s: %v", models.ErrInvariantViolation, leg.ID, r)
			o.logger.LogLegFailure(leg.ID.String(), leg.GameID, string(leg.MarketType), err)
			metrics.RecordLegGradeFailure("panic")
		}
	}()

	if result == nil {
		// no score ingested yet
		return outcomeSkipped, nil
	}

	status, reason, err := o.grader.Grade(leg, result)
	if err != nil {
		if !errors.Is(err, models.ErrGameNotFinal) {
			o.logger.LogLegFailure(leg.ID.String(), leg.GameID, string(leg.MarketType), err)
			metrics.RecordLegGradeFailure(failureReason(err))
			return outcomeFailed, err
		}
		if !result.IsLive() || leg.Status != models.LegStatusPending {
			return outcomeSkipped, nil
		}
		status, reason = models.LegStatusLive, "game in progress"
	}

	previous := leg.Status
	decision, err := Transition(leg, status, reason, o.now(), o.opts.ReevaluationWindow)
	switch decision {
	case DecisionLocked:
		o.logger.LogLegGradeIgnored(leg.ID.String(), leg.GameID, string(previous), string(status), err.Error())
		metrics.RecordLegGradeIgnored("locked")
		return outcomeSkipped, nil
	case DecisionRejected:
		if err != nil {
			o.logger.LogLegFailure(leg.ID.String(), leg.GameID, string(leg.MarketType), err)
			metrics.RecordLegGradeFailure("invariant")
			return outcomeFailed, err
		}
		o.logger.LogLegGradeIgnored(leg.ID.String(), leg.GameID, string(previous), string(status), "backward transition")
		metrics.RecordLegGradeIgnored("backward")
		return outcomeSkipped, nil
	case DecisionUnchanged:
		return outcomeSkipped, nil
	}

	if err := o.legs.UpdateSettlement(ctx, leg, claimedAt); err != nil {
		if errors.Is(err, models.ErrClaimLost) {
			o.logger.LogLegGradeIgnored(leg.ID.String(), leg.GameID, string(previous), string(status), "claim lost")
			metrics.RecordLegGradeIgnored("claim_lost")
			return outcomeSkipped, nil
		}
		o.logger.LogLegFailure(leg.ID.String(), leg.GameID, string(leg.MarketType), err)
		metrics.RecordLegGradeFailure("persist")
		return outcomeFailed, err
	}

	correction := decision == DecisionCorrection
	o.logger.LogLegGraded(leg.ID.String(), leg.GameID, string(previous), string(leg.Status), leg.ResultReason, correction)
	metrics.RecordLegGraded(string(leg.Status))
	if correction {
		return outcomeCorrected, nil
	}
	return outcomeSettled, nil
}

// updateParlays recomputes the status of every parlay touched by the run
func (o *Orchestrator) updateParlays(ctx context.Context, state *runState) {
	for _, ref := range state.touched {
		if err := o.updateParlay(ctx, ref, state.corrections[ref]); err != nil {
			state.run.Failed++
			state.run.SetError(err)
			o.logger.WithError(err).WithField("parlay_id", ref.ID).Error("Parlay status update failed")
		}
	}
}

// statusAttempts bounds how often a parlay is re-read after losing the status
// compare-and-set to an overlapping run
const statusAttempts = 3

func (o *Orchestrator) updateParlay(ctx context.Context, ref models.ParlayRef, corrected []*models.Leg) error {
	for _, leg := range corrected {
		o.emit(ctx, ref, models.FeedEventLegCorrected,
			fmt.Sprintf("Leg %s %s %s corrected to %s: %s", leg.GameID, leg.MarketType, leg.Selection, leg.Status, leg.ResultReason))
	}

	for attempt := 1; ; attempt++ {
		parlay, legs, err := o.loadParlay(ctx, ref)
		if err != nil {
			return err
		}

		statuses := make([]models.LegStatus, 0, len(legs))
		for _, leg := range legs {
			statuses = append(statuses, leg.Status)
		}
		next := ParlayStatus(statuses)
		if next == parlay.Status {
			return nil
		}

		changed, err := o.parlays.UpdateStatus(ctx, ref, parlay.Status, next)
		if err != nil {
			return fmt.Errorf("update parlay %s status: %w", ref.ID, err)
		}
		if changed {
			o.parlayChanged(ctx, ref, parlay, next, len(legs))
			return nil
		}

		// the stored status moved under us; recompute from fresh leg statuses
		if attempt == statusAttempts {
			return fmt.Errorf("update parlay %s status: still contended after %d attempts", ref.ID, attempt)
		}
		o.logger.WithFields(logrus.Fields{
			"parlay_id": ref.ID,
			"attempt":   attempt,
			"from":      parlay.Status,
			"to":        next,
		}).Debug("Parlay status changed concurrently, reloading")
	}
}

func (o *Orchestrator) loadParlay(ctx context.Context, ref models.ParlayRef) (*models.Parlay, []*models.Leg, error) {
	parlay, err := o.parlays.GetByID(ctx, ref)
	if err != nil {
		return nil, nil, fmt.Errorf("load parlay %s: %w", ref.ID, err)
	}
	legs, err := o.legs.ListByParlay(ctx, ref)
	if err != nil {
		return nil, nil, fmt.Errorf("load legs of parlay %s: %w", ref.ID, err)
	}
	return parlay, legs, nil
}

func (o *Orchestrator) parlayChanged(ctx context.Context, ref models.ParlayRef, parlay *models.Parlay, next models.LegStatus, numLegs int) {
	metrics.RecordParlayTransition(string(next))
	o.audit.LogParlayStatusChange(ref.ID.String(), string(ref.Kind), string(parlay.Status), string(next), numLegs)
	o.recordOutcome(ctx, parlay, next)

	if eventType, ok := models.FeedEventForStatus(next); ok {
		o.emit(ctx, ref, eventType, fmt.Sprintf("%d-leg parlay moved from %s to %s", numLegs, parlay.Status, next))
	}
}

// recordOutcome feeds WON and LOST parlays back into calibration training.
// PUSH and VOID say nothing about the predicted hit probability.
func (o *Orchestrator) recordOutcome(ctx context.Context, parlay *models.Parlay, status models.LegStatus) {
	if o.outcomes == nil || (status != models.LegStatusWon && status != models.LegStatusLost) {
		return
	}

	id := parlay.ID
	record := &models.TrainingRecord{
		ParlayID:   &id,
		Predicted:  parlay.ParlayHitProb,
		Hit:        status == models.LegStatusWon,
		ResolvedAt: o.now().UTC(),
	}
	if err := o.outcomes.Insert(ctx, record); err != nil {
		o.logger.WithError(err).WithField("parlay_id", parlay.ID).Warn("Failed to record prediction outcome")
	}
}

func (o *Orchestrator) emit(ctx context.Context, ref models.ParlayRef, eventType models.FeedEventType, summary string) {
	if o.publisher == nil {
		return
	}

	event := models.FeedEvent{
		ID:         uuid.New(),
		EventType:  eventType,
		ParlayID:   ref.ID,
		ParlayKind: ref.Kind,
		Summary:    summary,
		OccurredAt: o.now().UTC(),
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		metrics.RecordFeedEvent(string(eventType), "failed")
		o.logger.WithError(err).WithFields(logrus.Fields{
			"parlay_id":  ref.ID,
			"event_type": eventType,
		}).Error("Feed event publish failed")
		return
	}
	metrics.RecordFeedEvent(string(eventType), "published")
}

func (o *Orchestrator) releaseClaims(ctx context.Context, state *runState, claimedAt time.Time) {
	if len(state.release) == 0 {
		return
	}
	// released even when the run context is done
	releaseCtx := context.WithoutCancel(ctx)
	if err := o.legs.ReleaseClaims(releaseCtx, state.release, claimedAt); err != nil {
		o.logger.WithError(err).WithField("legs", len(state.release)).Warn("Failed to release leg claims, they expire after the claim timeout")
	}
}

func (o *Orchestrator) finish(ctx context.Context, state *runState, runErr error) models.JobRun {
	run := state.run
	run.FinishedAt = o.now()
	run.Duration = run.FinishedAt.Sub(run.StartedAt)
	run.Success = runErr == nil
	if runErr != nil {
		run.SetError(runErr)
	}

	metrics.RecordSettlementRun(run.Duration.Seconds(), run.Success)
	o.logger.LogRunSummary(run.ID.String(), state.claimed, run.Processed, run.Failed, run.Skipped, run.Duration, state.exhausted)

	if o.runs != nil {
		if err := o.runs.Insert(context.WithoutCancel(ctx), &run); err != nil {
			o.logger.WithError(err).Warn("Failed to record settlement job run")
		}
	}
	if o.recorder != nil {
		o.recorder.Record(run)
	}
	return run
}

func gameIDs(legs []*models.Leg) []string {
	seen := make(map[string]bool, len(legs))
	ids := make([]string, 0, len(legs))
	for _, leg := range legs {
		if !seen[leg.GameID] {
			seen[leg.GameID] = true
			ids = append(ids, leg.GameID)
		}
	}
	return ids
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrMissingLine):
		return "missing_line"
	case errors.Is(err, models.ErrMissingScore):
		return "missing_score"
	case errors.Is(err, models.ErrInvariantViolation):
		return "invariant"
	case errors.Is(err, models.ErrInvalidSelection), errors.Is(err, models.ErrUnknownMarket):
		return "invalid_leg"
	default:
		return "other"
	}
}
