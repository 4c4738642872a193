package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/parlay-engine/internal/models"
)

// ClaimParams selects the legs a settlement run may claim
type ClaimParams struct {
	Now                time.Time
	Limit              int
	ClaimTimeout       time.Duration
	ReevaluationWindow time.Duration
}

// ClaimResult is the outcome of one claim attempt
type ClaimResult struct {
	Legs      []*models.Leg
	ClaimedAt time.Time
	// Reclaimed counts legs whose previous claim had gone stale
	Reclaimed int
}

// LegRepository defines the interface for leg data access
type LegRepository interface {
	Create(ctx context.Context, leg *models.Leg) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Leg, error)
	ListByParlay(ctx context.Context, ref models.ParlayRef) ([]*models.Leg, error)
	// ClaimBatch atomically stamps claimed_at on up to Limit gradeable legs.
	// Legs claimed by another run are skipped unless the claim is older than ClaimTimeout.
	ClaimBatch(ctx context.Context, params ClaimParams) (*ClaimResult, error)
	// UpdateSettlement persists the leg's settlement fields and clears its claim.
	// Returns models.ErrClaimLost when claimed_at no longer matches claimedAt.
	UpdateSettlement(ctx context.Context, leg *models.Leg, claimedAt time.Time) error
	ReleaseClaims(ctx context.Context, ids []uuid.UUID, claimedAt time.Time) error
}

// ParlayRepository defines the interface for generated and saved parlays
type ParlayRepository interface {
	Create(ctx context.Context, parlay *models.Parlay) error
	GetByID(ctx context.Context, ref models.ParlayRef) (*models.Parlay, error)
	// UpdateStatus moves the parlay from one status to another and reports
	// whether this call performed the change.
	UpdateStatus(ctx context.Context, ref models.ParlayRef, from, to models.LegStatus) (bool, error)
	// SetHitProbability stores parlay_hit_prob once. A second call returns models.ErrAlreadySet.
	SetHitProbability(ctx context.Context, ref models.ParlayRef, p models.Probability) error
}

// GameResultRepository defines the interface for game result data access
type GameResultRepository interface {
	Upsert(ctx context.Context, result *models.GameResult) error
	GetByIDs(ctx context.Context, gameIDs []string) (map[string]*models.GameResult, error)
}

// OddsRepository defines the interface for odds data access
type OddsRepository interface {
	InsertBatch(ctx context.Context, odds []*models.OddsSnapshot) error
	// GetLatestByGames returns the newest snapshot per game, market, outcome, line and book
	GetLatestByGames(ctx context.Context, gameIDs []string) ([]*models.OddsSnapshot, error)
}

// CalibrationBinRepository defines the interface for calibration bin persistence
type CalibrationBinRepository interface {
	// GetLatest returns the bins of the most recent training run, ordered by index
	GetLatest(ctx context.Context) ([]*models.CalibrationBin, error)
	SaveSet(ctx context.Context, bins []*models.CalibrationBin) error
}

// TrainingDataRepository defines access to resolved historical predictions
type TrainingDataRepository interface {
	// Insert stores a resolved prediction, replacing any earlier record of the same parlay
	Insert(ctx context.Context, record *models.TrainingRecord) error
	GetResolvedSince(ctx context.Context, since time.Time) ([]models.TrainingRecord, error)
}

// JobRunRepository defines persistence for scheduled job runs
type JobRunRepository interface {
	Insert(ctx context.Context, run *models.JobRun) error
	GetRecent(ctx context.Context, jobName string, limit int) ([]*models.JobRun, error)
}
