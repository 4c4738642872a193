package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/parlay-engine/internal/database"
	"github.com/yourusername/parlay-engine/internal/models"
)

// PostgresParlayRepository implements ParlayRepository over the parlays and saved_parlays tables
type PostgresParlayRepository struct {
	db *database.DB
}

// NewPostgresParlayRepository creates a new parlay repository
func NewPostgresParlayRepository(db *database.DB) ParlayRepository {
	return &PostgresParlayRepository{db: db}
}

func parlayTable(kind models.ParlayKind) (string, error) {
	switch kind {
	case models.ParlayKindGenerated:
		return "parlays", nil
	case models.ParlayKindSaved:
		return "saved_parlays", nil
	default:
		return "", fmt.Errorf("unknown parlay kind %q", kind)
	}
}

// Create inserts a parlay row. Legs are stored separately through LegRepository.
func (r *PostgresParlayRepository) Create(ctx context.Context, parlay *models.Parlay) error {
	table, err := parlayTable(parlay.Kind)
	if err != nil {
		return err
	}
	if parlay.ID == uuid.Nil {
		parlay.ID = uuid.New()
	}
	if parlay.Status == "" {
		parlay.Status = models.LegStatusPending
	}

	query := `
		INSERT INTO ` + table + ` (id, num_legs, risk_profile, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err = r.db.Querier(ctx).QueryRow(ctx, query,
		parlay.ID, parlay.NumLegs, string(parlay.RiskProfile), string(parlay.Status),
	).Scan(&parlay.CreatedAt, &parlay.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create parlay: %w", err)
	}

	return nil
}

// GetByID retrieves a parlay without its legs
func (r *PostgresParlayRepository) GetByID(ctx context.Context, ref models.ParlayRef) (*models.Parlay, error) {
	table, err := parlayTable(ref.Kind)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, num_legs, risk_profile, COALESCE(parlay_hit_prob, 0), status, created_at, updated_at
		FROM ` + table + ` WHERE id = $1
	`

	parlay := &models.Parlay{Kind: ref.Kind}
	err = r.db.Querier(ctx).QueryRow(ctx, query, ref.ID).Scan(
		&parlay.ID, &parlay.NumLegs, &parlay.RiskProfile, &parlay.ParlayHitProb, &parlay.Status,
		&parlay.CreatedAt, &parlay.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parlay: %w", err)
	}

	return parlay, nil
}

// UpdateStatus performs a compare-and-set on the parlay status
func (r *PostgresParlayRepository) UpdateStatus(ctx context.Context, ref models.ParlayRef, from, to models.LegStatus) (bool, error) {
	table, err := parlayTable(ref.Kind)
	if err != nil {
		return false, err
	}

	query := `UPDATE ` + table + ` SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	tag, err := r.db.Querier(ctx).Exec(ctx, query, ref.ID, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("failed to update parlay status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// SetHitProbability stores the calibrated hit probability computed at creation time
func (r *PostgresParlayRepository) SetHitProbability(ctx context.Context, ref models.ParlayRef, p models.Probability) error {
	if err := p.Validate(); err != nil {
		return err
	}
	table, err := parlayTable(ref.Kind)
	if err != nil {
		return err
	}

	query := `UPDATE ` + table + ` SET parlay_hit_prob = $2, updated_at = NOW() WHERE id = $1 AND parlay_hit_prob IS NULL`

	tag, err := r.db.Querier(ctx).Exec(ctx, query, ref.ID, p.Float64())
	if err != nil {
		return fmt.Errorf("failed to set parlay hit probability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, ref); err != nil {
			return err
		}
		return fmt.Errorf("parlay %s hit probability: %w", ref.ID, models.ErrAlreadySet)
	}

	return nil
}
