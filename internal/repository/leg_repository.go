package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/parlay-engine/internal/database"
	"github.com/yourusername/parlay-engine/internal/models"
)

const legColumns = `id, parlay_id, saved_parlay_id, game_id, sport, market_type, selection, line, price,
		status, result_reason, settled_at, settlement_locked_at, correction_count, claimed_at,
		created_at, updated_at`

// PostgresLegRepository implements LegRepository for PostgreSQL
type PostgresLegRepository struct {
	db *database.DB
}

// NewPostgresLegRepository creates a new leg repository
func NewPostgresLegRepository(db *database.DB) LegRepository {
	return &PostgresLegRepository{db: db}
}

func scanLeg(row pgx.Row, extra ...any) (*models.Leg, error) {
	leg := &models.Leg{}
	dest := []any{
		&leg.ID, &leg.ParlayID, &leg.SavedParlayID, &leg.GameID, &leg.Sport, &leg.MarketType,
		&leg.Selection, &leg.Line, &leg.Price, &leg.Status, &leg.ResultReason, &leg.SettledAt,
		&leg.SettlementLockedAt, &leg.CorrectionCount, &leg.ClaimedAt, &leg.CreatedAt, &leg.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return leg, nil
}

// Create inserts a new leg
func (r *PostgresLegRepository) Create(ctx context.Context, leg *models.Leg) error {
	if leg.ID == uuid.Nil {
		leg.ID = uuid.New()
	}
	if leg.Status == "" {
		leg.Status = models.LegStatusPending
	}

	query := `
		INSERT INTO parlay_legs (id, parlay_id, saved_parlay_id, game_id, sport, market_type, selection,
		                         line, price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.Querier(ctx).QueryRow(ctx, query,
		leg.ID, leg.ParlayID, leg.SavedParlayID, leg.GameID, leg.Sport, string(leg.MarketType),
		string(leg.Selection), leg.Line, leg.Price, string(leg.Status),
	).Scan(&leg.CreatedAt, &leg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create leg: %w", err)
	}

	return nil
}

// GetByID retrieves a leg by ID
func (r *PostgresLegRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Leg, error) {
	query := `SELECT ` + legColumns + ` FROM parlay_legs WHERE id = $1`

	leg, err := scanLeg(r.db.Querier(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leg: %w", err)
	}

	return leg, nil
}

// ListByParlay retrieves every leg of a generated or saved parlay
func (r *PostgresLegRepository) ListByParlay(ctx context.Context, ref models.ParlayRef) ([]*models.Leg, error) {
	column := "parlay_id"
	if ref.Kind == models.ParlayKindSaved {
		column = "saved_parlay_id"
	}
	query := `SELECT ` + legColumns + ` FROM parlay_legs WHERE ` + column + ` = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Querier(ctx).Query(ctx, query, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query legs by parlay: %w", err)
	}
	defer rows.Close()

	var legs []*models.Leg
	for rows.Next() {
		leg, err := scanLeg(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leg: %w", err)
		}
		legs = append(legs, leg)
	}

	return legs, rows.Err()
}

// ClaimBatch claims gradeable legs. Rows locked by a concurrent claim are skipped.
//
// Open legs qualify only once their game result can move them: final, voided
// or, for PENDING legs, in progress. Settled legs inside the re-evaluation
// window qualify only when the game result was written after the leg was last
// graded or checked. Open legs are taken least recently checked first so legs
// that keep being released cannot starve the rest of the backlog.
func (r *PostgresLegRepository) ClaimBatch(ctx context.Context, params ClaimParams) (*ClaimResult, error) {
	// Microsecond precision so the value round-trips through timestamptz unchanged
	claimedAt := params.Now.UTC().Truncate(time.Microsecond)
	windowStart := claimedAt.Add(-params.ReevaluationWindow)
	staleBefore := claimedAt.Add(-params.ClaimTimeout)

	query := `
		WITH candidates AS (
			SELECT pl.id, pl.claimed_at AS previous_claim
			FROM parlay_legs pl
			JOIN game_results g ON g.game_id = pl.game_id
			WHERE (pl.claimed_at IS NULL OR pl.claimed_at < $3)
			  AND (
			        (
			          pl.status IN ('PENDING', 'LIVE')
			          AND (
			                g.final
			                OR g.status IN ('cancelled', 'postponed')
			                OR pl.market_type = ANY(g.voided_markets)
			                OR (pl.status = 'PENDING' AND g.status = 'in_progress')
			              )
			        )
			        OR (
			          pl.correction_count = 0
			          AND pl.settlement_locked_at > $2
			          AND g.updated_at > GREATEST(pl.updated_at, pl.last_checked_at)
			        )
			      )
			ORDER BY (pl.status IN ('PENDING', 'LIVE')) DESC, pl.last_checked_at ASC NULLS FIRST, pl.created_at ASC
			LIMIT $4
			FOR UPDATE OF pl SKIP LOCKED
		)
		UPDATE parlay_legs l
		SET claimed_at = $1
		FROM candidates c
		WHERE l.id = c.id
		RETURNING ` + prefixed("l", legColumns) + `, c.previous_claim IS NOT NULL
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, claimedAt, windowStart, staleBefore, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim legs: %w", err)
	}
	defer rows.Close()

	result := &ClaimResult{ClaimedAt: claimedAt}
	for rows.Next() {
		var stale bool
		leg, err := scanLeg(rows, &stale)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claimed leg: %w", err)
		}
		if stale {
			result.Reclaimed++
		}
		result.Legs = append(result.Legs, leg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to claim legs: %w", err)
	}

	return result, nil
}

// UpdateSettlement writes the graded fields when the caller still owns the claim
func (r *PostgresLegRepository) UpdateSettlement(ctx context.Context, leg *models.Leg, claimedAt time.Time) error {
	query := `
		UPDATE parlay_legs
		SET status = $2, result_reason = $3, settled_at = $4, settlement_locked_at = $5,
		    correction_count = $6, claimed_at = NULL, updated_at = NOW()
		WHERE id = $1 AND claimed_at = $7
	`

	tag, err := r.db.Querier(ctx).Exec(ctx, query,
		leg.ID, string(leg.Status), leg.ResultReason, leg.SettledAt, leg.SettlementLockedAt,
		leg.CorrectionCount, claimedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update leg settlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("leg %s: %w", leg.ID, models.ErrClaimLost)
	}

	leg.ClaimedAt = nil
	return nil
}

// ReleaseClaims clears claims this run still owns and records when the legs
// were last checked, which moves them behind unchecked work on the next claim
func (r *PostgresLegRepository) ReleaseClaims(ctx context.Context, ids []uuid.UUID, claimedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE parlay_legs SET claimed_at = NULL, last_checked_at = $2 WHERE id = ANY($1) AND claimed_at = $2`

	if _, err := r.db.Querier(ctx).Exec(ctx, query, ids, claimedAt); err != nil {
		return fmt.Errorf("failed to release leg claims: %w", err)
	}

	return nil
}
