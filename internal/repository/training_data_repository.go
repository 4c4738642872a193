package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/parlay-engine/internal/database"
	"github.com/yourusername/parlay-engine/internal/models"
)

// PostgresTrainingDataRepository implements TrainingDataRepository for PostgreSQL
type PostgresTrainingDataRepository struct {
	db *database.DB
}

// NewPostgresTrainingDataRepository creates a new training data repository
func NewPostgresTrainingDataRepository(db *database.DB) TrainingDataRepository {
	return &PostgresTrainingDataRepository{db: db}
}

// Insert records one resolved prediction. A second record for the same parlay
// replaces the first, so a corrected parlay keeps a single outcome.
func (r *PostgresTrainingDataRepository) Insert(ctx context.Context, record *models.TrainingRecord) error {
	if err := record.Predicted.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO prediction_outcomes (parlay_id, predicted, hit, resolved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (parlay_id) DO UPDATE
		SET hit = EXCLUDED.hit, resolved_at = EXCLUDED.resolved_at
	`

	if _, err := r.db.Querier(ctx).Exec(ctx, query, record.ParlayID, record.Predicted.Float64(), record.Hit, record.ResolvedAt); err != nil {
		return fmt.Errorf("failed to insert training record: %w", err)
	}

	return nil
}

// GetResolvedSince returns resolved predictions inside the training window
func (r *PostgresTrainingDataRepository) GetResolvedSince(ctx context.Context, since time.Time) ([]models.TrainingRecord, error) {
	query := `
		SELECT parlay_id, predicted, hit, resolved_at
		FROM prediction_outcomes
		WHERE resolved_at >= $1
		ORDER BY resolved_at ASC
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query training data: %w", err)
	}
	defer rows.Close()

	var records []models.TrainingRecord
	for rows.Next() {
		var rec models.TrainingRecord
		if err := rows.Scan(&rec.ParlayID, &rec.Predicted, &rec.Hit, &rec.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan training record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
