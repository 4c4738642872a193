package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/parlay-engine/internal/database"
	"github.com/yourusername/parlay-engine/internal/models"
)

// PostgresCalibrationBinRepository implements CalibrationBinRepository for PostgreSQL
type PostgresCalibrationBinRepository struct {
	db *database.DB
}

// NewPostgresCalibrationBinRepository creates a new calibration bin repository
func NewPostgresCalibrationBinRepository(db *database.DB) CalibrationBinRepository {
	return &PostgresCalibrationBinRepository{db: db}
}

// GetLatest returns the bins sharing the most recent trained_at
func (r *PostgresCalibrationBinRepository) GetLatest(ctx context.Context) ([]*models.CalibrationBin, error) {
	query := `
		SELECT bin_index, bin_low, bin_high, empirical_hit_rate, sample_count, trained_at
		FROM calibration_bins
		WHERE trained_at = (SELECT MAX(trained_at) FROM calibration_bins)
		ORDER BY bin_index ASC
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibration bins: %w", err)
	}
	defer rows.Close()

	var bins []*models.CalibrationBin
	for rows.Next() {
		bin := &models.CalibrationBin{}
		err := rows.Scan(&bin.BinIndex, &bin.BinLow, &bin.BinHigh, &bin.EmpiricalHitRate, &bin.SampleCount, &bin.TrainedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calibration bin: %w", err)
		}
		bins = append(bins, bin)
	}

	return bins, rows.Err()
}

// SaveSet writes one training run's bins in a single batch
func (r *PostgresCalibrationBinRepository) SaveSet(ctx context.Context, bins []*models.CalibrationBin) error {
	if len(bins) == 0 {
		return nil
	}

	query := `
		INSERT INTO calibration_bins (bin_index, bin_low, bin_high, empirical_hit_rate, sample_count, trained_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		batch := &pgx.Batch{}
		for _, bin := range bins {
			batch.Queue(query, bin.BinIndex, bin.BinLow, bin.BinHigh, bin.EmpiricalHitRate, bin.SampleCount, bin.TrainedAt)
		}

		results := r.db.Querier(txCtx).SendBatch(txCtx, batch)
		for range bins {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to insert calibration bin: %w", err)
			}
		}
		return results.Close()
	})
}
