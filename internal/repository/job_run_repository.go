package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/parlay-engine/internal/database"
	"github.com/yourusername/parlay-engine/internal/models"
)

// PostgresJobRunRepository implements JobRunRepository for PostgreSQL
type PostgresJobRunRepository struct {
	db *database.DB
}

// NewPostgresJobRunRepository creates a new job run repository
func NewPostgresJobRunRepository(db *database.DB) JobRunRepository {
	return &PostgresJobRunRepository{db: db}
}

// Insert records a finished job run
func (r *PostgresJobRunRepository) Insert(ctx context.Context, run *models.JobRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	query := `
		INSERT INTO job_runs (id, job_name, started_at, finished_at, duration_ms, success,
		                      processed, failed, skipped, error_snippet)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		run.ID, run.JobName, run.StartedAt, run.FinishedAt, run.Duration.Milliseconds(), run.Success,
		run.Processed, run.Failed, run.Skipped, run.ErrorSnippet,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job run: %w", err)
	}

	return nil
}

// GetRecent returns the latest runs of a job, newest first. An empty name matches every job.
func (r *PostgresJobRunRepository) GetRecent(ctx context.Context, jobName string, limit int) ([]*models.JobRun, error) {
	query := `
		SELECT id, job_name, started_at, finished_at, duration_ms, success, processed, failed, skipped, error_snippet
		FROM job_runs
		WHERE $1 = '' OR job_name = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, jobName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query job runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.JobRun
	for rows.Next() {
		run := &models.JobRun{}
		var durationMs int64
		err := rows.Scan(
			&run.ID, &run.JobName, &run.StartedAt, &run.FinishedAt, &durationMs, &run.Success,
			&run.Processed, &run.Failed, &run.Skipped, &run.ErrorSnippet,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job run: %w", err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
