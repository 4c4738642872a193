package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/parlay-engine/internal/database"
	"github.com/yourusername/parlay-engine/internal/models"
)

// PostgresGameResultRepository implements GameResultRepository for PostgreSQL
type PostgresGameResultRepository struct {
	db *database.DB
}

// NewPostgresGameResultRepository creates a new game result repository
func NewPostgresGameResultRepository(db *database.DB) GameResultRepository {
	return &PostgresGameResultRepository{db: db}
}

// Upsert inserts or replaces the latest known result of a game
func (r *PostgresGameResultRepository) Upsert(ctx context.Context, result *models.GameResult) error {
	query := `
		INSERT INTO game_results (game_id, sport, home_score, away_score, final, status, voided_markets, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (game_id) DO UPDATE SET
			sport = EXCLUDED.sport,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			final = EXCLUDED.final,
			status = EXCLUDED.status,
			voided_markets = EXCLUDED.voided_markets,
			updated_at = NOW()
		RETURNING updated_at
	`

	voided := make([]string, 0, len(result.VoidedMarkets))
	for _, m := range result.VoidedMarkets {
		voided = append(voided, string(m))
	}

	err := r.db.Querier(ctx).QueryRow(ctx, query,
		result.GameID, result.Sport, result.HomeScore, result.AwayScore, result.Final,
		string(result.Status), voided,
	).Scan(&result.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert game result: %w", err)
	}

	return nil
}

// GetByIDs loads the results for a set of games in one query, keyed by game ID.
// Games without a stored result are absent from the map.
func (r *PostgresGameResultRepository) GetByIDs(ctx context.Context, gameIDs []string) (map[string]*models.GameResult, error) {
	results := make(map[string]*models.GameResult, len(gameIDs))
	if len(gameIDs) == 0 {
		return results, nil
	}

	query := `
		SELECT game_id, sport, home_score, away_score, final, status, voided_markets, updated_at
		FROM game_results
		WHERE game_id = ANY($1)
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, gameIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query game results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		result := &models.GameResult{}
		var voided []string
		err := rows.Scan(
			&result.GameID, &result.Sport, &result.HomeScore, &result.AwayScore, &result.Final,
			&result.Status, &voided, &result.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game result: %w", err)
		}
		for _, m := range voided {
			result.VoidedMarkets = append(result.VoidedMarkets, models.MarketType(m))
		}
		results[result.GameID] = result
	}

	return results, rows.Err()
}
