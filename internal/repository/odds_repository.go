package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/parlay-engine/internal/database"
	"github.com/yourusername/parlay-engine/internal/models"
)

// PostgresOddsRepository implements OddsRepository for PostgreSQL
type PostgresOddsRepository struct {
	db *database.DB
}

// NewPostgresOddsRepository creates a new odds repository
func NewPostgresOddsRepository(db *database.DB) OddsRepository {
	return &PostgresOddsRepository{db: db}
}

// InsertBatch inserts multiple odds snapshots using COPY
func (o *PostgresOddsRepository) InsertBatch(ctx context.Context, odds []*models.OddsSnapshot) error {
	if len(odds) == 0 {
		return nil
	}

	columns := []string{"game_id", "sport", "market_type", "outcome", "line", "decimal_price", "book", "captured_at"}

	copyFromSource := make([][]any, len(odds))
	for i, s := range odds {
		copyFromSource[i] = []any{
			s.GameID, s.Sport, string(s.MarketType), string(s.Outcome), s.Line,
			s.DecimalPrice, s.Book, s.CapturedAt,
		}
	}

	count, err := o.db.Querier(ctx).CopyFrom(ctx, pgx.Identifier{"odds_snapshots"}, columns, pgx.CopyFromRows(copyFromSource))
	if err != nil {
		return fmt.Errorf("failed to batch insert odds snapshots: %w", err)
	}

	if count != int64(len(odds)) {
		return fmt.Errorf("inserted %d rows, expected %d", count, len(odds))
	}

	return nil
}

// GetLatestByGames retrieves the newest price of every outcome quoted by each book
func (o *PostgresOddsRepository) GetLatestByGames(ctx context.Context, gameIDs []string) ([]*models.OddsSnapshot, error) {
	if len(gameIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT ON (game_id, market_type, outcome, COALESCE(line, 'NaN'::float8), book)
		       game_id, sport, market_type, outcome, line, decimal_price, book, captured_at
		FROM odds_snapshots
		WHERE game_id = ANY($1)
		ORDER BY game_id, market_type, outcome, COALESCE(line, 'NaN'::float8), book, captured_at DESC
	`

	rows, err := o.db.Querier(ctx).Query(ctx, query, gameIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest odds: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.OddsSnapshot
	for rows.Next() {
		snapshot := &models.OddsSnapshot{}
		err := rows.Scan(
			&snapshot.GameID, &snapshot.Sport, &snapshot.MarketType, &snapshot.Outcome, &snapshot.Line,
			&snapshot.DecimalPrice, &snapshot.Book, &snapshot.CapturedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan odds: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, rows.Err()
}
