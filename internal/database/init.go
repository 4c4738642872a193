package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/parlay-engine/internal/config"
)

// requiredTables are owned by this service and created by migrations/
var requiredTables = []string{
	"parlays",
	"saved_parlays",
	"parlay_legs",
	"game_results",
	"calibration_bins",
	"job_runs",
}

// Initialize creates a database connection pool and verifies the schema is migrated
func Initialize(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, table := range requiredTables {
		var exists bool
		err := db.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", "public."+table).Scan(&exists)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to inspect schema: %w", err)
		}
		if !exists {
			missing = append(missing, table)
		}
	}

	if len(missing) > 0 {
		db.Close()
		return nil, fmt.Errorf("database schema is missing tables %v, apply migrations/ first", missing)
	}

	var migrationCount int
	if err := db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&migrationCount); err != nil {
		log.WithError(err).Debug("schema_migrations table not readable")
		return db, nil
	}
	if migrationCount == 0 {
		log.Warn("No migrations recorded in schema_migrations")
	}

	return db, nil
}
