package repository

import (
	"fmt"
	"strings"

	"github.com/yourusername/parlay-engine/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Leg            LegRepository
	Parlay         ParlayRepository
	GameResult     GameResultRepository
	Odds           OddsRepository
	CalibrationBin CalibrationBinRepository
	TrainingData   TrainingDataRepository
	JobRun         JobRunRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Leg:            NewPostgresLegRepository(db),
		Parlay:         NewPostgresParlayRepository(db),
		GameResult:     NewPostgresGameResultRepository(db),
		Odds:           NewPostgresOddsRepository(db),
		CalibrationBin: NewPostgresCalibrationBinRepository(db),
		TrainingData:   NewPostgresTrainingDataRepository(db),
		JobRun:         NewPostgresJobRunRepository(db),
	}, nil
}

// prefixed qualifies a comma separated column list with a table alias
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
