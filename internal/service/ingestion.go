// Package service holds the inbound and build-side workflows around the
// parlay engine core: validating and storing provider data, and building
// parlays from scored candidates.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-engine/internal/models"
	"github.com/yourusername/parlay-engine/internal/repository"
)

const defaultIngestBatchSize = 500

// IngestionBatch is the document accepted from the ingestion collaborator
type IngestionBatch struct {
	Odds    []*models.OddsSnapshot `json:"odds"`
	Results []*models.GameResult   `json:"results"`
}

// IngestionService normalizes, validates and persists inbound odds and results.
// Invalid records are rejected one at a time; the rest of the batch continues.
type IngestionService struct {
	odds       repository.OddsRepository
	results    repository.GameResultRepository
	validator  *DataValidator
	normalizer *DataNormalizer
	logger     *logrus.Entry
	batchSize  int
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	odds repository.OddsRepository,
	results repository.GameResultRepository,
	validator *DataValidator,
	normalizer *DataNormalizer,
	logger *logrus.Logger,
	batchSize int,
) *IngestionService {
	if batchSize <= 0 {
		batchSize = defaultIngestBatchSize
	}

	return &IngestionService{
		odds:       odds,
		results:    results,
		validator:  validator,
		normalizer: normalizer,
		logger:     logger.WithField("component", "ingestion"),
		batchSize:  batchSize,
	}
}

// IngestFile reads an IngestionBatch JSON document from path
func (s *IngestionService) IngestFile(ctx context.Context, path string) (*IngestionMetrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ingestion file: %w", err)
	}
	defer f.Close()

	return s.IngestReader(ctx, f)
}

// IngestReader decodes one IngestionBatch from r and ingests it
func (s *IngestionService) IngestReader(ctx context.Context, r io.Reader) (*IngestionMetrics, error) {
	var batch IngestionBatch
	if err := json.NewDecoder(r).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode ingestion batch: %w", err)
	}
	return s.Ingest(ctx, batch)
}

// Ingest stores the odds in batches and upserts every result. A repository
// failure on one batch is counted and the remaining batches still run; the
// returned error reports the first failure.
func (s *IngestionService) Ingest(ctx context.Context, batch IngestionBatch) (*IngestionMetrics, error) {
	m := NewIngestionMetrics()

	s.logger.WithFields(logrus.Fields{
		"odds":    len(batch.Odds),
		"results": len(batch.Results),
	}).Info("Starting ingestion")

	var firstErr error
	if err := s.ingestOdds(ctx, batch.Odds, m); err != nil {
		firstErr = err
	}
	if err := s.ingestResults(ctx, batch.Results, m); err != nil && firstErr == nil {
		firstErr = err
	}

	m.Finish()
	s.logger.WithField("metrics", m.String()).Info("Ingestion complete")
	return m, firstErr
}

func (s *IngestionService) ingestOdds(ctx context.Context, snapshots []*models.OddsSnapshot, m *IngestionMetrics) error {
	valid := make([]*models.OddsSnapshot, 0, len(snapshots))
	for _, o := range snapshots {
		s.normalizer.NormalizeOdds(o)
		if err := s.validator.ValidateOdds(o); err != nil {
			m.RecordValidationError(kindOdds)
			s.logger.WithError(err).Warn("Rejected odds snapshot")
			continue
		}
		valid = append(valid, o)
	}

	var firstErr error
	for i := 0; i < len(valid); i += s.batchSize {
		if err := ctx.Err(); err != nil {
			m.RecordError(kindOdds, len(valid)-i)
			return err
		}

		end := i + s.batchSize
		if end > len(valid) {
			end = len(valid)
		}
		chunk := valid[i:end]

		if err := s.odds.InsertBatch(ctx, chunk); err != nil {
			m.RecordError(kindOdds, len(chunk))
			s.logger.WithError(err).WithField("batch_size", len(chunk)).Error("Failed to store odds batch")
			if firstErr == nil {
				firstErr = fmt.Errorf("store odds batch: %w", err)
			}
			continue
		}
		m.RecordAccepted(kindOdds, len(chunk))
	}
	return firstErr
}

func (s *IngestionService) ingestResults(ctx context.Context, results []*models.GameResult, m *IngestionMetrics) error {
	var firstErr error
	for _, g := range results {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.normalizer.NormalizeResult(g)
		if err := s.validator.ValidateGameResult(g); err != nil {
			m.RecordValidationError(kindResult)
			s.logger.WithError(err).Warn("Rejected game result")
			continue
		}

		if err := s.results.Upsert(ctx, g); err != nil {
			m.RecordError(kindResult, 1)
			s.logger.WithError(err).WithField("game_id", g.GameID).Error("Failed to store game result")
			if firstErr == nil {
				firstErr = fmt.Errorf("store result for game %s: %w", g.GameID, err)
			}
			continue
		}
		m.RecordAccepted(kindResult, 1)
	}
	return firstErr
}
