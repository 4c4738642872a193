package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/parlay-engine/internal/config"
	"github.com/yourusername/parlay-engine/internal/logger"
	"github.com/yourusername/parlay-engine/internal/models"
	"github.com/yourusername/parlay-engine/internal/repository"
	"github.com/yourusername/parlay-engine/internal/scoring"
)

type mockParlayRepository struct {
	mock.Mock
}

func (m *mockParlayRepository) Create(ctx context.Context, parlay *models.Parlay) error {
	return m.Called(ctx, parlay).Error(0)
}

func (m *mockParlayRepository) GetByID(ctx context.Context, ref models.ParlayRef) (*models.Parlay, error) {
	args := m.Called(ctx, ref)
	if p, ok := args.Get(0).(*models.Parlay); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockParlayRepository) UpdateStatus(ctx context.Context, ref models.ParlayRef, from, to models.LegStatus) (bool, error) {
	args := m.Called(ctx, ref, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *mockParlayRepository) SetHitProbability(ctx context.Context, ref models.ParlayRef, p models.Probability) error {
	return m.Called(ctx, ref, p).Error(0)
}

type mockLegRepository struct {
	mock.Mock
}

func (m *mockLegRepository) Create(ctx context.Context, leg *models.Leg) error {
	return m.Called(ctx, leg).Error(0)
}

func (m *mockLegRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Leg, error) {
	args := m.Called(ctx, id)
	if leg, ok := args.Get(0).(*models.Leg); ok {
		return leg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLegRepository) ListByParlay(ctx context.Context, ref models.ParlayRef) ([]*models.Leg, error) {
	args := m.Called(ctx, ref)
	if legs, ok := args.Get(0).([]*models.Leg); ok {
		return legs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLegRepository) ClaimBatch(ctx context.Context, params repository.ClaimParams) (*repository.ClaimResult, error) {
	args := m.Called(ctx, params)
	if res, ok := args.Get(0).(*repository.ClaimResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLegRepository) UpdateSettlement(ctx context.Context, leg *models.Leg, claimedAt time.Time) error {
	return m.Called(ctx, leg, claimedAt).Error(0)
}

func (m *mockLegRepository) ReleaseClaims(ctx context.Context, ids []uuid.UUID, claimedAt time.Time) error {
	return m.Called(ctx, ids, claimedAt).Error(0)
}

// inlineTx runs fn on the caller's context
type inlineTx struct {
	calls int
}

func (tx *inlineTx) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	tx.calls++
	return fn(ctx)
}

type stubProbability struct {
	result models.ParlayProbabilityResult
	err    error
	ref    models.ParlayRef
	legs   []models.CandidateLeg
}

func (s *stubProbability) ComputeAndStore(_ context.Context, ref models.ParlayRef, legs []models.CandidateLeg) (models.ParlayProbabilityResult, error) {
	s.ref = ref
	s.legs = legs
	return s.result, s.err
}

type builderFixture struct {
	odds        *mockOddsRepository
	parlays     *mockParlayRepository
	legs        *mockLegRepository
	tx          *inlineTx
	probability *stubProbability
	builder     *ParlayBuilder
}

func snapshot(game string, market models.MarketType, sel models.Selection, line *float64, price float64) *models.OddsSnapshot {
	return &models.OddsSnapshot{GameID: game, Sport: "nfl", MarketType: market, Outcome: sel, Line: line, DecimalPrice: price, Book: "pinnacle"}
}

func confident(p models.Probability) scoring.ModelOutput {
	return scoring.ModelOutput{
		Probability: p,
		Signals: scoring.Signals{
			MarketConsensus:  &p,
			StatisticalEdge:  floatPtr(0.10),
			SituationalEdge:  floatPtr(1),
			DataCompleteness: floatPtr(1),
		},
	}
}

func outcomeKey(s *models.OddsSnapshot) string {
	return scoring.MarketOutcome{GameID: s.GameID, MarketType: s.MarketType, Selection: s.Outcome, Line: s.Line}.Key()
}

var (
	homeML   = snapshot("g1", models.MarketTypeH2H, models.SelectionHome, nil, 2.2)
	awayML   = snapshot("g1", models.MarketTypeH2H, models.SelectionAway, nil, 1.7)
	overG2   = snapshot("g2", models.MarketTypeTotal, models.SelectionOver, floatPtr(44.5), 1.91)
	allSnaps = []*models.OddsSnapshot{homeML, awayML, overG2}
)

func newBuilderFixture(t *testing.T, cfg config.BuilderConfig) *builderFixture {
	t.Helper()
	f := &builderFixture{
		odds:    &mockOddsRepository{},
		parlays: &mockParlayRepository{},
		legs:    &mockLegRepository{},
		tx:      &inlineTx{},
		probability: &stubProbability{result: models.ParlayProbabilityResult{
			RawProbability:        0.30,
			CalibratedProbability: 0.28,
			Calibrated:            true,
		}},
	}

	model := &scoring.StaticScorer{Outputs: map[string]scoring.ModelOutput{
		outcomeKey(homeML): confident(0.55),
		outcomeKey(awayML): confident(0.40),
		outcomeKey(overG2): confident(0.56),
	}}
	scorer := scoring.NewScorer(model, logger.NewNopLogger(), 2, 0)

	repos := &repository.Repositories{Odds: f.odds, Parlay: f.parlays, Leg: f.legs}
	f.builder = NewParlayBuilder(repos, f.tx, scorer, f.probability, cfg, logger.NewNopLogger())
	return f
}

func TestBuildStoresGeneratedParlay(t *testing.T) {
	f := newBuilderFixture(t, config.BuilderConfig{})
	games := []string{"g1", "g2"}

	f.odds.On("GetLatestByGames", mock.Anything, games).Return(allSnaps, nil).Once()
	f.parlays.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Parlay) bool {
		return p.Kind == models.ParlayKindGenerated && p.NumLegs == 2 && p.Status == models.LegStatusPending
	})).Return(nil).Once()
	f.legs.On("Create", mock.Anything, mock.AnythingOfType("*models.Leg")).Return(nil).Twice()

	result, err := f.builder.Build(context.Background(), BuildRequest{
		GameIDs:     games,
		NumLegs:     2,
		RiskProfile: models.RiskProfileConservative,
	})
	require.NoError(t, err)

	require.Len(t, result.Parlay.Legs, 2)
	assert.Equal(t, "g1", result.Parlay.Legs[0].GameID)
	assert.Equal(t, models.SelectionHome, result.Parlay.Legs[0].Selection)
	assert.Equal(t, 120, *result.Parlay.Legs[0].Price)
	assert.Equal(t, -110, *result.Parlay.Legs[1].Price)
	for _, leg := range result.Parlay.Legs {
		require.NotNil(t, leg.ParlayID)
		assert.Equal(t, result.Parlay.ID, *leg.ParlayID)
		assert.Nil(t, leg.SavedParlayID)
	}

	assert.Equal(t, models.Probability(0.28), result.Parlay.ParlayHitProb)
	assert.True(t, result.Probability.Calibrated)
	assert.InDelta(t, 4.2, result.Payout.InexactFloat64(), 1e-9)

	assert.Equal(t, models.ParlayRef{ID: result.Parlay.ID, Kind: models.ParlayKindGenerated}, f.probability.ref)
	assert.Len(t, f.probability.legs, 2)
	assert.Equal(t, 1, f.tx.calls)
	f.parlays.AssertExpectations(t)
	f.legs.AssertExpectations(t)
}

func TestBuildInsufficientCandidates(t *testing.T) {
	f := newBuilderFixture(t, config.BuilderConfig{})
	f.odds.On("GetLatestByGames", mock.Anything, []string{"g1", "g2"}).Return(allSnaps, nil).Once()

	_, err := f.builder.Build(context.Background(), BuildRequest{
		GameIDs:     []string{"g1", "g2"},
		NumLegs:     3,
		RiskProfile: models.RiskProfileDegen,
	})

	var insufficient *models.InsufficientCandidatesError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 3, insufficient.Needed)
	assert.Equal(t, 2, insufficient.Have)
	f.parlays.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Zero(t, f.tx.calls)
}

func TestBuildProfileOverridesFromConfig(t *testing.T) {
	f := newBuilderFixture(t, config.BuilderConfig{
		Profiles: map[string]config.RiskProfileConfig{
			"conservative": {MinConfidence: 101},
		},
	})
	f.odds.On("GetLatestByGames", mock.Anything, []string{"g1"}).Return(allSnaps, nil).Once()

	_, err := f.builder.Build(context.Background(), BuildRequest{
		GameIDs:     []string{"g1"},
		NumLegs:     1,
		RiskProfile: models.RiskProfileConservative,
	})
	assert.True(t, models.IsInsufficientCandidates(err))
}

func TestBuildRejectsInvalidRequests(t *testing.T) {
	f := newBuilderFixture(t, config.BuilderConfig{MaxLegs: 4})

	tests := []struct {
		name string
		req  BuildRequest
	}{
		{name: "unknown profile", req: BuildRequest{GameIDs: []string{"g1"}, NumLegs: 2, RiskProfile: "yolo"}},
		{name: "zero legs", req: BuildRequest{GameIDs: []string{"g1"}, NumLegs: 0, RiskProfile: models.RiskProfileBalanced}},
		{name: "above max legs", req: BuildRequest{GameIDs: []string{"g1"}, NumLegs: 5, RiskProfile: models.RiskProfileBalanced}},
		{name: "no games", req: BuildRequest{NumLegs: 2, RiskProfile: models.RiskProfileBalanced}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.builder.Build(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidBuildRequest)
		})
	}
	f.odds.AssertNotCalled(t, "GetLatestByGames", mock.Anything, mock.Anything)
}

func TestBuildFailsWhenTransactionFails(t *testing.T) {
	f := newBuilderFixture(t, config.BuilderConfig{})
	dbErr := errors.New("insert failed")

	f.odds.On("GetLatestByGames", mock.Anything, []string{"g2"}).Return([]*models.OddsSnapshot{overG2}, nil).Once()
	f.parlays.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.legs.On("Create", mock.Anything, mock.Anything).Return(dbErr).Once()

	result, err := f.builder.Build(context.Background(), BuildRequest{
		GameIDs:     []string{"g2"},
		NumLegs:     1,
		RiskProfile: models.RiskProfileDegen,
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, dbErr)
	assert.Empty(t, f.probability.legs)
}

func TestSaveStoresSavedParlay(t *testing.T) {
	f := newBuilderFixture(t, config.BuilderConfig{})
	candidates := []models.CandidateLeg{
		{GameID: "g3", Sport: "nba", MarketType: models.MarketTypeSpread, Selection: models.SelectionAway, Line: floatPtr(4.5), DecimalOdds: 1.95, ModelProbability: 0.55},
	}

	f.parlays.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Parlay) bool {
		return p.Kind == models.ParlayKindSaved
	})).Return(nil).Once()
	f.legs.On("Create", mock.Anything, mock.AnythingOfType("*models.Leg")).Return(nil).Once()

	result, err := f.builder.Save(context.Background(), models.RiskProfileBalanced, candidates)
	require.NoError(t, err)

	leg := result.Parlay.Legs[0]
	require.NotNil(t, leg.SavedParlayID)
	assert.Nil(t, leg.ParlayID)
	assert.Equal(t, models.ParlayKindSaved, f.probability.ref.Kind)

	_, err = f.builder.Save(context.Background(), models.RiskProfileBalanced, nil)
	assert.ErrorIs(t, err, models.ErrNoLegs)
}
