package probability

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/parlay-engine/internal/correlation"
	"github.com/yourusername/parlay-engine/internal/logger"
	"github.com/yourusername/parlay-engine/internal/models"
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

type fixedCalibrator struct {
	out     models.Probability
	applied bool
}

func (f fixedCalibrator) Calibrate(_ context.Context, raw models.Probability) (models.Probability, bool) {
	if !f.applied {
		return raw, false
	}
	return f.out, true
}

func candidate(game string, market models.MarketType, sel models.Selection, line *float64, p float64) models.CandidateLeg {
	return models.CandidateLeg{
		GameID:             game,
		Sport:              "nfl",
		MarketType:         market,
		Selection:          sel,
		Line:               line,
		ModelProbability:   models.Probability(p),
		ImpliedProbability: 0.52,
	}
}

func ptr(v float64) *float64 { return &v }

func newCalculator() *Calculator {
	return NewCalculator(correlation.NewModel(correlation.DefaultTable()))
}

func TestCombineSingleLegRoundTrip(t *testing.T) {
	calc := newCalculator()
	for _, p := range []float64{0, 0.0001, 0.37, 0.5, 0.999, 1} {
		got, err := calc.Combine([]models.CandidateLeg{candidate("g1", models.MarketTypeH2H, models.SelectionHome, nil, p)})
		require.NoError(t, err)
		assert.Equal(t, models.Probability(p), got)
	}
}

// Scenario A
func TestCombineSameGamePositiveCorrelation(t *testing.T) {
	calc := newCalculator()
	legs := []models.CandidateLeg{
		candidate("g1", models.MarketTypeSpread, models.SelectionHome, ptr(-3.5), 0.6),
		candidate("g1", models.MarketTypeTotal, models.SelectionOver, ptr(44.5), 0.55),
	}

	got, err := calc.Combine(legs)
	require.NoError(t, err)
	assert.Greater(t, got.Float64(), 0.6*0.55)
	assert.LessOrEqual(t, got.Float64(), 1.0)
}

func TestCombineIndependentGamesMultiply(t *testing.T) {
	calc := newCalculator()
	legs := []models.CandidateLeg{
		candidate("g1", models.MarketTypeSpread, models.SelectionHome, ptr(-3.5), 0.6),
		candidate("g2", models.MarketTypeTotal, models.SelectionOver, ptr(44.5), 0.5),
		candidate("g3", models.MarketTypeH2H, models.SelectionAway, nil, 0.4),
	}

	got, err := calc.Combine(legs)
	require.NoError(t, err)
	assert.InDelta(t, 0.6*0.5*0.4, got.Float64(), 1e-12)
}

func TestCombineMutuallyExclusiveLegsIsZero(t *testing.T) {
	calc := newCalculator()
	legs := []models.CandidateLeg{
		candidate("g1", models.MarketTypeH2H, models.SelectionHome, nil, 0.5),
		candidate("g1", models.MarketTypeH2H, models.SelectionAway, nil, 0.5),
	}

	got, err := calc.Combine(legs)
	require.NoError(t, err)
	assert.Equal(t, models.Probability(0), got)
}

func TestCombineJointNeverExceedsWeakestLeg(t *testing.T) {
	calc := newCalculator()
	legs := []models.CandidateLeg{
		candidate("g1", models.MarketTypeH2H, models.SelectionHome, nil, 0.9),
		candidate("g1", models.MarketTypeSpread, models.SelectionHome, ptr(-1.5), 0.2),
	}

	got, err := calc.Combine(legs)
	require.NoError(t, err)
	assert.LessOrEqual(t, got.Float64(), 0.2)
}

func TestCombineErrors(t *testing.T) {
	calc := newCalculator()

	_, err := calc.Combine(nil)
	assert.ErrorIs(t, err, models.ErrNoLegs)

	_, err = calc.Combine([]models.CandidateLeg{candidate("g1", models.MarketTypeH2H, models.SelectionHome, nil, 1.1)})
	assert.ErrorIs(t, err, models.ErrInvariantViolation)
}

func TestCombineIsOrderIndependent(t *testing.T) {
	calc := newCalculator()
	legs := []models.CandidateLeg{
		candidate("g1", models.MarketTypeSpread, models.SelectionHome, ptr(-3.5), 0.6),
		candidate("g2", models.MarketTypeH2H, models.SelectionAway, nil, 0.45),
		candidate("g1", models.MarketTypeTotal, models.SelectionOver, ptr(44.5), 0.55),
	}
	reversed := []models.CandidateLeg{legs[2], legs[1], legs[0]}

	a, err := calc.Combine(legs)
	require.NoError(t, err)
	b, err := calc.Combine(reversed)
	require.NoError(t, err)
	assert.InDelta(t, a.Float64(), b.Float64(), 1e-12)
}

func TestPayoutMultiplier(t *testing.T) {
	got, err := PayoutMultiplier([]int{100, 100, 150})
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(10)))
}

func TestServiceComputeUsesCalibration(t *testing.T) {
	legs := []models.CandidateLeg{candidate("g1", models.MarketTypeH2H, models.SelectionHome, nil, 0.4)}

	identity := NewService(newCalculator(), fixedCalibrator{}, &mockParlayRepository{}, logger.NewNopLogger())
	result, err := identity.Compute(context.Background(), legs)
	require.NoError(t, err)
	assert.Equal(t, models.Probability(0.4), result.RawProbability)
	assert.Equal(t, models.Probability(0.4), result.CalibratedProbability)
	assert.False(t, result.Calibrated)

	binned := NewService(newCalculator(), fixedCalibrator{out: 0.35, applied: true}, &mockParlayRepository{}, logger.NewNopLogger())
	result, err = binned.Compute(context.Background(), legs)
	require.NoError(t, err)
	assert.Equal(t, models.Probability(0.4), result.RawProbability)
	assert.Equal(t, models.Probability(0.35), result.CalibratedProbability)
	assert.True(t, result.Calibrated)
}

func TestServiceComputeAndStore(t *testing.T) {
	repo := &mockParlayRepository{}
	ref := models.ParlayRef{ID: uuid.New(), Kind: models.ParlayKindSaved}
	repo.On("SetHitProbability", mock.Anything, ref, models.Probability(0.3)).Return(nil).Once()

	svc := NewService(newCalculator(), fixedCalibrator{out: 0.3, applied: true}, repo, logger.NewNopLogger())
	result, err := svc.ComputeAndStore(context.Background(), ref, []models.CandidateLeg{
		candidate("g1", models.MarketTypeH2H, models.SelectionHome, nil, 0.4),
	})
	require.NoError(t, err)
	assert.Equal(t, models.Probability(0.3), result.CalibratedProbability)
	repo.AssertExpectations(t)
}

func TestServiceComputeAndStoreSurfacesAlreadySet(t *testing.T) {
	repo := &mockParlayRepository{}
	ref := models.ParlayRef{ID: uuid.New(), Kind: models.ParlayKindGenerated}
	repo.On("SetHitProbability", mock.Anything, ref, mock.Anything).Return(models.ErrAlreadySet)

	svc := NewService(newCalculator(), fixedCalibrator{}, repo, logger.NewNopLogger())
	_, err := svc.ComputeAndStore(context.Background(), ref, []models.CandidateLeg{
		candidate("g1", models.MarketTypeH2H, models.SelectionHome, nil, 0.4),
	})
	assert.ErrorIs(t, err, models.ErrAlreadySet)
}
