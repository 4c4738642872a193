package remote

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/yourusername/parlay-engine/internal/config"
	"github.com/yourusername/parlay-engine/internal/logger"
	"github.com/yourusername/parlay-engine/internal/models"
	"github.com/yourusername/parlay-engine/internal/scoring"
)

type fakeModel struct {
	calls    atomic.Int32
	response map[string]any
	err      error
	lastReq  atomic.Pointer[structpb.Struct]
}

func (f *fakeModel) Score(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f.calls.Add(1)
	f.lastReq.Store(req)
	if f.err != nil {
		return nil, f.err
	}
	return structpb.NewStruct(f.response)
}

func startModelServer(t *testing.T, model ModelServer, cacheTTL int) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer()
	RegisterModelServer(server, model)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	cfg := &config.ModelServiceConfig{
		GRPCAddress:           "passthrough:///bufnet",
		RequestTimeoutSeconds: 2,
		CacheTTLSeconds:       cacheTTL,
	}
	client, err := NewClient(cfg, logger.NewNopLogger(), grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func spreadOutcome() scoring.MarketOutcome {
	line := -3.5
	return scoring.MarketOutcome{
		GameID:      "g1",
		Sport:       "nfl",
		MarketType:  models.MarketTypeSpread,
		Selection:   models.SelectionHome,
		Line:        &line,
		DecimalOdds: 1.91,
		Features:    map[string]float64{"rest_days": 6},
	}
}

func TestClientScore(t *testing.T) {
	model := &fakeModel{response: map[string]any{
		"probability":       0.57,
		"market_consensus":  0.52,
		"data_completeness": 0.9,
		"situational_edge":  nil,
	}}
	client := startModelServer(t, model, 0)

	out, err := client.Score(context.Background(), spreadOutcome())
	require.NoError(t, err)

	assert.Equal(t, models.Probability(0.57), out.Probability)
	require.NotNil(t, out.Signals.MarketConsensus)
	assert.Equal(t, models.Probability(0.52), *out.Signals.MarketConsensus)
	require.NotNil(t, out.Signals.DataCompleteness)
	assert.Equal(t, 0.9, *out.Signals.DataCompleteness)
	assert.Nil(t, out.Signals.SituationalEdge)
	assert.Nil(t, out.Signals.StatisticalEdge)

	req := model.lastReq.Load()
	require.NotNil(t, req)
	assert.Equal(t, "spread", req.Fields["market_type"].GetStringValue())
	assert.Equal(t, -3.5, req.Fields["line"].GetNumberValue())
	assert.Equal(t, 6.0, req.Fields["features"].GetStructValue().Fields["rest_days"].GetNumberValue())
}

func TestClientScoreUsesCache(t *testing.T) {
	model := &fakeModel{response: map[string]any{"probability": 0.6}}
	client := startModelServer(t, model, 60)
	ctx := context.Background()

	_, err := client.Score(ctx, spreadOutcome())
	require.NoError(t, err)
	_, err = client.Score(ctx, spreadOutcome())
	require.NoError(t, err)

	assert.Equal(t, int32(1), model.calls.Load())
	hits, misses, ratio := client.cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 0.5, ratio)

	// A new price is a new cache entry
	repriced := spreadOutcome()
	repriced.DecimalOdds = 2.05
	_, err = client.Score(ctx, repriced)
	require.NoError(t, err)
	assert.Equal(t, int32(2), model.calls.Load())
}

func TestClientScoreRejectsInvalidResponses(t *testing.T) {
	tests := []struct {
		name     string
		response map[string]any
	}{
		{name: "missing probability", response: map[string]any{"market_consensus": 0.5}},
		{name: "probability not a number", response: map[string]any{"probability": "high"}},
		{name: "probability out of range", response: map[string]any{"probability": 1.4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := startModelServer(t, &fakeModel{response: tt.response}, 0)
			_, err := client.Score(context.Background(), spreadOutcome())
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestClientScoreServiceError(t *testing.T) {
	client := startModelServer(t, &fakeModel{err: status.Error(codes.Unavailable, "warming up")}, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := client.Score(ctx, spreadOutcome())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelServiceUnavailable))
}

func TestScoreCacheClear(t *testing.T) {
	c := NewScoreCache(time.Minute)
	c.Set("k", scoring.ModelOutput{Probability: 0.3})

	out, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, models.Probability(0.3), out.Probability)
	assert.Equal(t, 1, c.ItemCount())

	c.Clear()
	_, ok = c.Get("k")
	assert.False(t, ok)
	hits, misses, _ := c.Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(1), misses)
}
