// Package remote scores market outcomes with an external model service over gRPC.
package remote

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/yourusername/parlay-engine/internal/config"
	"github.com/yourusername/parlay-engine/internal/models"
	"github.com/yourusername/parlay-engine/internal/scoring"
)

const defaultRequestTimeout = 5 * time.Second

// Client implements scoring.ModelScorer against the model service
type Client struct {
	conn    *grpc.ClientConn
	cache   *ScoreCache
	timeout time.Duration
	logger  *logrus.Logger
}

// NewClient creates a model service client. The connection is established lazily.
func NewClient(cfg *config.ModelServiceConfig, logger *logrus.Logger, opts ...grpc.DialOption) (*Client, error) {
	creds := grpc.WithTransportCredentials(insecure.NewCredentials())
	if cfg.UseTLS {
		creds = grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(nil, ""))
	}

	connectParams := grpc.ConnectParams{
		Backoff: backoff.Config{
			BaseDelay:  1 * time.Second,
			Multiplier: 1.6,
			Jitter:     0.2,
			MaxDelay:   5 * time.Second,
		},
		MinConnectTimeout: 10 * time.Second,
	}

	keepAlive := keepalive.ClientParameters{
		Time:                30 * time.Second,
		Timeout:             10 * time.Second,
		PermitWithoutStream: true,
	}

	dialOpts := append([]grpc.DialOption{
		creds,
		grpc.WithConnectParams(connectParams),
		grpc.WithKeepaliveParams(keepAlive),
	}, opts...)

	conn, err := grpc.NewClient(cfg.GRPCAddress, dialOpts...)
	if err != nil {
		logger.WithError(err).Error("Failed to create model service client")
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	client := &Client{
		conn:    conn,
		timeout: timeout,
		logger:  logger,
	}
	if cfg.CacheTTLSeconds > 0 {
		client.cache = NewScoreCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	}

	logger.WithField("address", cfg.GRPCAddress).Info("Model service client ready")
	return client, nil
}

// Score implements scoring.ModelScorer
func (c *Client) Score(ctx context.Context, outcome scoring.MarketOutcome) (scoring.ModelOutput, error) {
	key := outcome.Key() + "@" + strconv.FormatFloat(outcome.DecimalOdds, 'f', -1, 64)
	if c.cache != nil {
		if out, ok := c.cache.Get(key); ok {
			ModelScoresTotal.WithLabelValues("true").Inc()
			return out, nil
		}
	}

	req, err := encodeRequest(outcome)
	if err != nil {
		return scoring.ModelOutput{}, err
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp := new(structpb.Struct)
	err = c.conn.Invoke(callCtx, scoreFullMethod, req, resp)
	ModelScoreLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		ModelRPCErrorsTotal.WithLabelValues("rpc_failed").Inc()
		c.logger.WithError(err).WithField("outcome", outcome.Key()).Error("Model service Score failed")
		return scoring.ModelOutput{}, fmt.Errorf("%w: %v", ErrModelServiceUnavailable, err)
	}

	out, err := decodeResponse(resp)
	if err != nil {
		ModelRPCErrorsTotal.WithLabelValues("invalid_response").Inc()
		return scoring.ModelOutput{}, err
	}

	if c.cache != nil {
		c.cache.Set(key, out)
	}
	ModelScoresTotal.WithLabelValues("false").Inc()
	return out, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func encodeRequest(o scoring.MarketOutcome) (*structpb.Struct, error) {
	fields := map[string]any{
		"game_id":      o.GameID,
		"sport":        o.Sport,
		"market_type":  string(o.MarketType),
		"selection":    string(o.Selection),
		"decimal_odds": o.DecimalOdds,
	}
	if o.Line != nil {
		fields["line"] = *o.Line
	}
	if len(o.Features) > 0 {
		features := make(map[string]any, len(o.Features))
		for k, v := range o.Features {
			features[k] = v
		}
		fields["features"] = features
	}

	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode score request: %w", err)
	}
	return req, nil
}

func decodeResponse(resp *structpb.Struct) (scoring.ModelOutput, error) {
	fields := resp.GetFields()

	pv, ok := fields["probability"]
	if !ok {
		return scoring.ModelOutput{}, fmt.Errorf("%w: missing probability", ErrInvalidResponse)
	}
	num, ok := pv.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return scoring.ModelOutput{}, fmt.Errorf("%w: probability is not a number", ErrInvalidResponse)
	}
	p := models.Probability(num.NumberValue)
	if err := p.Validate(); err != nil {
		return scoring.ModelOutput{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	out := scoring.ModelOutput{Probability: p}
	if v := optionalNumber(fields, "market_consensus"); v != nil {
		consensus := models.Probability(*v)
		out.Signals.MarketConsensus = &consensus
	}
	out.Signals.StatisticalEdge = optionalNumber(fields, "statistical_edge")
	out.Signals.SituationalEdge = optionalNumber(fields, "situational_edge")
	out.Signals.DataCompleteness = optionalNumber(fields, "data_completeness")
	return out, nil
}

// optionalNumber returns nil for absent, null or non-numeric fields
func optionalNumber(fields map[string]*structpb.Value, name string) *float64 {
	v, ok := fields[name]
	if !ok {
		return nil
	}
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return nil
	}
	n := num.NumberValue
	return &n
}
