package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/parlay-engine/internal/config"
	"github.com/yourusername/parlay-engine/internal/models"
)

// ErrCircuitOpen is returned while the webhook circuit breaker is open
var ErrCircuitOpen = errors.New("webhook circuit breaker open")

// WebhookConfig holds configuration for the webhook publisher
type WebhookConfig struct {
	URL               string
	Token             string
	Timeout           time.Duration
	MaxRetries        int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RateLimit         float64 // requests per second
	CircuitBreakerMax int     // consecutive failures before the breaker opens
	CircuitCooldown   time.Duration
}

// DefaultWebhookConfig returns recommended defaults
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		Timeout:           10 * time.Second,
		MaxRetries:        3,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      5 * time.Second,
		RateLimit:         20,
		CircuitBreakerMax: 5,
		CircuitCooldown:   time.Minute,
	}
}

// WebhookConfigFromFeed applies the feed config section over the defaults
func WebhookConfigFromFeed(cfg config.FeedConfig) WebhookConfig {
	wc := DefaultWebhookConfig()
	wc.URL = cfg.WebhookURL
	wc.Token = cfg.WebhookToken
	if cfg.TimeoutSeconds > 0 {
		wc.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	wc.MaxRetries = cfg.MaxRetries
	if cfg.RateLimit > 0 {
		wc.RateLimit = cfg.RateLimit
	}
	return wc
}

// WebhookPublisher posts events as JSON with retries, rate limiting and a circuit breaker
type WebhookPublisher struct {
	cfg     WebhookConfig
	client  *retryablehttp.Client
	limiter *rate.Limiter
	logger  *logrus.Entry
	now     func() time.Time

	mu                sync.Mutex
	consecutiveErrors int
	openedAt          time.Time
	lastError         error
}

// NewWebhookPublisher creates a webhook publisher
func NewWebhookPublisher(cfg WebhookConfig, log *logrus.Logger) *WebhookPublisher {
	entry := log.WithField("component", "feed_webhook")

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = retryPolicy
	retryClient.Logger = leveledLogger{entry}

	if cfg.CircuitBreakerMax <= 0 {
		cfg.CircuitBreakerMax = 5
	}

	return &WebhookPublisher{
		cfg:     cfg,
		client:  retryClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		logger:  entry,
		now:     time.Now,
	}
}

// Publish posts the event. Non-2xx responses after retries are errors.
func (p *WebhookPublisher) Publish(ctx context.Context, event models.FeedEvent) error {
	if err := p.checkCircuit(); err != nil {
		return err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode feed event: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", event.ID.String())
	if p.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.recordFailure(err)
		return fmt.Errorf("post feed event %s: %w", event.EventType, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		err := fmt.Errorf("post feed event %s: unexpected status %d", event.EventType, resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			p.recordFailure(err)
		}
		return err
	}

	p.recordSuccess()
	return nil
}

// Close releases idle connections
func (p *WebhookPublisher) Close() error {
	p.client.HTTPClient.CloseIdleConnections()
	return nil
}

func (p *WebhookPublisher) checkCircuit() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.openedAt.IsZero() {
		return nil
	}
	// half-open after the cooldown: let one attempt through
	if p.now().Sub(p.openedAt) >= p.cfg.CircuitCooldown {
		p.openedAt = time.Time{}
		p.consecutiveErrors = p.cfg.CircuitBreakerMax - 1
		return nil
	}
	return fmt.Errorf("%w: %v", ErrCircuitOpen, p.lastError)
}

func (p *WebhookPublisher) recordFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.consecutiveErrors++
	p.lastError = err
	if p.consecutiveErrors >= p.cfg.CircuitBreakerMax && p.openedAt.IsZero() {
		p.openedAt = p.now()
		p.logger.WithError(err).Warnf("Circuit breaker opened after %d consecutive errors", p.consecutiveErrors)
	}
}

func (p *WebhookPublisher) recordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consecutiveErrors = 0
	p.openedAt = time.Time{}
	p.lastError = nil
}

// retryPolicy retries network errors, 429 and 5xx responses
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	default:
		return false, nil
	}
}

// leveledLogger routes retryablehttp logging into logrus
type leveledLogger struct {
	entry *logrus.Entry
}

func (l leveledLogger) fields(keysAndValues []interface{}) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return l.entry.WithFields(fields)
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Error(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}
