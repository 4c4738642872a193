package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/parlay-engine/internal/config"
	"github.com/yourusername/parlay-engine/internal/logger"
	"github.com/yourusername/parlay-engine/internal/models"
)

func testEvent() models.FeedEvent {
	return models.FeedEvent{
		ID:         uuid.New(),
		EventType:  models.FeedEventParlayWon,
		ParlayID:   uuid.New(),
		ParlayKind: models.ParlayKindGenerated,
		Summary:    "5-leg parlay moved from PENDING to WON",
		OccurredAt: time.Date(2026, 9, 14, 3, 0, 0, 0, time.UTC),
	}
}

func testWebhookConfig(url string) WebhookConfig {
	cfg := DefaultWebhookConfig()
	cfg.URL = url
	cfg.Token = "secret"
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	cfg.RateLimit = 1000
	return cfg
}

func TestWebhookPublisherPostsEvent(t *testing.T) {
	event := testEvent()
	var received models.FeedEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, event.ID.String(), r.Header.Get("Idempotency-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	pub := NewWebhookPublisher(testWebhookConfig(server.URL), logger.NewNopLogger())
	defer pub.Close()

	require.NoError(t, pub.Publish(context.Background(), event))
	assert.Equal(t, event.ID, received.ID)
	assert.Equal(t, models.FeedEventParlayWon, received.EventType)
}

func TestWebhookPublisherRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	pub := NewWebhookPublisher(testWebhookConfig(server.URL), logger.NewNopLogger())
	require.NoError(t, pub.Publish(context.Background(), testEvent()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookPublisherDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	pub := NewWebhookPublisher(testWebhookConfig(server.URL), logger.NewNopLogger())
	err := pub.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookPublisherCircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testWebhookConfig(server.URL)
	cfg.MaxRetries = 0
	cfg.CircuitBreakerMax = 2
	pub := NewWebhookPublisher(cfg, logger.NewNopLogger())
	now := time.Date(2026, 9, 14, 3, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return now }

	assert.Error(t, pub.Publish(context.Background(), testEvent()))
	assert.Error(t, pub.Publish(context.Background(), testEvent()))

	err := pub.Publish(context.Background(), testEvent())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())

	now = now.Add(cfg.CircuitCooldown)
	assert.Error(t, pub.Publish(context.Background(), testEvent()))
	assert.Equal(t, int32(3), calls.Load())
	assert.ErrorIs(t, pub.Publish(context.Background(), testEvent()), ErrCircuitOpen)
}

func TestWebsocketPublisher(t *testing.T) {
	received := make(chan models.FeedEvent, 2)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var event models.FeedEvent
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			received <- event
		}
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	pub := NewWebsocketPublisher(url, time.Second, logger.NewNopLogger())

	first, second := testEvent(), testEvent()
	require.NoError(t, pub.Publish(context.Background(), first))
	require.NoError(t, pub.Publish(context.Background(), second))

	for _, want := range []models.FeedEvent{first, second} {
		select {
		case got := <-received:
			assert.Equal(t, want.ID, got.ID)
		case <-time.After(2 * time.Second):
			t.Fatal("event not received")
		}
	}
	assert.NoError(t, pub.Close())
}

func TestWebsocketPublisherDialFailure(t *testing.T) {
	pub := NewWebsocketPublisher("ws://127.0.0.1:1/feed", time.Second, logger.NewNopLogger())
	assert.Error(t, pub.Publish(context.Background(), testEvent()))
}

type failingPublisher struct {
	err   error
	calls int
}

func (f *failingPublisher) Publish(context.Context, models.FeedEvent) error {
	f.calls++
	return f.err
}

func (f *failingPublisher) Close() error { return nil }

func TestMultiPublisherFansOut(t *testing.T) {
	boom := errors.New("boom")
	a := &failingPublisher{}
	b := &failingPublisher{err: boom}
	c := &failingPublisher{}

	multi := NewMultiPublisher(a, b, c)
	err := multi.Publish(context.Background(), testEvent())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, c.calls)
	assert.NoError(t, multi.Close())
}

func TestNewPublisherSelection(t *testing.T) {
	log := logger.NewNopLogger()

	assert.IsType(t, &LogPublisher{}, NewPublisher(config.FeedConfig{}, log))
	assert.IsType(t, &WebhookPublisher{}, NewPublisher(config.FeedConfig{WebhookURL: "https://feed.example.com/events"}, log))
	assert.IsType(t, &MultiPublisher{}, NewPublisher(config.FeedConfig{
		WebhookURL:   "https://feed.example.com/events",
		WebsocketURL: "wss://feed.example.com/ws",
	}, log))
}

func TestLogPublisher(t *testing.T) {
	pub := NewLogPublisher(logger.NewNopLogger())
	assert.NoError(t, pub.Publish(context.Background(), testEvent()))
	assert.NoError(t, pub.Close())
}
