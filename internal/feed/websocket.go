package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-engine/internal/models"
)

const defaultWriteTimeout = 10 * time.Second

// WebsocketPublisher writes events as JSON frames to a long-lived websocket
// connection. The connection is dialed on first use and redialed once when a
// write fails.
type WebsocketPublisher struct {
	url          string
	writeTimeout time.Duration
	dialer       websocket.Dialer
	logger       *logrus.Entry

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebsocketPublisher creates a websocket publisher for url (ws:// or wss://)
func NewWebsocketPublisher(url string, writeTimeout time.Duration, log *logrus.Logger) *WebsocketPublisher {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &WebsocketPublisher{
		url:          url,
		writeTimeout: writeTimeout,
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger: log.WithField("component", "feed_websocket"),
	}
}

// Publish writes the event, reconnecting once on a broken connection
func (p *WebsocketPublisher) Publish(ctx context.Context, event models.FeedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.write(ctx, event)
	if err == nil {
		return nil
	}

	p.logger.WithError(err).Warn("Feed websocket write failed, reconnecting")
	p.closeLocked()
	if err := p.write(ctx, event); err != nil {
		p.closeLocked()
		return fmt.Errorf("publish feed event %s: %w", event.EventType, err)
	}
	return nil
}

// Close closes the connection with a normal closure frame
func (p *WebsocketPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return p.closeLocked()
}

func (p *WebsocketPublisher) write(ctx context.Context, event models.FeedEvent) error {
	if p.conn == nil {
		conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
		if err != nil {
			return fmt.Errorf("failed to connect to feed websocket: %w", err)
		}
		p.conn = conn
		p.logger.WithField("url", p.url).Info("Connected to feed websocket")
	}

	deadline := time.Now().Add(p.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := p.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return p.conn.WriteJSON(event)
}

func (p *WebsocketPublisher) closeLocked() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
