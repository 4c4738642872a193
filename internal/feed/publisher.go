// Package feed delivers settlement feed events to the notification collaborator.
package feed

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-engine/internal/config"
	"github.com/yourusername/parlay-engine/internal/models"
)

// Publisher delivers one feed event
type Publisher interface {
	Publish(ctx context.Context, event models.FeedEvent) error
	Close() error
}

// NewPublisher builds the publisher described by cfg. Every configured
// transport receives each event; with none configured events are only logged.
func NewPublisher(cfg config.FeedConfig, log *logrus.Logger) Publisher {
	var publishers []Publisher
	if cfg.WebhookURL != "" {
		publishers = append(publishers, NewWebhookPublisher(WebhookConfigFromFeed(cfg), log))
	}
	if cfg.WebsocketURL != "" {
		publishers = append(publishers, NewWebsocketPublisher(cfg.WebsocketURL, time.Duration(cfg.TimeoutSeconds)*time.Second, log))
	}

	switch len(publishers) {
	case 0:
		return NewLogPublisher(log)
	case 1:
		return publishers[0]
	default:
		return NewMultiPublisher(publishers...)
	}
}

// LogPublisher writes events to the log only
type LogPublisher struct {
	logger *logrus.Entry
}

// NewLogPublisher creates a log-only publisher
func NewLogPublisher(log *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: log.WithField("component", "feed")}
}

// Publish logs the event
func (p *LogPublisher) Publish(_ context.Context, event models.FeedEvent) error {
	p.logger.WithFields(logrus.Fields{
		"event_id":    event.ID,
		"event_type":  event.EventType,
		"parlay_id":   event.ParlayID,
		"parlay_kind": event.ParlayKind,
		"summary":     event.Summary,
	}).Info("Feed event")
	return nil
}

// Close is a no-op
func (p *LogPublisher) Close() error {
	return nil
}

// MultiPublisher fans each event out to several publishers
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher creates a fan-out publisher
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

// Publish sends the event to every publisher and joins their errors
func (m *MultiPublisher) Publish(ctx context.Context, event models.FeedEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher
func (m *MultiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
