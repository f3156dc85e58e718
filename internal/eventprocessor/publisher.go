// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

//go:build nats

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/fritzcall/internal/metrics"
	"github.com/tomtom215/fritzcall/internal/models"
)

// publisherBreakerName labels the publisher's circuit breaker metrics.
const publisherBreakerName = "nats-publisher"

// Publisher publishes call events to JetStream through watermill. It
// implements sync.EventPublisher.
type Publisher struct {
	publisher      message.Publisher
	subjectPrefix  string
	circuitBreaker *gobreaker.CircuitBreaker[struct{}]
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewPublisher connects a watermill NATS publisher with JetStream message
// ID tracking. The stream must already exist (see StreamInitializer).
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = NewDefaultLoggerAdapter()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return newPublisher(pub, cfg.SubjectPrefix, logger), nil
}

// newPublisher wraps any watermill publisher. Tests use the gochannel one.
func newPublisher(pub message.Publisher, subjectPrefix string, logger watermill.LoggerAdapter) *Publisher {
	metrics.CircuitBreakerState.WithLabelValues(publisherBreakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        publisherBreakerName,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Publisher circuit breaker state change", watermill.LogFields{
				"from": from.String(),
				"to":   to.String(),
			})
			state := 0.0
			switch to {
			case gobreaker.StateHalfOpen:
				state = 1
			case gobreaker.StateOpen:
				state = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(state)
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Publisher{
		publisher:      pub,
		subjectPrefix:  subjectPrefix,
		circuitBreaker: cb,
		logger:         logger,
	}
}

// PublishCallEvent publishes event to <prefix>.<device>. The Nats-Msg-Id is
// derived from the call identity, so a record published twice inside the
// stream's duplicate window is stored once.
func (p *Publisher) PublishCallEvent(ctx context.Context, event *models.CallEvent) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}

	data, err := Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(MessageID(event), data)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	msg.Metadata.Set("device", event.Device)
	msg.Metadata.Set("change", event.Change)
	msg.Metadata.Set("event_id", event.ID)
	msg.SetContext(ctx)

	topic := Subject(p.subjectPrefix, event.Device)
	_, err = p.circuitBreaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(topic, msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", msg.UUID, topic, err)
	}
	return nil
}

// Close shuts the underlying publisher down. Further publishes fail with
// ErrPublisherClosed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
