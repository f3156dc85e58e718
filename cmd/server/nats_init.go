// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

//go:build nats

package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/fritzcall/internal/config"
	"github.com/tomtom215/fritzcall/internal/eventprocessor"
	"github.com/tomtom215/fritzcall/internal/logging"
	intsync "github.com/tomtom215/fritzcall/internal/sync"
	ws "github.com/tomtom215/fritzcall/internal/websocket"
)

// NATSComponents holds the JetStream publisher and, when relaying is
// enabled, the subscriber that feeds the local websocket hub.
type NATSComponents struct {
	natsConn          *natsgo.Conn
	streamInitializer *eventprocessor.StreamInitializer
	publisher         *eventprocessor.Publisher

	subscriber message.Subscriber
	relay      *eventprocessor.Relay
	relayStop  context.CancelFunc
	relayDone  chan struct{}

	mu      sync.Mutex
	running bool
}

// InitNATS connects to NATS, ensures the call event stream exists and sets
// the publisher on manager. It returns nil, nil when NATS is disabled.
func InitNATS(cfg *config.Config, manager *intsync.Manager, wsHub *ws.Hub) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS event publishing disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	natsCfg := cfg.NATS
	components := &NATSComponents{}

	nc, err := natsgo.Connect(natsCfg.URL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	components.natsConn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		components.close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := eventprocessor.DefaultStreamConfig(natsCfg.StreamName, natsCfg.SubjectPrefix)
	if natsCfg.StreamRetentionDays > 0 {
		streamCfg.MaxAge = time.Duration(natsCfg.StreamRetentionDays) * 24 * time.Hour
	}
	if natsCfg.DuplicateWindow > 0 {
		streamCfg.DuplicateWindow = natsCfg.DuplicateWindow
	}

	initializer, err := eventprocessor.NewStreamInitializer(js, &streamCfg)
	if err != nil {
		components.close()
		return nil, err
	}
	components.streamInitializer = initializer

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := initializer.EnsureStream(ctx); err != nil {
		components.close()
		return nil, err
	}
	logging.Info().
		Str("stream", streamCfg.Name).
		Strs("subjects", streamCfg.Subjects).
		Dur("duplicate_window", streamCfg.DuplicateWindow).
		Msg("JetStream stream ready")

	publisher, err := eventprocessor.NewPublisher(
		eventprocessor.DefaultPublisherConfig(natsCfg.URL, natsCfg.SubjectPrefix), nil)
	if err != nil {
		components.close()
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	components.publisher = publisher
	manager.SetEventPublisher(publisher)

	if natsCfg.RelayToWebSocket {
		subCfg := eventprocessor.DefaultSubscriberConfig(natsCfg.URL, streamCfg.Name, natsCfg.DurableName)
		sub, err := eventprocessor.NewSubscriber(&subCfg, nil)
		if err != nil {
			components.close()
			return nil, fmt.Errorf("create relay subscriber: %w", err)
		}
		components.subscriber = sub

		relay, err := eventprocessor.NewRelay(sub, eventprocessor.WildcardSubject(natsCfg.SubjectPrefix), wsHub, nil)
		if err != nil {
			components.close()
			return nil, err
		}
		components.relay = relay
	}

	logging.Info().
		Str("url", natsCfg.URL).
		Bool("relay", components.relay != nil).
		Msg("NATS event publishing initialized")
	return components, nil
}

// Start begins relaying events to the websocket hub, if configured.
func (c *NATSComponents) Start(ctx context.Context) error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	if c.relay != nil {
		relayCtx, stop := context.WithCancel(ctx)
		done := make(chan struct{})
		c.relayStop = stop
		c.relayDone = done
		go func() {
			defer close(done)
			if err := c.relay.Run(relayCtx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("Event relay stopped")
			}
		}()
		logging.Info().Msg("Event relay to websocket started")
	}

	c.running = true
	return nil
}

// Shutdown stops the relay, then closes the subscriber, the publisher and
// the connection, in that order.
func (c *NATSComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stop, done := c.relayStop, c.relayDone
	c.relayStop, c.relayDone = nil, nil
	c.mu.Unlock()

	if stop != nil {
		stop()
		select {
		case <-done:
		case <-ctx.Done():
			logging.Warn().Msg("Event relay did not stop before the shutdown deadline")
		}
		stats := c.relay.Stats()
		logging.Info().
			Int64("received", stats.Received).
			Int64("relayed", stats.Relayed).
			Int64("rejected", stats.Rejected).
			Msg("Event relay stopped")
	}

	c.close()
	logging.Info().Msg("NATS shutdown complete")
}

// close releases everything that was created, in reverse order.
func (c *NATSComponents) close() {
	if c.subscriber != nil {
		if err := c.subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing relay subscriber")
		}
		c.subscriber = nil
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
		c.publisher = nil
	}
	if c.natsConn != nil {
		c.natsConn.Close()
		c.natsConn = nil
	}
}

// IsRunning reports whether Start has been called without a Shutdown.
func (c *NATSComponents) IsRunning() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// EventPublisher returns the publisher, or nil.
func (c *NATSComponents) EventPublisher() intsync.EventPublisher {
	if c == nil || c.publisher == nil {
		return nil
	}
	return c.publisher
}
