// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

//go:build nats

package eventprocessor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// NewSubscriber creates a durable JetStream subscriber bound to the call
// event stream. Binding is required because the relay subscribes to a
// wildcard subject, which cannot name a stream.
func NewSubscriber(cfg *SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	if logger == nil {
		logger = NewDefaultLoggerAdapter()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Subscriber disconnected", err, nil)
			}
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
		natsgo.BindStream(cfg.StreamName),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	return sub, nil
}

// EventSink receives encoded call events. Implemented by websocket.Hub.
type EventSink interface {
	BroadcastRaw(data []byte)
}

// RelayStats counts relay outcomes.
type RelayStats struct {
	Received int64
	Relayed  int64
	Rejected int64
}

// Relay forwards call events from the bus to an EventSink, so clients of
// every instance see events published by any instance.
type Relay struct {
	subscriber message.Subscriber
	topic      string
	sink       EventSink
	logger     watermill.LoggerAdapter

	received atomic.Int64
	relayed  atomic.Int64
	rejected atomic.Int64
}

// NewRelay creates a relay for topic.
func NewRelay(sub message.Subscriber, topic string, sink EventSink, logger watermill.LoggerAdapter) (*Relay, error) {
	if sub == nil {
		return nil, fmt.Errorf("subscriber required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink required")
	}
	if logger == nil {
		logger = NewDefaultLoggerAdapter()
	}
	return &Relay{subscriber: sub, topic: topic, sink: sink, logger: logger}, nil
}

// Run relays messages until ctx is canceled or the subscription closes.
// Malformed events are acked and dropped; redelivery would not fix them.
func (r *Relay) Run(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, r.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(msg)
		}
	}
}

func (r *Relay) handle(msg *message.Message) {
	r.received.Add(1)
	if _, err := Unmarshal(msg.Payload); err != nil {
		r.rejected.Add(1)
		r.logger.Error("Dropping malformed call event", err, watermill.LogFields{
			"message_uuid": msg.UUID,
			"topic":        r.topic,
		})
		msg.Ack()
		return
	}
	r.sink.BroadcastRaw(msg.Payload)
	r.relayed.Add(1)
	msg.Ack()
}

// Stats returns the relay counters.
func (r *Relay) Stats() RelayStats {
	return RelayStats{
		Received: r.received.Load(),
		Relayed:  r.relayed.Load(),
		Rejected: r.rejected.Load(),
	}
}
