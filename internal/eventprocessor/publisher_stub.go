// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

//go:build !nats

package eventprocessor

import (
	"context"

	"github.com/tomtom215/fritzcall/internal/models"
)

// Publisher is a stub when NATS dependencies are not compiled in.
// Build with -tags=nats to enable the JetStream publisher.
type Publisher struct{}

// NewPublisher returns ErrNATSNotEnabled.
func NewPublisher(PublisherConfig, interface{}) (*Publisher, error) {
	return nil, ErrNATSNotEnabled
}

// PublishCallEvent returns ErrNATSNotEnabled.
func (p *Publisher) PublishCallEvent(context.Context, *models.CallEvent) error {
	return ErrNATSNotEnabled
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
