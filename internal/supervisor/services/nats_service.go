// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package services

import (
	"context"
	"fmt"
	"time"
)

// NATSComponentsRunner is the lifecycle of the call event bus: the
// JetStream publisher and, when enabled, the relay into the websocket hub.
type NATSComponentsRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
}

// NATSComponentsService keeps the event bus up for as long as the
// supervisor runs.
type NATSComponentsService struct {
	components NATSComponentsRunner
	timeout    time.Duration
}

// NewNATSComponentsService creates the service with a 10s shutdown timeout.
func NewNATSComponentsService(components NATSComponentsRunner) *NATSComponentsService {
	return NewNATSComponentsServiceWithTimeout(components, 0)
}

// NewNATSComponentsServiceWithTimeout creates the service. A non-positive
// timeout means 10s.
func NewNATSComponentsServiceWithTimeout(components NATSComponentsRunner, shutdownTimeout time.Duration) *NATSComponentsService {
	return &NATSComponentsService{components: components, timeout: orDefault(shutdownTimeout)}
}

// Serve implements suture.Service. A failed Start is returned so suture
// retries with backoff.
func (s *NATSComponentsService) Serve(ctx context.Context) error {
	if err := s.components.Start(ctx); err != nil {
		return fmt.Errorf("event bus start failed: %w", err)
	}
	<-ctx.Done()

	_ = stopWithin(s.timeout, func(sctx context.Context) error {
		s.components.Shutdown(sctx)
		return nil
	})
	return ctx.Err()
}

func (s *NATSComponentsService) String() string { return "nats-components" }
