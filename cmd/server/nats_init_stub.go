// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

//go:build !nats

package main

import (
	"context"

	"github.com/tomtom215/fritzcall/internal/config"
	"github.com/tomtom215/fritzcall/internal/logging"
	intsync "github.com/tomtom215/fritzcall/internal/sync"
	ws "github.com/tomtom215/fritzcall/internal/websocket"
)

// NATSComponents is a stub for non-NATS builds.
type NATSComponents struct{}

// InitNATS returns nil, nil. Call events stay local to this process.
func InitNATS(cfg *config.Config, _ *intsync.Manager, _ *ws.Hub) (*NATSComponents, error) {
	if cfg.NATS.Enabled {
		logging.Warn().Msg("NATS_ENABLED=true but NATS support not compiled (build with -tags nats)")
	}
	return nil, nil
}

// Start is a no-op.
func (c *NATSComponents) Start(_ context.Context) error {
	return nil
}

// Shutdown is a no-op.
func (c *NATSComponents) Shutdown(_ context.Context) {}

// IsRunning returns false.
func (c *NATSComponents) IsRunning() bool {
	return false
}

// EventPublisher returns nil.
func (c *NATSComponents) EventPublisher() intsync.EventPublisher {
	return nil
}
