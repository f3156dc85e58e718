// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

//go:build nats

package main

import (
	"github.com/tomtom215/fritzcall/internal/logging"
	"github.com/tomtom215/fritzcall/internal/supervisor"
	"github.com/tomtom215/fritzcall/internal/supervisor/services"
)

// AddNATSToSupervisor adds the NATS components to the messaging layer. It
// is a no-op when natsComponents is nil.
func AddNATSToSupervisor(tree *supervisor.SupervisorTree, natsComponents *NATSComponents) {
	if natsComponents == nil {
		return
	}
	tree.AddMessagingService(services.NewNATSComponentsService(natsComponents))
	logging.Info().Msg("NATS components added to supervisor tree (messaging layer)")
}
