// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

//go:build !nats

package main

import (
	"github.com/tomtom215/fritzcall/internal/supervisor"
)

// AddNATSToSupervisor does nothing without the nats build tag.
func AddNATSToSupervisor(_ *supervisor.SupervisorTree, _ *NATSComponents) {}
