// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
Package supervisor runs every long-lived component of fritzcall under a
suture v4 supervision tree.

# Hierarchy

	fritzcall
	├── ingest-layer
	│   └── device/<device>
	│       ├── monitor-reader/<device>      call monitor stream (port 1012)
	│       ├── snapshot-forwarder/<device>  store snapshots to the websocket hub
	│       └── history-poller/<device>      TR-064 call list reconciliation
	│           or retention-sweeper/<device> when history is disabled
	├── messaging-layer
	│   ├── websocket-hub
	│   └── nats-components              only when NATS is enabled
	└── api-layer
	    └── http-server

Failures are isolated per layer: a device whose reader keeps dropping is
restarted with backoff inside the ingest layer while the API keeps serving
the merged state it already has.

# Terminal Failures

A reader that exhausts its reconnect policy returns an error wrapping
sync.ErrReconnectExhausted. The device service wrapper turns that into
suture.ErrDoNotRestart, so the reader stays in the failed state and the
history poller alone keeps the device current.

# Usage

	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddDevices(manager)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)

Supervisor events are logged through sutureslog using the slog bridge from
internal/logging, so they share the zerolog output of the rest of the
process.
*/
package supervisor
