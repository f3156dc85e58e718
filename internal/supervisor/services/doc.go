// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
Package services adapts fritzcall components to suture.Service.

  - HTTPServerService: ListenAndServe plus graceful Shutdown on cancel.
  - WebSocketHubService: runs the hub loop until the context ends.
  - NATSComponentsService: Start, wait, Shutdown with a bounded timeout.
  - DeviceService: per-device readers, pollers and forwarders. Errors
    listed as terminal, and a clean return, stop the supervisor from
    restarting the service.

Every wrapper implements fmt.Stringer so supervisor logs name the service.
*/
package services
