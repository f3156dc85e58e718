// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
Package websocket pushes device state to browser clients.

The Hub fans out four message types:

	snapshot      full store snapshot after every change
	live_state    current call state of every connection
	reader_state  call monitor connection state
	call_event    a record that entered a store (local or via NATS)

Every message carries the device it belongs to. A client connected with
?device=<id>, or one that sent {"type":"subscribe","data":{"device":"<id>"}},
only receives that device's messages plus messages with no device.

Clients whose send buffer fills up are disconnected rather than slowing the
hub down. Clients may send {"type":"ping"} and receive {"type":"pong"}.

BroadcastRaw accepts a JSON-encoded call event, which is how events relayed
from the message bus reach the hub.
*/
package websocket
