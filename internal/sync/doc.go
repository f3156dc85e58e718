// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
Package sync ingests call data from a Fritz!Box and merges it into a store.

Two independent sources feed each device's store:

  - Live: the call monitor on TCP port 1012 streams one line per event
    (RING, CALL, CONNECT, DISCONNECT). StreamReader reads it, Parser turns
    lines into Events, and every RING, CALL and DISCONNECT becomes a live
    CallRecord.
  - History: HistoryPoller calls GetCallList (and optionally
    GetMessageList) over TR-064 once per interval. HistoryParser turns the
    list documents into history records and voicemails.

The store reconciles both. A history record replaces a live record with
the same identity, everything else is an idempotent insert.

Call Monitor Stream:

StreamReader moves through Disconnected, Connecting, Streaming and
Reconnecting. Each read is bounded by ReadTimeout; a timeout is not an
error but triggers a liveness check of the connection. Lost connections
are retried with exponential backoff (ReconnectPolicy). Once the policy is
exhausted the reader enters Failed and Serve returns an error wrapping
ErrReconnectExhausted.

CONNECT never reaches the store. LiveTracker folds every event into the
current per-connection state (ringing, dialing, talking) for the API.

History Poll Cycle:

The call and message list actions are tried against each service variant
in order (X_AVM-DE_OnTel:2, then :1). A variant that fails is logged and
the next is tried; only when every variant fails does the cycle report a
*FetchError. The retention sweep runs only after a successful call list
fetch. BreakerCaller wraps the TR-064 client with a circuit breaker.

Manager:

Manager holds one Device per configured Fritz!Box and forwards snapshots,
live state and reader state to the WebSocket hub. Records entering a store
are published as CallEvents when an EventPublisher is set.

Thread Safety:

All exported types are safe for concurrent use. Callbacks run on the
reader or poller goroutine, never under a lock.
*/
package sync
