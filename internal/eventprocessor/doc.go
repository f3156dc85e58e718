// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
Package eventprocessor carries call events between instances over NATS
JetStream.

Every record that enters a device store is published as a CallEvent to the
subject <prefix>.<device>. The message ID is a UUIDv5 of the change kind and
the call identity, so JetStream's duplicate window absorbs republishing of the
same record after a reconnect or a repeated poll cycle.

Components:

  - Publisher: watermill NATS publisher with a circuit breaker; implements
    sync.EventPublisher.
  - StreamInitializer: creates or updates the stream before use.
  - NewSubscriber and Relay: a durable consumer that forwards events from
    other instances to the local websocket hub.

The NATS parts build only with -tags=nats. Without the tag NewPublisher
returns ErrNATSNotEnabled.
*/
package eventprocessor
