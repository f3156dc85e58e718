// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

// Package testinfra provides test servers for fritzcall.
//
// FakeCallMonitor is an in-process TCP server speaking the call monitor
// protocol. It needs nothing but a loopback socket and is used by end to end
// tests of the reader.
//
// With the integration build tag, NewNATSContainer starts a JetStream
// enabled NATS server through testcontainers-go. These tests need Docker and
// are skipped when it is unavailable:
//
//	go test -tags "integration nats" ./...
package testinfra
