// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
Command server runs fritzcall: it follows the call monitor of one or more
AVM Fritz!Box devices, reconciles it with the TR-064 call history and serves
the merged call list over HTTP and WebSocket.

# Process Layout

	fritzcall
	├── ingest-layer
	│   └── device/<id>
	│       ├── monitor-reader/<id>      call monitor stream (TCP port 1012)
	│       ├── snapshot-forwarder/<id>  store snapshots to the websocket hub
	│       └── history-poller/<id>      TR-064 history and voicemail poll
	│           or retention-sweeper/<id> (monitor-only devices)
	├── messaging-layer
	│   ├── websocket-hub
	│   └── nats-components (optional, -tags nats)
	└── api-layer
	    └── http-server

# Configuration

Settings are loaded with koanf from built-in defaults, then a YAML file
(config.yaml, /etc/fritzcall/config.yaml or CONFIG_PATH), then environment
variables. The most common variables:

	FRITZ_HOST            device host name or address
	FRITZ_USERNAME        TR-064 user
	FRITZ_PASSWORD        TR-064 password (required with history polling)
	HISTORY_ENABLED       poll the call history (default true)
	POLL_INTERVAL         history poll interval (default 1h)
	VOICEMAIL_ENABLED     also sync the answering machine
	HTTP_PORT             API port (default 8780)
	NATS_ENABLED          publish call events to JetStream
	LOG_LEVEL             trace, debug, info, warn, error

Several devices are configured with a devices list in the YAML file; every
entry inherits unset values from the fritz section.

Changes to the config file's log level are applied without a restart.

# Build Tags

	go build ./cmd/server               # call events stay in-process
	go build -tags nats ./cmd/server    # publish to NATS JetStream

# Signals

SIGINT and SIGTERM stop the supervisor tree. The HTTP server drains for
HTTP_SHUTDOWN_TIMEOUT, readers close their connections and pollers finish
their current cycle.
*/
package main
