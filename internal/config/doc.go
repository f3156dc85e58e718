// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
Package config loads fritzcall configuration with koanf v2.

# Sources

Later sources override earlier ones:

  - Built-in defaults (koanf structs provider)
  - YAML file from CONFIG_PATH, or config.yaml / /etc/fritzcall/config.yaml
  - Environment variables with an explicit name mapping

# Environment Variables

Device (single-device mode):
  - FRITZ_HOST: host name or IP of the Fritz!Box (required)
  - FRITZ_USERNAME, FRITZ_PASSWORD: TR-064 credentials
  - FRITZ_MONITOR_PORT: call monitor port (default: 1012)
  - FRITZ_TR064_PORT: TR-064 port (default: 49000), FRITZ_TR064_TLS
  - HISTORY_ENABLED: poll the TR-064 call list (default: true)
  - POLL_INTERVAL: history poll interval (default: 1h)
  - VOICEMAIL_ENABLED: also poll the answering machine (default: false)
  - RETENTION_DAYS: calls older than this are swept (default: 60)
  - RECONNECT_MAX_ATTEMPTS (default: 50), RECONNECT_INITIAL_DELAY (1s),
    RECONNECT_MAX_DELAY (120s), READ_TIMEOUT (10s)
  - CALL_NUMBER_FIELDS: fields checked for the remote number of an outgoing
    CALL line (default: 3,4)
  - TIMEZONE: IANA zone of the box's timestamps (default: local)

HTTP server:
  - HTTP_HOST (default: 0.0.0.0), HTTP_PORT (default: 8780)
  - HTTP_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT, HTTP_REFRESH_TIMEOUT
  - HTTP_CORS_ORIGINS: comma-separated
  - HTTP_RATE_LIMIT_REQS, HTTP_RATE_LIMIT_WINDOW, HTTP_DISABLE_RATE_LIMIT

NATS (binaries built with -tags nats):
  - NATS_ENABLED, NATS_URL, NATS_STREAM, NATS_SUBJECT_PREFIX,
    NATS_RETENTION_DAYS, NATS_DUPLICATE_WINDOW, NATS_RELAY_WEBSOCKET,
    NATS_DURABLE_NAME

Logging:
  - LOG_LEVEL, LOG_FORMAT (json or console), LOG_CALLER

# Multiple Devices

	fritz:
	  username: monitor
	  password: secret
	devices:
	  - id: home
	    host: fritz.box
	  - id: office
	    host: 10.0.0.1
	    history_enabled: false

Entries inherit unset fields from the fritz section. GetDevices returns the
effective list and generates IDs for entries without one.

# Validation

Validate runs the struct tags of DeviceConfig through internal/validation
and then the cross-field checks (credentials for history polling, reconnect
delays, unique IDs, NATS subject safety).
*/
package config
