// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
Package metrics provides Prometheus metrics for Fritzcall.

Collectors are registered with the default registry through promauto and are
exposed at /metrics by the api package.

# Available Metrics

Call monitor (label: device):
  - callmonitor_lines_total, callmonitor_events_total{kind}
  - callmonitor_parse_failures_total
  - callmonitor_reader_state, callmonitor_reconnect_attempts_total
  - callmonitor_reconnect_exhausted_total

History polling (label: device):
  - history_poll_duration_seconds, history_poll_cycles_total{result}
  - history_fetch_errors_total{action}, history_service_fallbacks_total{action,service}
  - history_records_skipped_total{action}, history_poll_last_success_timestamp

Merge store (label: device):
  - store_calls, store_voicemails, store_inserts_total{source,result}
  - store_evictions_total

Other:
  - tr064_request_duration_seconds{action,result}
  - api_requests_total, api_request_duration_seconds
  - websocket_connections, websocket_messages_sent_total, websocket_messages_dropped_total
  - circuit_breaker_state, circuit_breaker_requests_total, circuit_breaker_state_transitions_total
  - events_published_total{device,result}
  - app_info{version,go_version}
*/
package metrics
