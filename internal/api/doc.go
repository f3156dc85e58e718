// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
Package api serves the read-only HTTP view of every configured device plus
an on-demand refresh and the websocket stream.

Routes:

	GET  /health/live                         process is up
	GET  /health/ready                        a device is streaming or has polled
	GET  /api/v1/devices                      device summaries
	GET  /api/v1/devices/{device}/snapshot    full merged state
	GET  /api/v1/devices/{device}/calls       ?type=incoming|outgoing|missed|unknown&limit=N
	GET  /api/v1/devices/{device}/voicemails  voicemails, newest first
	GET  /api/v1/devices/{device}/live        active connections
	POST /api/v1/devices/{device}/refresh     run one history poll cycle now
	GET  /api/v1/ws                           websocket, ?device= to filter
	GET  /metrics                             Prometheus

Every JSON response uses the models.APIResponse envelope. Query parameters
are validated with the validation package; failures answer 400 with code
VALIDATION_ERROR.

Middleware order is request ID, real IP, panic recovery, Prometheus, CORS,
then per-group rate limits (go-chi/httprate) and security headers. JSON
routes are gzip-compressed; the websocket route is not.
*/
package api
