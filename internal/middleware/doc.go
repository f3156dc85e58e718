// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
Package middleware provides the infrastructure middleware shared by the HTTP
API: request ID propagation and Prometheus instrumentation.

Both are plain func(http.Handler) http.Handler values and mount directly on
a chi router:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

RequestID reuses an incoming X-Request-ID header or generates one, echoes it
back, and seeds the logging context so logging.Ctx(r.Context()) carries
request_id and correlation_id fields.

PrometheusMetrics labels requests by chi route pattern rather than raw path,
keeping series cardinality independent of device IDs. Requests slower than
SlowRequestThreshold are logged at warn level.
*/
package middleware
