// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package middleware provides the HTTP middleware shared by the task API.

Key Components:

  - RequestID: reuses or assigns X-Request-ID and seeds the logging context
  - PrometheusMetrics: request counts and latency labelled by route pattern

Both are plain func(http.Handler) http.Handler values and plug into chi:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

PrometheusMetrics labels requests with the matched chi route pattern
("/api/v1/tasks/{task_id}") rather than the raw path, so task ids never
become label values.
*/
package middleware
