// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

/*
Package middleware provides HTTP middleware shared by the REST and
WebSocket routes.

Key Components:

  - RequestID: honours or generates X-Request-ID and ties it to the log
    correlation ID
  - PrometheusMetrics: request count and latency per chi route pattern

Both are chi-style func(http.Handler) http.Handler values:

	r.Use(middleware.RequestID)
	r.With(middleware.PrometheusMetrics).Get("/chat", h.Chat)

PrometheusMetrics wraps the writer with chi's WrapResponseWriter, which
keeps http.Hijacker available so WebSocket upgrades pass through it.
*/
package middleware
