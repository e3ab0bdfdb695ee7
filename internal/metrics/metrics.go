// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

// Package metrics exposes Prometheus instrumentation for connections, frames,
// broker traffic, fanout, presence and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// Connection Metrics
	ConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_connections_active",
			Help: "Number of open client connections",
		},
		[]string{"endpoint"}, // "chat", "watch"
	)

	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_connections_total",
			Help: "Total number of accepted client connections",
		},
		[]string{"endpoint"},
	)

	ConnectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_connection_duration_seconds",
			Help:    "Lifetime of client connections in seconds",
			Buckets: []float64{1, 10, 60, 300, 900, 3600, 14400},
		},
		[]string{"endpoint"},
	)

	// Frame Metrics
	FramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_frames_received_total",
			Help: "Total number of inbound frames by type",
		},
		[]string{"endpoint", "type"},
	)

	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_frames_dropped_total",
			Help: "Total number of inbound frames dropped",
		},
		[]string{"endpoint", "reason"}, // "malformed", "unknown_type", "persistence"
	)

	// Broker Metrics
	BrokerPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_broker_publishes_total",
			Help: "Total number of broker publishes by channel kind and result",
		},
		[]string{"kind", "result"}, // kind: "chat", "reaction"
	)

	BrokerPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_broker_publish_duration_seconds",
			Help:    "Broker publish latency in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"kind"},
	)

	BrokerSubscriptionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_broker_subscriptions_active",
			Help: "Number of broker channels this instance is subscribed to",
		},
	)

	BrokerCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_broker_circuit_state",
			Help: "Broker publish circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Fanout Metrics
	FanoutDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_fanout_deliveries_total",
			Help: "Total number of broker events handed to local connections",
		},
		[]string{"kind", "result"}, // result: "ok", "error", "no_route"
	)

	// Presence Metrics
	PresenceOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_presence_operations_total",
			Help: "Total number of presence store operations",
		},
		[]string{"operation", "result"}, // operation: "set_online", "renew", "clear"
	)

	// Persistence Metrics
	PersistenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_persistence_errors_total",
			Help: "Total number of failed persistence calls",
		},
		[]string{"operation"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_api_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_api_request_duration_seconds",
			Help:    "HTTP API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// ConnectionOpened records a newly accepted connection.
func ConnectionOpened(endpoint string) {
	ConnectionsTotal.WithLabelValues(endpoint).Inc()
	ConnectionsActive.WithLabelValues(endpoint).Inc()
}

// ConnectionClosed records the end of a connection and its lifetime.
func ConnectionClosed(endpoint string, lifetime time.Duration) {
	ConnectionsActive.WithLabelValues(endpoint).Dec()
	ConnectionDuration.WithLabelValues(endpoint).Observe(lifetime.Seconds())
}

// RecordFrame counts an inbound frame.
func RecordFrame(endpoint, frameType string) {
	FramesReceived.WithLabelValues(endpoint, frameType).Inc()
}

// RecordDrop counts an inbound frame that was not acted on.
func RecordDrop(endpoint, reason string) {
	FramesDropped.WithLabelValues(endpoint, reason).Inc()
}

// RecordPublish records a broker publish attempt.
func RecordPublish(kind string, duration time.Duration, err error) {
	BrokerPublishes.WithLabelValues(kind, result(err)).Inc()
	BrokerPublishDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordFanout records the outcome of handing a broker event to local connections.
func RecordFanout(kind, outcome string, n int) {
	FanoutDeliveries.WithLabelValues(kind, outcome).Add(float64(n))
}

// RecordPresence records a presence store operation.
func RecordPresence(operation string, err error) {
	PresenceOperations.WithLabelValues(operation, result(err)).Inc()
}

// RecordPersistenceError counts a failed persistence call.
func RecordPersistenceError(operation string) {
	PersistenceErrors.WithLabelValues(operation).Inc()
}

// statusSwitchingProtocols is the status label of a WebSocket upgrade.
const statusSwitchingProtocols = "101"

// RecordAPIRequest records an HTTP API request. An upgraded request is
// counted but not timed: its duration is the connection lifetime, which
// ConnectionClosed records.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	if status == statusSwitchingProtocols {
		return
	}
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
