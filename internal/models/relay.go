// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

// Package models defines the JSON shapes of the relay's REST surface.
//
// Chat messages are served as store.Message and reaction snapshots as
// envelope.Snapshot, so REST and sockets share one wire form.
package models

// PresenceStatus answers whether a user currently holds a live connection
// on any instance.
type PresenceStatus struct {
	UserID   int64 `json:"userId"`
	IsOnline bool  `json:"isOnline"`
}

// EngagementResult reports the outcome of an engagement mutation. Changed is
// false when the mutation was a no-op, such as a repeated like.
type EngagementResult struct {
	PostID  int64 `json:"postId"`
	Changed bool  `json:"changed"`
}

// HealthStatus is the readiness report.
type HealthStatus struct {
	Status      string            `json:"status"` // "ok" or "degraded"
	Checks      map[string]string `json:"checks"`
	Connections map[string]int    `json:"connections"`
	BrokerState string            `json:"broker_circuit,omitempty"`
}
