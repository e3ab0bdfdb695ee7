// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/anoprelay/internal/middleware"
	"github.com/tomtom215/anoprelay/internal/models"
)

// readinessTimeout bounds each dependency ping.
const readinessTimeout = 2 * time.Second

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			RequestID: middleware.GetRequestID(r.Context()),
		},
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 200 OK only if the database and broker answer a ping. A broker
// whose circuit is open counts as down even before its ping fails.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatus{
		Status: "ok",
		Checks: make(map[string]string, 2),
	}

	check := func(name string, p Pinger) {
		if p == nil {
			status.Checks[name] = "disabled"
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			status.Checks[name] = "down"
			status.Status = "degraded"
			return
		}
		status.Checks[name] = "up"
	}
	check("database", h.db)
	check("broker", h.broker)

	if b, ok := h.broker.(breakerState); ok {
		status.BrokerState = b.State()
		if status.BrokerState == "open" {
			status.Checks["broker"] = "down"
			status.Status = "degraded"
		}
	}
	if h.hub != nil {
		status.Connections = h.hub.CountByEndpoint()
	}

	code := http.StatusOK
	apiStatus := "success"
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
		apiStatus = "error"
	}
	respondJSON(w, code, &models.APIResponse{
		Status: apiStatus,
		Data:   status,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			RequestID: middleware.GetRequestID(r.Context()),
		},
	})
}
