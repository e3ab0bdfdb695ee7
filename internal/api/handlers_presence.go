// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/anoprelay/internal/auth"
	"github.com/tomtom215/anoprelay/internal/models"
)

// Presence reports whether a user holds a live chat connection on any
// instance. It reads the shared presence store, so a user is online until
// their key expires even if the instance holding them crashed.
func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := auth.ParseID(chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "userId must be a positive integer", nil)
		return
	}

	online, err := h.presence.IsOnline(r.Context(), userID)
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, CodePresence, "Presence store unavailable", err)
		return
	}
	respondSuccess(w, r, models.PresenceStatus{UserID: userID, IsOnline: online}, start, nil)
}
