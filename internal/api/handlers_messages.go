// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/anoprelay/internal/auth"
	"github.com/tomtom215/anoprelay/internal/store"
)

// GetMessages returns every message the user sent or received, oldest first.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := auth.ParseID(chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "userId must be a positive integer", nil)
		return
	}
	if !h.authorizeUser(r, userID) {
		respondError(w, r, http.StatusForbidden, CodeForbidden, "Cannot read another user's messages", nil)
		return
	}

	messages, err := h.messages.MessagesForUser(r.Context(), userID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodePersistence, "Failed to fetch messages", err)
		return
	}
	respondMessages(w, r, messages, start)
}

// GetMessagesSince returns the user's messages with an id greater than
// lastMessageId, in id order. The user and cursor come from the query, or
// from the path and query on the versioned route.
func (h *Handler) GetMessagesSince(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	rawUser := chi.URLParam(r, "userId")
	if rawUser == "" {
		rawUser = r.URL.Query().Get("userId")
	}
	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "userId must be an integer", nil)
		return
	}
	lastID, err := strconv.ParseInt(r.URL.Query().Get("lastMessageId"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "lastMessageId must be an integer", nil)
		return
	}

	req := MessagesSinceRequest{UserID: userID, LastMessageID: lastID}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, apiErr)
		return
	}
	if !h.authorizeUser(r, req.UserID) {
		respondError(w, r, http.StatusForbidden, CodeForbidden, "Cannot read another user's messages", nil)
		return
	}

	messages, err := h.messages.MessagesSince(r.Context(), req.UserID, req.LastMessageID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodePersistence, "Failed to fetch messages", err)
		return
	}
	respondMessages(w, r, messages, start)
}

func respondMessages(w http.ResponseWriter, r *http.Request, messages []store.Message, start time.Time) {
	if messages == nil {
		messages = []store.Message{}
	}
	count := len(messages)
	respondSuccess(w, r, messages, start, &count)
}
