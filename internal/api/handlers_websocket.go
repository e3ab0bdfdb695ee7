// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/anoprelay/internal/auth"
	"github.com/tomtom215/anoprelay/internal/config"
	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/relay"
	ws "github.com/tomtom215/anoprelay/internal/websocket"
)

// PostIDQueryParam names the watched post on /watchPost.
const PostIDQueryParam = "postId"

// Chat upgrades to the chat connection of the identified user. The handler
// blocks until the connection ends.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if h.chat == nil || h.hub == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "Chat service unavailable", nil)
		return
	}

	userID, err := h.identity.Identify(r)
	if err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Chat connection rejected: no valid identity")
		respondIdentityError(w, r, err)
		return
	}

	h.serveConnection(w, r, relay.EndpointChat, "user_id", userID, h.chat.Connection(userID))
}

// WatchPost upgrades to a reaction connection watching one post. In jwt mode
// a valid token is also required.
func (h *Handler) WatchPost(w http.ResponseWriter, r *http.Request) {
	if h.reactions == nil || h.hub == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "Reaction service unavailable", nil)
		return
	}

	postID, err := auth.ParseID(r.URL.Query().Get(PostIDQueryParam))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "postId must be a positive integer", nil)
		return
	}
	// In jwt mode inbound toggles act for the token user.
	var viewerID int64
	if h.identity.Mode() == config.AuthModeJWT {
		viewerID, err = h.identity.Identify(r)
		if err != nil {
			respondIdentityError(w, r, err)
			return
		}
	}

	h.serveConnection(w, r, relay.EndpointWatch, "post_id", postID, h.reactions.ConnectionAs(postID, viewerID))
}

// serveConnection upgrades r and runs handler on the connection until it
// ends. The connection outlives the request context, so it runs on a
// detached context carrying the request's correlation ID.
func (h *Handler) serveConnection(w http.ResponseWriter, r *http.Request, endpoint, idField string, id int64, handler ws.Handler) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Str("endpoint", endpoint).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, endpoint, h.wsConfig)
	ctx, logger := logging.ForConnection(context.WithoutCancel(r.Context()), endpoint, client.ID())
	logger = logger.With().Int64(idField, id).Logger()
	ctx = logging.ContextWithLogger(ctx, logger)

	if err := client.Run(ctx, handler); err != nil {
		if errors.Is(err, ws.ErrHubClosed) {
			logger.Debug().Msg("Connection refused during shutdown")
			return
		}
		logger.Warn().Err(err).Msg("Connection setup failed")
	}
}

func respondIdentityError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrMissingIdentity) {
		respondError(w, r, http.StatusUnauthorized, CodeUnauthorized, "A user identity is required", nil)
		return
	}
	respondError(w, r, http.StatusUnauthorized, CodeUnauthorized, "The user identity is invalid", nil)
}
