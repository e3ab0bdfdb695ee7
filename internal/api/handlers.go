// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/anoprelay/internal/auth"
	"github.com/tomtom215/anoprelay/internal/config"
	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/presence"
	"github.com/tomtom215/anoprelay/internal/relay"
	"github.com/tomtom215/anoprelay/internal/store"
	ws "github.com/tomtom215/anoprelay/internal/websocket"
)

// MessageReader serves chat history for clients backfilling after a
// reconnect.
type MessageReader interface {
	MessagesForUser(ctx context.Context, userID int64) ([]store.Message, error)
	MessagesSince(ctx context.Context, userID, lastMessageID int64) ([]store.Message, error)
}

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// breakerState is implemented by brokers guarded by a circuit breaker.
type breakerState interface {
	State() string
}

// Dependencies are the collaborators the handlers serve. Database and
// Broker are only used by the readiness probe.
type Dependencies struct {
	Identity   *auth.Identifier
	Hub        *ws.Hub
	WebSocket  ws.Config
	Chat       *relay.ChatRelay
	Reactions  *relay.ReactionRelay
	Engagement *relay.Engagement
	Messages   MessageReader
	Presence   presence.Reader
	Database   Pinger
	Broker     Pinger
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, upgrader (this file)
//   - handlers_helpers.go: response and request helpers
//   - handlers_websocket.go: chat and watch connections
//   - handlers_messages.go: chat history
//   - handlers_engagement.go: engagement mutations and post metrics
//   - handlers_presence.go: presence query
//   - handlers_health.go: liveness and readiness
type Handler struct {
	config     *config.Config
	identity   *auth.Identifier
	hub        *ws.Hub
	wsConfig   ws.Config
	chat       *relay.ChatRelay
	reactions  *relay.ReactionRelay
	engagement *relay.Engagement
	messages   MessageReader
	presence   presence.Reader
	db         Pinger
	broker     Pinger
	upgrader   websocket.Upgrader
	startTime  time.Time
}

// NewHandler creates a new API handler.
func NewHandler(cfg *config.Config, deps Dependencies) *Handler {
	h := &Handler{
		config:     cfg,
		identity:   deps.Identity,
		hub:        deps.Hub,
		wsConfig:   deps.WebSocket,
		chat:       deps.Chat,
		reactions:  deps.Reactions,
		engagement: deps.Engagement,
		messages:   deps.Messages,
		presence:   deps.Presence,
		db:         deps.Database,
		broker:     deps.Broker,
		startTime:  time.Now(),
	}
	if h.identity == nil {
		h.identity = auth.NewIdentifier(config.AuthModeNone, nil)
	}
	h.upgrader = h.getUpgrader()
	return h
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout against slow clients.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins. Requests
// without an Origin header come from native mobile clients and are allowed;
// browsers always send one.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	// If config is nil, allow by default (fail open for tests/development)
	if h.config == nil {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Ctx(r.Context()).Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// authorizeUser reports whether the caller may act as userID. In jwt mode
// the token's user must match; in none mode the caller is trusted.
func (h *Handler) authorizeUser(r *http.Request, userID int64) bool {
	if h.identity.Mode() != config.AuthModeJWT {
		return true
	}
	caller, ok := auth.UserIDFromContext(r.Context())
	return ok && caller == userID
}

// actingUser returns the user an engagement mutation is applied for. A
// token's user overrides the one named in the body.
func actingUser(r *http.Request, bodyUserID int64) int64 {
	if id, ok := auth.UserIDFromContext(r.Context()); ok {
		return id
	}
	return bodyUserID
}
