// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/tomtom215/anoprelay/internal/logging"
)

// ErrHubClosed is returned when a client starts after the hub shut down.
var ErrHubClosed = errors.New("websocket: hub closed")

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub tracks every live client of the process so they can be counted and
// closed together on shutdown. Routing lives in the registries, not here.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint64]*Client
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[uint64]*Client)}
}

func (h *Hub) add(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.clients[c.id] = c
	return nil
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CountByEndpoint returns the number of connected clients per endpoint.
func (h *Hub) CountByEndpoint() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]int)
	for _, c := range h.clients {
		out[c.endpoint]++
	}
	return out
}

// RunWithContext blocks until ctx ends, then closes every client and
// refuses new ones. It is designed for use with suture supervision; a
// restarted hub accepts clients again.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.mu.Lock()
	h.closed = false
	h.mu.Unlock()

	<-ctx.Done()
	h.logGracefulShutdown(ctx)
	return ctx.Err()
}

// logGracefulShutdown closes all clients and logs the shutdown. ctx.Err()
// is not logged as an error because cancellation is the normal path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	closed := h.closeAllClients()
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients closes clients in ID order and marks the hub closed.
func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, c := range clients {
		c.Close()
	}
	return len(clients)
}
