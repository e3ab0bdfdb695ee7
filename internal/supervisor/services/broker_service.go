// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package services

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/anoprelay/internal/logging"
)

// EmbeddedServer is satisfied by *broker.EmbeddedServer.
type EmbeddedServer interface {
	Running() bool
	Shutdown()
}

// EmbeddedBrokerService owns the lifecycle of an in-process NATS server
// that was started before the tree so clients could connect to it.
//
// The server cannot be restarted in place: connected clients hold its URL
// and JetStream state. If it stops on its own the service terminates the
// supervisor tree so the process exits and its orchestrator restarts it.
type EmbeddedBrokerService struct {
	server        EmbeddedServer
	checkInterval time.Duration
	name          string
}

// NewEmbeddedBrokerService wraps server. A non-positive checkInterval uses 5s.
func NewEmbeddedBrokerService(server EmbeddedServer, checkInterval time.Duration) *EmbeddedBrokerService {
	if checkInterval <= 0 {
		checkInterval = 5 * time.Second
	}
	return &EmbeddedBrokerService{
		server:        server,
		checkInterval: checkInterval,
		name:          "embedded-nats",
	}
}

// Serve implements suture.Service.
func (s *EmbeddedBrokerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.server.Shutdown()
			logging.Info().Msg("Embedded NATS server stopped")
			return ctx.Err()
		case <-ticker.C:
			if !s.server.Running() {
				logging.Error().Msg("Embedded NATS server stopped unexpectedly")
				return suture.ErrTerminateSupervisorTree
			}
		}
	}
}

// String identifies the service in supervisor events.
func (s *EmbeddedBrokerService) String() string {
	return s.name
}
