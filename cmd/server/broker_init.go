// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package main

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/anoprelay/internal/broker"
	"github.com/tomtom215/anoprelay/internal/config"
	"github.com/tomtom215/anoprelay/internal/logging"
)

// brokerComponents holds the broker and what it runs on.
type brokerComponents struct {
	// broker is the circuit-guarded transport every relay publishes through.
	broker *broker.Guarded

	// embedded is the in-process NATS server, if any.
	embedded *broker.EmbeddedServer

	// natsConn is the NATS connection, shared with the KV presence backend.
	// Nil unless the nats driver is selected.
	natsConn *nats.Conn
}

// initBroker connects the configured transport. With the nats driver and
// embedded mode, an in-process server is started first; JetStream is
// enabled on it when presence lives in NATS KV.
func initBroker(ctx context.Context, cfg *config.Config) (*brokerComponents, error) {
	c := &brokerComponents{}
	var raw broker.Broker

	switch cfg.Broker.Driver {
	case config.DriverNATS:
		url := cfg.Broker.NATSURL
		if cfg.Broker.Embedded {
			srv, err := broker.StartEmbedded(broker.EmbeddedConfig{
				Host:      cfg.Broker.EmbeddedHost,
				Port:      cfg.Broker.EmbeddedPort,
				JetStream: cfg.Presence.Driver == config.DriverNATS,
				StoreDir:  cfg.Broker.StoreDir,
			})
			if err != nil {
				return nil, fmt.Errorf("start embedded NATS: %w", err)
			}
			c.embedded = srv
			url = srv.ClientURL()
			logging.Info().Str("url", url).Msg("Embedded NATS server started")
		}
		nb, err := broker.ConnectNATS(url, "anoprelay")
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect NATS: %w", err)
		}
		c.natsConn = nb.Conn()
		raw = nb

	case config.DriverRedis:
		rb, err := broker.DialRedis(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect Redis broker: %w", err)
		}
		raw = rb

	default:
		logging.Warn().Msg("In-memory broker selected: messages reach only this instance")
		raw = broker.NewMemory()
	}

	bc := broker.DefaultBreakerConfig()
	if cfg.Broker.BreakerFailureThreshold > 0 {
		bc.FailureThreshold = cfg.Broker.BreakerFailureThreshold
	}
	if cfg.Broker.BreakerInterval > 0 {
		bc.Interval = cfg.Broker.BreakerInterval
	}
	if cfg.Broker.BreakerTimeout > 0 {
		bc.Timeout = cfg.Broker.BreakerTimeout
	}
	c.broker = broker.NewGuarded(raw, bc)

	logging.Info().Str("driver", cfg.Broker.Driver).Msg("Broker connected")
	return c, nil
}

// Close closes the broker connection, then stops the embedded server.
// Stopping an already stopped server is a no-op.
func (c *brokerComponents) Close() {
	if c.broker != nil {
		if err := c.broker.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing broker")
		}
	}
	if c.embedded != nil {
		c.embedded.Shutdown()
	}
}
