// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/anoprelay/internal/config"
	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/presence"
)

// initPresence opens the configured presence backend. The nats driver puts
// a KV bucket on the broker connection nc.
func initPresence(ctx context.Context, cfg *config.Config, nc *nats.Conn) (presence.Backend, error) {
	p := cfg.Presence
	var (
		backend presence.Backend
		err     error
	)

	switch p.Driver {
	case config.DriverNATS:
		if nc == nil {
			return nil, errors.New("presence: nats driver needs the nats broker")
		}
		backend, err = presence.NewKVStore(ctx, nc, p.KVBucket, p.TTL)
	case config.DriverRedis:
		backend, err = presence.DialRedis(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case config.DriverBadger:
		backend, err = presence.OpenBadger(p.BadgerPath)
	default:
		logging.Warn().Msg("In-memory presence selected: other instances cannot see this instance's users")
		backend = presence.NewMemoryStore(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("initialize presence (%s): %w", p.Driver, err)
	}

	logging.Info().Str("driver", p.Driver).Dur("ttl", p.TTL).Dur("renew_interval", p.RenewInterval).Msg("Presence backend ready")
	return backend, nil
}
