// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

// Package presence records which users currently hold a live chat connection.
//
// A user is online while the key user:<id>:online exists in the shared
// presence store. The key is written with a TTL when the connection opens,
// rewritten by a Heartbeat at a shorter interval, and deleted on close. A
// crashed instance stops renewing, so its users fall offline after one TTL.
//
// Backends:
//   - RedisStore: SET EX / DEL on a shared Redis
//   - KVStore: NATS JetStream key-value bucket with a bucket-level TTL. KV
//     keys cannot contain ':', so the key is stored as user.<id>.online
//   - BadgerStore: embedded Badger, single node
//   - MemoryStore: in-process TTL map, single node and tests
package presence

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"
)

// Default timings. The renew interval must stay below the TTL.
const (
	DefaultTTL           = 60 * time.Second
	DefaultRenewInterval = 30 * time.Second
)

// ErrInvalidTTL is returned when a non-positive TTL is requested.
var ErrInvalidTTL = errors.New("presence: ttl must be positive")

// Store is the write side used by the connection lifecycle.
type Store interface {
	// SetOnline writes the presence key with ttl.
	SetOnline(ctx context.Context, userID int64, ttl time.Duration) error

	// Renew extends the presence key to ttl from now. If the key already
	// lapsed it is written again.
	Renew(ctx context.Context, userID int64, ttl time.Duration) error

	// Clear deletes the presence key. Clearing an absent key succeeds.
	Clear(ctx context.Context, userID int64) error
}

// Reader answers whether a user is online.
type Reader interface {
	IsOnline(ctx context.Context, userID int64) (bool, error)
}

// Backend is a presence store with both sides and a lifecycle.
type Backend interface {
	Store
	Reader
	io.Closer
}

// Key returns the presence key for userID.
func Key(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":online"
}

func checkTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}
