// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps presence keys in Redis with SET EX.
type RedisStore struct {
	client redis.UniversalClient
	owned  bool
}

// NewRedisStore wraps an existing client. Close does not close a client it
// did not create.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, opts *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("presence: redis ping %s: %w", opts.Addr, err)
	}
	return &RedisStore{client: client, owned: true}, nil
}

// SetOnline implements Store.
func (r *RedisStore) SetOnline(ctx context.Context, userID int64, ttl time.Duration) error {
	if err := checkTTL(ttl); err != nil {
		return err
	}
	if err := r.client.Set(ctx, Key(userID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("presence: set %s: %w", Key(userID), err)
	}
	return nil
}

// Renew implements Store. SET with a TTL both extends a live key and
// restores one that lapsed between heartbeats, which EXPIRE would not.
func (r *RedisStore) Renew(ctx context.Context, userID int64, ttl time.Duration) error {
	return r.SetOnline(ctx, userID, ttl)
}

// Clear implements Store.
func (r *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("presence: del %s: %w", Key(userID), err)
	}
	return nil
}

// IsOnline implements Reader.
func (r *RedisStore) IsOnline(ctx context.Context, userID int64) (bool, error) {
	n, err := r.client.Exists(ctx, Key(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("presence: exists %s: %w", Key(userID), err)
	}
	return n > 0, nil
}

// Close closes the client if this store created it.
func (r *RedisStore) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}
