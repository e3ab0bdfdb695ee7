// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package presence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultKVBucket is the JetStream bucket holding presence keys.
const DefaultKVBucket = "presence"

// KVStore keeps presence in a NATS JetStream key-value bucket.
//
// JetStream expires entries per bucket, not per key, so every key lives for
// the bucket TTL given to NewKVStore. The ttl argument of SetOnline and Renew
// must match it.
type KVStore struct {
	kv  jetstream.KeyValue
	ttl time.Duration
}

// NewKVStore creates or updates the bucket and returns a store on it.
func NewKVStore(ctx context.Context, nc *nats.Conn, bucket string, ttl time.Duration) (*KVStore, error) {
	if err := checkTTL(ttl); err != nil {
		return nil, err
	}
	if bucket == "" {
		bucket = DefaultKVBucket
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("presence: jetstream: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "user presence",
		TTL:         ttl,
		History:     1,
		Storage:     jetstream.MemoryStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("presence: kv bucket %s: %w", bucket, err)
	}
	return &KVStore{kv: kv, ttl: ttl}, nil
}

// kvKey maps a presence key onto the KV key alphabet, which has no ':'.
// User 7 is stored as user.7.online.
func kvKey(userID int64) string {
	return strings.ReplaceAll(Key(userID), ":", ".")
}

func (s *KVStore) put(ctx context.Context, userID int64, ttl time.Duration) error {
	if err := checkTTL(ttl); err != nil {
		return err
	}
	if ttl != s.ttl {
		return fmt.Errorf("presence: kv ttl %v differs from bucket ttl %v", ttl, s.ttl)
	}
	if _, err := s.kv.Put(ctx, kvKey(userID), []byte("1")); err != nil {
		return fmt.Errorf("presence: kv put %s: %w", kvKey(userID), err)
	}
	return nil
}

// SetOnline implements Store.
func (s *KVStore) SetOnline(ctx context.Context, userID int64, ttl time.Duration) error {
	return s.put(ctx, userID, ttl)
}

// Renew implements Store. A new revision restarts the bucket TTL.
func (s *KVStore) Renew(ctx context.Context, userID int64, ttl time.Duration) error {
	return s.put(ctx, userID, ttl)
}

// Clear implements Store.
func (s *KVStore) Clear(ctx context.Context, userID int64) error {
	if err := s.kv.Delete(ctx, kvKey(userID)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("presence: kv delete %s: %w", kvKey(userID), err)
	}
	return nil
}

// IsOnline implements Reader.
func (s *KVStore) IsOnline(ctx context.Context, userID int64) (bool, error) {
	_, err := s.kv.Get(ctx, kvKey(userID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, jetstream.ErrKeyNotFound), errors.Is(err, jetstream.ErrKeyDeleted):
		return false, nil
	default:
		return false, fmt.Errorf("presence: kv get %s: %w", kvKey(userID), err)
	}
}

// Close is a no-op; the NATS connection belongs to the caller.
func (s *KVStore) Close() error {
	return nil
}
