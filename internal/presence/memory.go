// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package presence

import (
	"context"
	"time"

	"github.com/tomtom215/anoprelay/internal/cache"
)

// MemoryStore keeps presence in process memory. Only suitable for a single
// instance, since other instances cannot see it.
type MemoryStore struct {
	entries *cache.Cache[struct{}]
}

// NewMemoryStore creates a memory store. A nil clock means time.Now.
func NewMemoryStore(clock cache.Clock) *MemoryStore {
	return &MemoryStore{entries: cache.New[struct{}](time.Minute, clock)}
}

// SetOnline implements Store.
func (m *MemoryStore) SetOnline(_ context.Context, userID int64, ttl time.Duration) error {
	if err := checkTTL(ttl); err != nil {
		return err
	}
	m.entries.SetWithTTL(Key(userID), struct{}{}, ttl)
	return nil
}

// Renew implements Store.
func (m *MemoryStore) Renew(ctx context.Context, userID int64, ttl time.Duration) error {
	return m.SetOnline(ctx, userID, ttl)
}

// Clear implements Store.
func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.entries.Delete(Key(userID))
	return nil
}

// IsOnline implements Reader.
func (m *MemoryStore) IsOnline(_ context.Context, userID int64) (bool, error) {
	_, ok := m.entries.Get(Key(userID))
	return ok, nil
}

// TTL returns the remaining lifetime of the user's presence key.
func (m *MemoryStore) TTL(userID int64) time.Duration {
	return m.entries.TTL(Key(userID))
}

// Close stops the expiry sweep.
func (m *MemoryStore) Close() error {
	m.entries.Close()
	return nil
}
