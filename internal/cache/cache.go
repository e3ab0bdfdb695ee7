// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

// Package cache provides a thread-safe in-memory map whose entries expire
// after a per-entry TTL. It backs the single-node presence store.
package cache

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fake clock.
type Clock func() time.Time

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL map. Expired entries are invisible to Get immediately and
// are reclaimed by a periodic sweep.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	now     Clock

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a cache and starts a sweep every cleanupInterval. A zero
// interval disables the sweep. A nil clock means time.Now.
func New[V any](cleanupInterval time.Duration, clock Clock) *Cache[V] {
	if clock == nil {
		clock = time.Now
	}
	c := &Cache[V]{
		entries: make(map[string]entry[V]),
		now:     clock,
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.cleanupLoop(cleanupInterval)
	}
	return c
}

// SetWithTTL stores value under key, replacing any previous entry and its
// expiry.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Get returns the value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok || !c.now().Before(e.expiresAt) {
		return zero, false
	}
	return e.value, true
}

// TTL returns the remaining lifetime of key, or zero when absent or expired.
func (c *Cache[V]) TTL(key string) time.Duration {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return 0
	}
	if d := e.expiresAt.Sub(c.now()); d > 0 {
		return d
	}
	return 0
}

// Delete removes key. Deleting an absent key is a no-op.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes expired entries and returns how many were removed.
func (c *Cache[V]) Cleanup() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Close stops the background sweep.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Cleanup()
		case <-c.stop:
			return
		}
	}
}
