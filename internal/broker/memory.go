// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package broker

import (
	"context"
	"sync"
)

// Memory is an in-process broker for single-instance deployments and tests.
// Publish invokes handlers synchronously on the caller's goroutine, outside
// the broker lock.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]Handler
	nextID uint64
	closed bool
}

// NewMemory creates an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string]map[uint64]Handler)}
}

// Publish implements Broker.
func (m *Memory) Publish(ctx context.Context, channel string, payload []byte) error {
	if channel == "" {
		return ErrEmptyChannel
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]Handler, 0, len(m.subs[channel]))
	for _, h := range m.subs[channel] {
		handlers = append(handlers, h)
	}
	m.mu.RUnlock()

	for _, h := range handlers {
		h(channel, payload)
	}
	return nil
}

// Subscribe implements Broker.
func (m *Memory) Subscribe(_ context.Context, channel string, h Handler) (Subscription, error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	m.nextID++
	id := m.nextID
	set, ok := m.subs[channel]
	if !ok {
		set = make(map[uint64]Handler)
		m.subs[channel] = set
	}
	set[id] = h
	return &memorySub{broker: m, channel: channel, id: id}, nil
}

// Subscribers returns the number of handlers registered for channel.
func (m *Memory) Subscribers(channel string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[channel])
}

// Ping implements Broker.
func (m *Memory) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Broker.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = make(map[string]map[uint64]Handler)
	return nil
}

type memorySub struct {
	broker  *Memory
	channel string
	id      uint64
	once    sync.Once
}

func (s *memorySub) Unsubscribe() error {
	s.once.Do(func() {
		m := s.broker
		m.mu.Lock()
		defer m.mu.Unlock()
		if set, ok := m.subs[s.channel]; ok {
			delete(set, s.id)
			if len(set) == 0 {
				delete(m.subs, s.channel)
			}
		}
	})
	return nil
}
