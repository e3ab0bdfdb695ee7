// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

// Package registry holds the process-local routing tables that map users to
// their chat connection and posts to the connections watching them.
//
// Locks guard only the maps. Sends always happen on a snapshot taken under the
// read lock, so a slow or failing connection never blocks registration.
package registry

import "sync"

// Sender is a connection a registry can route payloads to. Send must not
// block; a full or closed connection returns an error instead.
type Sender[P any] interface {
	ID() uint64
	Send(payload P) error
}

// Sessions maps a key (user ID) to at most one live connection.
type Sessions[K comparable, P any] struct {
	mu     sync.RWMutex
	routes map[K]Sender[P]
}

// NewSessions creates an empty session registry.
func NewSessions[K comparable, P any]() *Sessions[K, P] {
	return &Sessions[K, P]{routes: make(map[K]Sender[P])}
}

// Register routes key to conn, replacing any previous connection. The
// replaced connection is returned so the caller can log or close it; it is
// no longer routed to but remains open.
func (s *Sessions[K, P]) Register(key K, conn Sender[P]) (previous Sender[P]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous = s.routes[key]
	s.routes[key] = conn
	if previous != nil && previous.ID() == conn.ID() {
		return nil
	}
	return previous
}

// Unregister removes the route for key only if it still points at conn. It
// reports whether the route was removed, so a connection superseded by a
// newer one never deletes the newer route.
func (s *Sessions[K, P]) Unregister(key K, conn Sender[P]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.routes[key]
	if !ok || current.ID() != conn.ID() {
		return false
	}
	delete(s.routes, key)
	return true
}

// Lookup returns the connection routed for key.
func (s *Sessions[K, P]) Lookup(key K) (Sender[P], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.routes[key]
	return conn, ok
}

// Deliver sends payload to the connection routed for key. A failed send
// unregisters that connection and returns it so the caller can close it.
func (s *Sessions[K, P]) Deliver(key K, payload P) (delivered bool, failed Sender[P], err error) {
	conn, ok := s.Lookup(key)
	if !ok {
		return false, nil, nil
	}
	if err := conn.Send(payload); err != nil {
		s.Unregister(key, conn)
		return false, conn, err
	}
	return true, nil, nil
}

// Len returns the number of routed keys.
func (s *Sessions[K, P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.routes)
}

// Watchers maps a key (post ID) to the set of connections watching it.
// Keys with no watchers are removed.
type Watchers[K comparable, P any] struct {
	mu   sync.RWMutex
	sets map[K]map[uint64]Sender[P]
}

// NewWatchers creates an empty watcher registry.
func NewWatchers[K comparable, P any]() *Watchers[K, P] {
	return &Watchers[K, P]{sets: make(map[K]map[uint64]Sender[P])}
}

// Add inserts conn into the set for key. It reports whether conn is the
// first watcher of key.
func (w *Watchers[K, P]) Add(key K, conn Sender[P]) (first bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	set, ok := w.sets[key]
	if !ok {
		set = make(map[uint64]Sender[P])
		w.sets[key] = set
	}
	set[conn.ID()] = conn
	return !ok
}

// Remove deletes conn from the set for key. It reports whether the set
// became empty and the key was dropped.
func (w *Watchers[K, P]) Remove(key K, conn Sender[P]) (last bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.removeLocked(key, conn.ID())
}

func (w *Watchers[K, P]) removeLocked(key K, id uint64) bool {
	set, ok := w.sets[key]
	if !ok {
		return false
	}
	if _, ok := set[id]; !ok {
		return false
	}
	delete(set, id)
	if len(set) == 0 {
		delete(w.sets, key)
		return true
	}
	return false
}

// Fanout sends payload to every watcher of key. Watchers whose send fails are
// removed and returned so the caller can close them. Delivery to one watcher
// is independent of the others.
func (w *Watchers[K, P]) Fanout(key K, payload P) (delivered int, failed []Sender[P]) {
	targets := w.Snapshot(key)
	for _, conn := range targets {
		if err := conn.Send(payload); err != nil {
			failed = append(failed, conn)
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		w.mu.Lock()
		for _, conn := range failed {
			w.removeLocked(key, conn.ID())
		}
		w.mu.Unlock()
	}
	return delivered, failed
}

// Snapshot returns the current watchers of key.
func (w *Watchers[K, P]) Snapshot(key K) []Sender[P] {
	w.mu.RLock()
	defer w.mu.RUnlock()
	set := w.sets[key]
	out := make([]Sender[P], 0, len(set))
	for _, conn := range set {
		out = append(out, conn)
	}
	return out
}

// Count returns the number of watchers of key.
func (w *Watchers[K, P]) Count(key K) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.sets[key])
}

// Len returns the number of keys with at least one watcher.
func (w *Watchers[K, P]) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.sets)
}
