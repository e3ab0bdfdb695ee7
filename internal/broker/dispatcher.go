// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package broker

import (
	"context"
	"sync"

	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/metrics"
)

// Dispatcher holds at most one broker subscription per channel for this
// instance and reference counts local interest in it. The subscription is
// opened by the first Acquire and closed by the last Release.
//
// Subscribe and Unsubscribe run outside the dispatcher lock; a slow broker
// only delays callers interested in the same channel.
type Dispatcher struct {
	broker Broker

	mu   sync.Mutex
	subs map[string]*dispatchEntry
}

type dispatchEntry struct {
	refs  int
	ready chan struct{}
	sub   Subscription
	err   error
}

// NewDispatcher creates a dispatcher on b.
func NewDispatcher(b Broker) *Dispatcher {
	return &Dispatcher{broker: b, subs: make(map[string]*dispatchEntry)}
}

// Acquire registers interest in channel. The first caller's handler serves
// every later caller, so all callers for a channel must route the same way.
// On error no reference is held and Release must not be called.
func (d *Dispatcher) Acquire(ctx context.Context, channel string, h Handler) error {
	d.mu.Lock()
	e, ok := d.subs[channel]
	if ok {
		e.refs++
		d.mu.Unlock()
		<-e.ready
		if e.err != nil {
			return e.err
		}
		return nil
	}

	e = &dispatchEntry{refs: 1, ready: make(chan struct{})}
	d.subs[channel] = e
	d.mu.Unlock()

	sub, err := d.broker.Subscribe(ctx, channel, h)

	d.mu.Lock()
	e.sub, e.err = sub, err
	if err != nil && d.subs[channel] == e {
		delete(d.subs, channel)
	}
	d.mu.Unlock()
	close(e.ready)

	if err != nil {
		return err
	}
	metrics.BrokerSubscriptionsActive.Inc()
	return nil
}

// Release drops one reference to channel and unsubscribes when it was the last.
func (d *Dispatcher) Release(channel string) {
	d.mu.Lock()
	e, ok := d.subs[channel]
	if !ok {
		d.mu.Unlock()
		return
	}
	e.refs--
	if e.refs > 0 {
		d.mu.Unlock()
		return
	}
	delete(d.subs, channel)
	d.mu.Unlock()

	<-e.ready
	if e.sub == nil {
		return
	}
	metrics.BrokerSubscriptionsActive.Dec()
	if err := e.sub.Unsubscribe(); err != nil {
		logging.Warn().Err(err).Str("channel", channel).Msg("Broker unsubscribe failed")
	}
}

// Refs returns the number of references held on channel.
func (d *Dispatcher) Refs(channel string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.subs[channel]; ok {
		return e.refs
	}
	return 0
}

// Channels returns the number of channels with an open or opening subscription.
func (d *Dispatcher) Channels() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}
