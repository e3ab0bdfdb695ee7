// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package presence

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/metrics"
)

// opTimeout bounds a single presence store call.
const opTimeout = 5 * time.Second

// Heartbeat keeps one user's presence key alive for the lifetime of a
// connection. Store failures are logged and counted; they never end the
// connection.
type Heartbeat struct {
	store    Store
	userID   int64
	ttl      time.Duration
	interval time.Duration

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// StartHeartbeat writes the presence key and renews it every interval until
// Stop is called or ctx ends. A non-positive ttl is replaced by DefaultTTL,
// and an interval that is not strictly below ttl by ttl/2.
func StartHeartbeat(ctx context.Context, store Store, userID int64, ttl, interval time.Duration) *Heartbeat {
	if checkTTL(ttl) != nil {
		ttl = DefaultTTL
	}
	if interval <= 0 || interval >= ttl {
		interval = ttl / 2
	}

	hctx, cancel := context.WithCancel(ctx)
	h := &Heartbeat{
		store:    store,
		userID:   userID,
		ttl:      ttl,
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	h.call(hctx, "set_online", store.SetOnline)
	go h.run(hctx)
	return h
}

// Interval returns the effective renew interval.
func (h *Heartbeat) Interval() time.Duration {
	return h.interval
}

func (h *Heartbeat) run(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.call(ctx, "renew", h.store.Renew)
		}
	}
}

func (h *Heartbeat) call(ctx context.Context, op string, fn func(context.Context, int64, time.Duration) error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := fn(opCtx, h.userID, h.ttl)
	metrics.RecordPresence(op, err)
	if err != nil && ctx.Err() == nil {
		logging.Ctx(ctx).Warn().Err(err).
			Int64("user_id", h.userID).
			Str("operation", op).
			Msg("Presence update failed")
	}
}

// Stop halts renewal and waits for an in-flight renew to finish, so no renew
// can land after the caller clears the key. Safe to call more than once.
func (h *Heartbeat) Stop() {
	h.stopOnce.Do(func() {
		h.cancel()
		<-h.done
	})
}

// ClearPresence deletes the presence key with a bounded timeout, detached
// from ctx cancellation so cleanup still runs during shutdown.
func ClearPresence(ctx context.Context, store Store, userID int64) error {
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opTimeout)
	defer cancel()

	err := store.Clear(opCtx, userID)
	metrics.RecordPresence("clear", err)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("Presence clear failed")
	}
	return err
}
