// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package relay

import (
	"context"
	"errors"

	"github.com/tomtom215/anoprelay/internal/broker"
	"github.com/tomtom215/anoprelay/internal/envelope"
	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/metrics"
	"github.com/tomtom215/anoprelay/internal/registry"
	"github.com/tomtom215/anoprelay/internal/websocket"
)

// ReactionRelay serves the post watch endpoint.
type ReactionRelay struct {
	dispatcher *broker.Dispatcher
	engagement *Engagement
	watchers   *registry.Watchers[int64, []byte]
}

// NewReactionRelay creates a reaction relay. Inbound reaction and bookmark
// frames are applied through e.
func NewReactionRelay(d *broker.Dispatcher, e *Engagement) *ReactionRelay {
	return &ReactionRelay{
		dispatcher: d,
		engagement: e,
		watchers:   registry.NewWatchers[int64, []byte](),
	}
}

// Watchers returns the registry of local post watchers.
func (r *ReactionRelay) Watchers() *registry.Watchers[int64, []byte] {
	return r.watchers
}

// Connection returns the handler for one connection watching postID.
// Inbound frames act for the user they name.
func (r *ReactionRelay) Connection(postID int64) websocket.Handler {
	return r.ConnectionAs(postID, 0)
}

// ConnectionAs is Connection for an authenticated viewer: inbound frames
// act for viewerID whatever user they name. A zero viewerID trusts the
// frame.
func (r *ReactionRelay) ConnectionAs(postID, viewerID int64) websocket.Handler {
	return &watchConn{relay: r, postID: postID, viewerID: viewerID, channel: broker.ReactionChannel(postID)}
}

// deliver fans a snapshot out to every local watcher of the channel's post.
func (r *ReactionRelay) deliver(channel string, payload []byte) {
	postID, ok := broker.ParseReactionChannel(channel)
	if !ok {
		return
	}
	delivered, failed := r.watchers.Fanout(postID, payload)
	if delivered > 0 {
		metrics.RecordFanout(broker.KindReaction, metrics.ResultOK, delivered)
	}
	if len(failed) > 0 {
		logging.Debug().Int64("post_id", postID).Int("failed", len(failed)).Msg("Snapshot delivery failed, closing watchers")
		closeFailed(broker.KindReaction, failed...)
	}
}

type watchConn struct {
	relay      *ReactionRelay
	postID     int64
	viewerID   int64
	channel    string
	subscribed bool
}

// OnOpen subscribes to the post's reaction channel before the connection
// becomes a watcher, so no snapshot published after OnOpen is missed.
func (wc *watchConn) OnOpen(ctx context.Context, c websocket.Conn) error {
	r := wc.relay
	if err := r.dispatcher.Acquire(ctx, wc.channel, r.deliver); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("channel", wc.channel).Msg("Reaction subscription failed, live updates disabled")
	} else {
		wc.subscribed = true
	}
	r.watchers.Add(wc.postID, c)
	return nil
}

// OnFrame applies an inbound reaction or bookmark toggle.
func (wc *watchConn) OnFrame(ctx context.Context, c websocket.Conn, frame []byte) {
	msg, err := envelope.DecodeWatch(frame)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, envelope.ErrUnknownType) {
			reason = "unknown_type"
		}
		metrics.RecordDrop(EndpointWatch, reason)
		logging.Ctx(ctx).Debug().Err(err).Msg("Dropping undecodable watch frame")
		return
	}
	metrics.RecordFrame(EndpointWatch, string(msg.Kind()))

	e := wc.relay.engagement
	switch m := msg.(type) {
	case *envelope.Reaction:
		if wc.viewerID > 0 {
			m.UserID = wc.viewerID
		}
		if m.IsLike {
			_, err = e.Like(ctx, m.PostID, m.UserID)
		} else {
			_, err = e.Unlike(ctx, m.PostID, m.UserID)
		}
	case *envelope.Bookmark:
		if wc.viewerID > 0 {
			m.UserID = wc.viewerID
		}
		if m.IsBookmarked {
			_, err = e.Bookmark(ctx, m.PostID, m.UserID)
		} else {
			_, err = e.Unbookmark(ctx, m.PostID, m.UserID)
		}
	}
	if err != nil {
		sendError(c, persistenceCode(err), "reaction could not be saved")
	}
}

// OnClose removes the watcher, dropping the post entry with the last one,
// and releases the subscription.
func (wc *watchConn) OnClose(_ context.Context, c websocket.Conn) {
	r := wc.relay
	r.watchers.Remove(wc.postID, c)
	if wc.subscribed {
		r.dispatcher.Release(wc.channel)
	}
}
