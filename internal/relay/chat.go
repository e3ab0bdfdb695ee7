// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/anoprelay/internal/broker"
	"github.com/tomtom215/anoprelay/internal/envelope"
	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/metrics"
	"github.com/tomtom215/anoprelay/internal/presence"
	"github.com/tomtom215/anoprelay/internal/registry"
	"github.com/tomtom215/anoprelay/internal/store"
	"github.com/tomtom215/anoprelay/internal/websocket"
)

// ChatConfig configures the chat relay.
type ChatConfig struct {
	PresenceTTL   time.Duration
	RenewInterval time.Duration
}

// userLockStripes is the number of mutexes user IDs are hashed onto.
const userLockStripes = 64

// ChatRelay serves the chat endpoint.
type ChatRelay struct {
	store      MessageStore
	broker     broker.Broker
	dispatcher *broker.Dispatcher
	presence   presence.Store
	sessions   *registry.Sessions[int64, []byte]
	cfg        ChatConfig

	// userLocks order one user's route changes with the presence write
	// that follows them, so a closing connection cannot clear the key a
	// newer connection has just set.
	userLocks [userLockStripes]sync.Mutex
}

// NewChatRelay creates a chat relay. Zero config values take the presence
// package defaults.
func NewChatRelay(ms MessageStore, b broker.Broker, d *broker.Dispatcher, p presence.Store, cfg ChatConfig) *ChatRelay {
	if cfg.PresenceTTL <= 0 {
		cfg.PresenceTTL = presence.DefaultTTL
	}
	if cfg.RenewInterval <= 0 {
		cfg.RenewInterval = presence.DefaultRenewInterval
	}
	return &ChatRelay{
		store:      ms,
		broker:     b,
		dispatcher: d,
		presence:   p,
		sessions:   registry.NewSessions[int64, []byte](),
		cfg:        cfg,
	}
}

// Sessions returns the registry of locally connected chat users.
func (r *ChatRelay) Sessions() *registry.Sessions[int64, []byte] {
	return r.sessions
}

func (r *ChatRelay) userLock(userID int64) *sync.Mutex {
	return &r.userLocks[uint64(userID)%userLockStripes]
}

// Connection returns the handler for one chat connection of userID.
func (r *ChatRelay) Connection(userID int64) websocket.Handler {
	return &chatConn{relay: r, userID: userID, channel: broker.ChatChannel(userID)}
}

// deliver forwards a chat channel event verbatim to the local session of
// the channel's user. Without a local session the event is dropped; the
// message is already persisted.
func (r *ChatRelay) deliver(channel string, payload []byte) {
	userID, ok := broker.ParseChatChannel(channel)
	if !ok {
		return
	}
	delivered, failed, err := r.sessions.Deliver(userID, payload)
	switch {
	case delivered:
		metrics.RecordFanout(broker.KindChat, metrics.ResultOK, 1)
	case failed != nil:
		logging.Debug().Err(err).Int64("user_id", userID).Msg("Chat delivery failed, closing session")
		closeFailed(broker.KindChat, failed)
	default:
		metrics.RecordFanout(broker.KindChat, "no_route", 1)
	}
}

// chatConn is the per-connection state of the chat endpoint.
type chatConn struct {
	relay      *ChatRelay
	userID     int64
	channel    string
	subscribed bool
	heartbeat  *presence.Heartbeat
}

// OnOpen subscribes to the user's channel, routes the user to this
// connection and starts the presence heartbeat. A broker failure leaves
// the connection usable without live delivery.
func (cc *chatConn) OnOpen(ctx context.Context, c websocket.Conn) error {
	r := cc.relay
	log := logging.Ctx(ctx)

	if err := r.dispatcher.Acquire(ctx, cc.channel, r.deliver); err != nil {
		log.Warn().Err(err).Str("channel", cc.channel).Msg("Chat subscription failed, live delivery disabled")
	} else {
		cc.subscribed = true
	}

	mu := r.userLock(cc.userID)
	mu.Lock()
	defer mu.Unlock()

	if prev := r.sessions.Register(cc.userID, c); prev != nil {
		log.Info().Uint64("superseded_conn_id", prev.ID()).Msg("Chat session superseded by new connection")
	}

	cc.heartbeat = presence.StartHeartbeat(ctx, r.presence, cc.userID, r.cfg.PresenceTTL, r.cfg.RenewInterval)
	return nil
}

// OnFrame handles one inbound chat frame.
func (cc *chatConn) OnFrame(ctx context.Context, c websocket.Conn, frame []byte) {
	log := logging.Ctx(ctx)

	msg, err := envelope.DecodeChat(frame)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, envelope.ErrUnknownType) {
			reason = "unknown_type"
		}
		metrics.RecordDrop(EndpointChat, reason)
		log.Debug().Err(err).Msg("Dropping undecodable chat frame")
		return
	}
	metrics.RecordFrame(EndpointChat, string(msg.Kind()))

	switch m := msg.(type) {
	case *envelope.Chat:
		cc.handleChat(ctx, c, m)
	case *envelope.StatusUpdate:
		cc.handleStatus(ctx, c, m)
	case *envelope.TypingSignal:
		publish(ctx, cc.relay.broker, broker.ChatChannel(m.ToUserID), frame)
	}
}

// handleChat persists the message, then publishes it with its new ID and
// the connection's user as sender.
func (cc *chatConn) handleChat(ctx context.Context, c websocket.Conn, m *envelope.Chat) {
	r := cc.relay

	saved, err := r.store.PersistChatMessage(ctx, cc.userID, m.ToUserID, m.Content, m.MediaPath)
	if err != nil {
		metrics.RecordPersistenceError("persist_chat_message")
		metrics.RecordDrop(EndpointChat, "persistence")
		logging.Ctx(ctx).Error().Err(err).Int64("to_user_id", m.ToUserID).Msg("Chat message not persisted")
		sendError(c, persistenceCode(err), "message could not be saved")
		return
	}

	out := *m
	out.ID = saved.ID
	out.FromUserID = cc.userID
	out.Content = saved.Content
	payload, err := envelope.Encode(&out)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Int64("message_id", saved.ID).Msg("Chat message not encoded")
		return
	}
	publish(ctx, r.broker, broker.ChatChannel(m.ToUserID), payload)
}

// handleStatus persists a status change. Transitions are not validated and
// the sender is not checked against the message's recipient.
func (cc *chatConn) handleStatus(ctx context.Context, c websocket.Conn, m *envelope.StatusUpdate) {
	if err := cc.relay.store.UpdateChatMessageStatus(ctx, m.MessageID, m.Status); err != nil {
		metrics.RecordPersistenceError("update_chat_message_status")
		logging.Ctx(ctx).Warn().Err(err).Int64("message_id", m.MessageID).Msg("Message status not persisted")
		text := "status could not be saved"
		if errors.Is(err, store.ErrMessageNotFound) {
			text = "message not found"
		}
		sendError(c, envelope.CodePersistence, text)
	}
}

// OnClose stops the heartbeat before touching routing so no renew can
// revive presence. Presence is cleared only when no newer connection of the
// same user is routed; the user lock keeps a concurrent OnOpen from
// registering between that check and the clear.
func (cc *chatConn) OnClose(ctx context.Context, c websocket.Conn) {
	r := cc.relay

	if cc.heartbeat != nil {
		cc.heartbeat.Stop()
	}

	mu := r.userLock(cc.userID)
	mu.Lock()
	r.sessions.Unregister(cc.userID, c)
	if _, routed := r.sessions.Lookup(cc.userID); !routed {
		_ = presence.ClearPresence(ctx, r.presence, cc.userID)
	}
	mu.Unlock()

	if cc.subscribed {
		r.dispatcher.Release(cc.channel)
	}
}
