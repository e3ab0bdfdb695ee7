// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

// Package relay bridges client connections, persistence and the broker.
//
// The chat relay persists inbound chat messages, publishes them on the
// recipient's chat channel and forwards chat channel events to the locally
// connected recipient. The reaction relay fans post snapshots out to local
// watchers, and Engagement publishes a fresh snapshot after every mutation
// that changed a post's counts.
//
// Persistence is the source of truth. A failed publish is logged and the
// operation still succeeds; clients backfill through the history endpoints.
package relay

import (
	"context"
	"errors"

	"github.com/tomtom215/anoprelay/internal/broker"
	"github.com/tomtom215/anoprelay/internal/envelope"
	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/metrics"
	"github.com/tomtom215/anoprelay/internal/registry"
	"github.com/tomtom215/anoprelay/internal/store"
	"github.com/tomtom215/anoprelay/internal/websocket"
)

// Endpoint labels used in logs and metrics.
const (
	EndpointChat  = "chat"
	EndpointWatch = "watch"
)

// MessageStore persists chat messages and their status.
type MessageStore interface {
	PersistChatMessage(ctx context.Context, senderID, receiverID int64, content string, mediaPath *string) (store.Message, error)
	UpdateChatMessageStatus(ctx context.Context, messageID int64, status envelope.MessageStatus) error
}

// EngagementStore applies engagement mutations and reads the counts a
// reaction snapshot is built from. Each mutation reports whether it changed
// anything.
type EngagementStore interface {
	FetchReactionCounts(ctx context.Context, postID int64) (store.ReactionCounts, error)
	AddLike(ctx context.Context, postID, userID int64) (bool, error)
	RemoveLike(ctx context.Context, postID, userID int64) (bool, error)
	AddComment(ctx context.Context, postID, userID int64, text string) (bool, error)
	AddRepost(ctx context.Context, postID, userID int64, comment *string) (bool, error)
	RemoveRepost(ctx context.Context, postID, userID int64) (bool, error)
	AddView(ctx context.Context, postID int64, userID *int64) (bool, error)
	AddBookmark(ctx context.Context, postID, userID int64) (bool, error)
	RemoveBookmark(ctx context.Context, postID, userID int64) (bool, error)
}

// publish sends payload and logs a failure. Broker errors never fail the
// operation that triggered the publish.
func publish(ctx context.Context, b broker.Broker, channel string, payload []byte) {
	if err := b.Publish(ctx, channel, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("channel", channel).Msg("Broker publish failed, live delivery skipped")
	}
}

// sendError writes an error frame to c. A connection that cannot take the
// frame is already closing.
func sendError(c websocket.Conn, code, message string) {
	_ = c.Send(envelope.EncodeError(code, message))
}

// persistenceCode maps a store error to the error frame code sent to the client.
func persistenceCode(err error) string {
	if errors.Is(err, store.ErrEmptyContent) {
		return envelope.CodeBadFrame
	}
	return envelope.CodePersistence
}

// closeFailed closes connections a registry dropped after a failed send.
func closeFailed(kind string, failed ...registry.Sender[[]byte]) {
	for _, s := range failed {
		if s == nil {
			continue
		}
		metrics.RecordFanout(kind, metrics.ResultError, 1)
		if c, ok := s.(websocket.Conn); ok {
			c.Close()
		}
	}
}
