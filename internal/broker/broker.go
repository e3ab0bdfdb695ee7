// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

// Package broker carries relay events between backend instances over a
// shared publish/subscribe transport.
//
// Two channel families exist:
//
//	chat:user:<userId>       chat and typing events for one recipient
//	post:<postId>:reaction   reaction snapshots for one post
//
// Delivery is at-most-once and unacknowledged. A subscriber that is not
// subscribed when an event is published never sees it; persistence is the
// source of truth for anything a client must not lose.
package broker

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Errors returned by broker implementations.
var (
	ErrClosed       = errors.New("broker: closed")
	ErrEmptyChannel = errors.New("broker: empty channel name")
)

// Handler receives one event. It runs on the subscription's delivery
// goroutine and must not block; hand off to a connection's send queue.
type Handler func(channel string, payload []byte)

// Subscription is an active channel subscription.
type Subscription interface {
	Unsubscribe() error
}

// Broker is a publish/subscribe transport.
type Broker interface {
	// Publish sends payload to every current subscriber of channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe registers h for events on channel. Events for one channel
	// are delivered sequentially in publish order per publisher.
	Subscribe(ctx context.Context, channel string, h Handler) (Subscription, error)

	// Ping reports whether the transport is reachable.
	Ping(ctx context.Context) error

	// Close releases the transport.
	Close() error
}

const (
	chatPrefix     = "chat:user:"
	postPrefix     = "post:"
	reactionSuffix = ":reaction"
)

// Channel kinds, used as metric labels.
const (
	KindChat     = "chat"
	KindReaction = "reaction"
	KindOther    = "other"
)

// ChatChannel returns the channel carrying events for a chat recipient.
func ChatChannel(userID int64) string {
	return chatPrefix + strconv.FormatInt(userID, 10)
}

// ReactionChannel returns the channel carrying snapshots for a post.
func ReactionChannel(postID int64) string {
	return postPrefix + strconv.FormatInt(postID, 10) + reactionSuffix
}

// ParseChatChannel extracts the user ID from a chat channel name.
func ParseChatChannel(channel string) (int64, bool) {
	rest, ok := strings.CutPrefix(channel, chatPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	return id, err == nil
}

// ParseReactionChannel extracts the post ID from a reaction channel name.
func ParseReactionChannel(channel string) (int64, bool) {
	rest, ok := strings.CutPrefix(channel, postPrefix)
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, reactionSuffix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	return id, err == nil
}

// Kind classifies a channel name.
func Kind(channel string) string {
	switch {
	case strings.HasPrefix(channel, chatPrefix):
		return KindChat
	case strings.HasPrefix(channel, postPrefix) && strings.HasSuffix(channel, reactionSuffix):
		return KindReaction
	default:
		return KindOther
	}
}
