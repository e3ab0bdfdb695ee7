// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package relay

import (
	"context"

	"github.com/tomtom215/anoprelay/internal/broker"
	"github.com/tomtom215/anoprelay/internal/envelope"
	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/metrics"
)

// Engagement applies engagement mutations and publishes the resulting
// reaction snapshot. Counts are always re-read after the mutation, never
// adjusted incrementally.
type Engagement struct {
	store  EngagementStore
	broker broker.Broker
}

// NewEngagement creates an engagement service.
func NewEngagement(s EngagementStore, b broker.Broker) *Engagement {
	return &Engagement{store: s, broker: b}
}

// apply runs a mutation and publishes a fresh snapshot after every
// successful call, changed or not, so a watcher holding a stale snapshot
// converges. A failed snapshot does not fail the mutation.
func (e *Engagement) apply(ctx context.Context, op string, postID int64, mutate func() (bool, error)) (bool, error) {
	changed, err := mutate()
	if err != nil {
		metrics.RecordPersistenceError(op)
		logging.Ctx(ctx).Warn().Err(err).Str("operation", op).Int64("post_id", postID).Msg("Engagement mutation failed")
		return false, err
	}
	_, _ = e.PublishSnapshot(ctx, postID)
	return changed, nil
}

// Snapshot reads the current counts for postID without publishing them.
func (e *Engagement) Snapshot(ctx context.Context, postID int64) (envelope.Snapshot, error) {
	counts, err := e.store.FetchReactionCounts(ctx, postID)
	if err != nil {
		metrics.RecordPersistenceError("fetch_reaction_counts")
		return envelope.Snapshot{}, err
	}
	return envelope.Snapshot{
		PostID:   postID,
		Likes:    counts.Likes,
		Comments: counts.Comments,
		Reposts:  counts.Reposts,
		Views:    counts.Views,
	}, nil
}

// PublishSnapshot reads fresh counts for postID and publishes them on the
// post's reaction channel.
func (e *Engagement) PublishSnapshot(ctx context.Context, postID int64) (envelope.Snapshot, error) {
	snap, err := e.Snapshot(ctx, postID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("post_id", postID).Msg("Reaction counts unavailable, snapshot skipped")
		return envelope.Snapshot{}, err
	}
	payload, err := envelope.EncodeSnapshot(snap)
	if err != nil {
		return envelope.Snapshot{}, err
	}
	publish(ctx, e.broker, broker.ReactionChannel(postID), payload)
	return snap, nil
}

// Like records a like by userID.
func (e *Engagement) Like(ctx context.Context, postID, userID int64) (bool, error) {
	return e.apply(ctx, "add_like", postID, func() (bool, error) {
		return e.store.AddLike(ctx, postID, userID)
	})
}

// Unlike removes a like by userID.
func (e *Engagement) Unlike(ctx context.Context, postID, userID int64) (bool, error) {
	return e.apply(ctx, "remove_like", postID, func() (bool, error) {
		return e.store.RemoveLike(ctx, postID, userID)
	})
}

// Comment adds a reply to the post.
func (e *Engagement) Comment(ctx context.Context, postID, userID int64, text string) (bool, error) {
	return e.apply(ctx, "add_comment", postID, func() (bool, error) {
		return e.store.AddComment(ctx, postID, userID, text)
	})
}

// Repost records a repost, or a quote repost when comment is set.
func (e *Engagement) Repost(ctx context.Context, postID, userID int64, comment *string) (bool, error) {
	return e.apply(ctx, "add_repost", postID, func() (bool, error) {
		return e.store.AddRepost(ctx, postID, userID, comment)
	})
}

// Unrepost removes the user's plain repost.
func (e *Engagement) Unrepost(ctx context.Context, postID, userID int64) (bool, error) {
	return e.apply(ctx, "remove_repost", postID, func() (bool, error) {
		return e.store.RemoveRepost(ctx, postID, userID)
	})
}

// View records a view. userID is nil for anonymous viewers.
func (e *Engagement) View(ctx context.Context, postID int64, userID *int64) (bool, error) {
	return e.apply(ctx, "add_view", postID, func() (bool, error) {
		return e.store.AddView(ctx, postID, userID)
	})
}

// Bookmark records a bookmark by userID.
func (e *Engagement) Bookmark(ctx context.Context, postID, userID int64) (bool, error) {
	return e.apply(ctx, "add_bookmark", postID, func() (bool, error) {
		return e.store.AddBookmark(ctx, postID, userID)
	})
}

// Unbookmark removes a bookmark by userID.
func (e *Engagement) Unbookmark(ctx context.Context, postID, userID int64) (bool, error) {
	return e.apply(ctx, "remove_bookmark", postID, func() (bool, error) {
		return e.store.RemoveBookmark(ctx, postID, userID)
	})
}
