// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReactionCounts are the engagement totals of one post.
type ReactionCounts struct {
	Likes    int64
	Comments int64
	Reposts  int64
	Views    int64
}

// FetchReactionCounts reads the current engagement totals of a post. Comments
// are replies to the post; reposts include quote reposts.
func (s *SQLStore) FetchReactionCounts(ctx context.Context, postID int64) (ReactionCounts, error) {
	var c ReactionCounts
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT
			(SELECT COUNT(*) FROM post_likes WHERE post_id = ?),
			(SELECT COUNT(*) FROM posts WHERE reply_to = ?),
			(SELECT COUNT(*) FROM post_reposts WHERE post_id = ?),
			(SELECT COUNT(*) FROM post_views WHERE post_id = ?)`),
		postID, postID, postID, postID,
	).Scan(&c.Likes, &c.Comments, &c.Reposts, &c.Views)
	if err != nil {
		return ReactionCounts{}, fmt.Errorf("store: reaction counts for post %d: %w", postID, err)
	}
	return c, nil
}

// exec runs a mutation and reports whether it changed any row.
func (s *SQLStore) exec(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("store: %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: %s: %w", op, err)
	}
	return n > 0, nil
}

// AddLike records a like. A repeated like changes nothing.
func (s *SQLStore) AddLike(ctx context.Context, postID, userID int64) (bool, error) {
	return s.exec(ctx, "add like", `
		INSERT INTO post_likes (post_id, user_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (post_id, user_id) DO NOTHING`, postID, userID, s.timestamp())
}

// RemoveLike deletes a like.
func (s *SQLStore) RemoveLike(ctx context.Context, postID, userID int64) (bool, error) {
	return s.exec(ctx, "remove like", `DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
}

// AddBookmark records a bookmark. A repeated bookmark changes nothing.
func (s *SQLStore) AddBookmark(ctx context.Context, postID, userID int64) (bool, error) {
	return s.exec(ctx, "add bookmark", `
		INSERT INTO post_bookmarks (post_id, user_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (post_id, user_id) DO NOTHING`, postID, userID, s.timestamp())
}

// RemoveBookmark deletes a bookmark.
func (s *SQLStore) RemoveBookmark(ctx context.Context, postID, userID int64) (bool, error) {
	return s.exec(ctx, "remove bookmark", `DELETE FROM post_bookmarks WHERE post_id = ? AND user_id = ?`, postID, userID)
}

// AddComment stores a reply to the post. Every comment is a change.
func (s *SQLStore) AddComment(ctx context.Context, postID, userID int64, text string) (bool, error) {
	text = SanitizeContent(text)
	if text == "" {
		return false, ErrEmptyContent
	}
	return s.exec(ctx, "add comment", `
		INSERT INTO posts (user_id, content, reply_to, created_at) VALUES (?, ?, ?, ?)`,
		userID, text, postID, s.timestamp())
}

// AddRepost records a repost, or a quote repost when comment is set. The
// same user reposting the same post with the same comment changes nothing.
func (s *SQLStore) AddRepost(ctx context.Context, postID, userID int64, comment *string) (bool, error) {
	if comment != nil {
		c := SanitizeContent(*comment)
		if c == "" {
			comment = nil
		} else {
			comment = &c
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("store: add repost: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		exists int
		row    *sql.Row
	)
	if comment == nil {
		row = tx.QueryRowContext(ctx, s.rebind(`
			SELECT COUNT(*) FROM post_reposts WHERE post_id = ? AND user_id = ? AND comment IS NULL`),
			postID, userID)
	} else {
		row = tx.QueryRowContext(ctx, s.rebind(`
			SELECT COUNT(*) FROM post_reposts WHERE post_id = ? AND user_id = ? AND comment = ?`),
			postID, userID, *comment)
	}
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("store: add repost: %w", err)
	}
	if exists > 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO post_reposts (post_id, user_id, comment, created_at) VALUES (?, ?, ?, ?)`),
		postID, userID, nullableString(comment), s.timestamp()); err != nil {
		return false, fmt.Errorf("store: add repost: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("store: add repost: %w", err)
	}
	return true, nil
}

// RemoveRepost deletes the user's plain repost of the post. Quote reposts
// are left alone.
func (s *SQLStore) RemoveRepost(ctx context.Context, postID, userID int64) (bool, error) {
	return s.exec(ctx, "remove repost",
		`DELETE FROM post_reposts WHERE post_id = ? AND user_id = ? AND comment IS NULL`, postID, userID)
}

// AddView records a view. A known user counts at most once per UTC day;
// anonymous views (nil userID) always count.
func (s *SQLStore) AddView(ctx context.Context, postID int64, userID *int64) (bool, error) {
	now := s.timestamp()
	var uid sql.NullInt64
	if userID != nil {
		uid = sql.NullInt64{Int64: *userID, Valid: true}
	}
	return s.exec(ctx, "add view", `
		INSERT INTO post_views (post_id, user_id, view_day, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`, postID, uid, now.Format("2006-01-02"), now)
}
