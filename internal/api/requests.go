// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package api

// Request bodies name the acting user in userId. In jwt mode the token's user
// replaces it before validation, so token holders may omit it.

// PostActionRequest is the body of like, unlike, bookmark, unbookmark and
// unrepost.
type PostActionRequest struct {
	PostID int64 `json:"postId" validate:"gt=0"`
	UserID int64 `json:"userId" validate:"gt=0"`
}

// CommentRequest is the body of commentPost. The 2048 limit matches the
// content cap applied at persistence.
type CommentRequest struct {
	PostID      int64  `json:"postId" validate:"gt=0"`
	UserID      int64  `json:"userId" validate:"gt=0"`
	CommentText string `json:"commentText" validate:"required,max=2048"`
}

// RepostRequest is the body of repostPost. A non-empty comment makes it a
// quote repost.
type RepostRequest struct {
	PostID  int64   `json:"postId" validate:"gt=0"`
	UserID  int64   `json:"userId" validate:"gt=0"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2048"`
}

// ViewRequest is the body of viewPost. Anonymous views omit userId.
type ViewRequest struct {
	PostID int64  `json:"postId" validate:"gt=0"`
	UserID *int64 `json:"userId,omitempty" validate:"omitempty,gt=0"`
}

// MessagesSinceRequest holds the query of getMessagesSince.
type MessagesSinceRequest struct {
	UserID        int64 `json:"userId" validate:"gt=0"`
	LastMessageID int64 `json:"lastMessageId" validate:"gte=0"`
}
