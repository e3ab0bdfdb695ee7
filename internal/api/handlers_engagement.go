// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/anoprelay/internal/auth"
	"github.com/tomtom215/anoprelay/internal/models"
	"github.com/tomtom215/anoprelay/internal/store"
)

// postMutation is an engagement operation keyed by post and user.
type postMutation func(ctx context.Context, postID, userID int64) (bool, error)

// LikePost records a like. A repeated like reports changed=false.
func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	h.handlePostAction(w, r, h.engagement.Like)
}

// UnlikePost removes a like.
func (h *Handler) UnlikePost(w http.ResponseWriter, r *http.Request) {
	h.handlePostAction(w, r, h.engagement.Unlike)
}

// BookmarkPost records a bookmark.
func (h *Handler) BookmarkPost(w http.ResponseWriter, r *http.Request) {
	h.handlePostAction(w, r, h.engagement.Bookmark)
}

// UnbookmarkPost removes a bookmark.
func (h *Handler) UnbookmarkPost(w http.ResponseWriter, r *http.Request) {
	h.handlePostAction(w, r, h.engagement.Unbookmark)
}

// UnrepostPost removes the user's repost.
func (h *Handler) UnrepostPost(w http.ResponseWriter, r *http.Request) {
	h.handlePostAction(w, r, h.engagement.Unrepost)
}

func (h *Handler) handlePostAction(w http.ResponseWriter, r *http.Request, mutate postMutation) {
	start := time.Now()

	var req PostActionRequest
	if !decodeEngagement(w, r, &req) {
		return
	}
	req.UserID = actingUser(r, req.UserID)
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, apiErr)
		return
	}

	changed, err := mutate(r.Context(), req.PostID, req.UserID)
	h.respondMutation(w, r, req.PostID, changed, err, start)
}

// CommentPost adds a comment. Markup is stripped before storing, and a
// comment left empty by that is rejected.
func (h *Handler) CommentPost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req CommentRequest
	if !decodeEngagement(w, r, &req) {
		return
	}
	req.UserID = actingUser(r, req.UserID)
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, apiErr)
		return
	}

	changed, err := h.engagement.Comment(r.Context(), req.PostID, req.UserID, req.CommentText)
	h.respondMutation(w, r, req.PostID, changed, err, start)
}

// RepostPost records a repost, or a quote repost when a comment is given.
// Repeating the same repost reports changed=false.
func (h *Handler) RepostPost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RepostRequest
	if !decodeEngagement(w, r, &req) {
		return
	}
	req.UserID = actingUser(r, req.UserID)
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, apiErr)
		return
	}

	changed, err := h.engagement.Repost(r.Context(), req.PostID, req.UserID, req.Comment)
	h.respondMutation(w, r, req.PostID, changed, err, start)
}

// ViewPost records a view. A user's views of a post count once per day;
// anonymous views always count.
func (h *Handler) ViewPost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ViewRequest
	if !decodeEngagement(w, r, &req) {
		return
	}
	if id, ok := auth.UserIDFromContext(r.Context()); ok {
		req.UserID = &id
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, apiErr)
		return
	}

	changed, err := h.engagement.View(r.Context(), req.PostID, req.UserID)
	h.respondMutation(w, r, req.PostID, changed, err, start)
}

// PostMetrics returns the current reaction counts of a post in the same
// shape watchers receive.
func (h *Handler) PostMetrics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	postID, err := auth.ParseID(chi.URLParam(r, "postId"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "postId must be a positive integer", nil)
		return
	}

	snap, err := h.engagement.Snapshot(r.Context(), postID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodePersistence, "Failed to fetch post metrics", err)
		return
	}
	respondSuccess(w, r, snap, start, nil)
}

func decodeEngagement(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := decodeJSONBody(r, v); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "Invalid request body", nil)
		return false
	}
	return true
}

func (h *Handler) respondMutation(w http.ResponseWriter, r *http.Request, postID int64, changed bool, err error, start time.Time) {
	if err != nil {
		if errors.Is(err, store.ErrEmptyContent) {
			respondError(w, r, http.StatusBadRequest, CodeBadRequest, "Content is empty", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, CodePersistence, "Failed to apply engagement", err)
		return
	}
	respondSuccess(w, r, models.EngagementResult{PostID: postID, Changed: changed}, start, nil)
}
