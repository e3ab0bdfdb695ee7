// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/anoprelay/internal/middleware"
)

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware set uses the defaults.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)        // X-Request-ID and log correlation
	r.Use(chimiddleware.RealIP)        // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer)     // Recover from panics
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// ========================
	// WebSocket Endpoints
	// ========================
	// Identity is resolved in the handlers, since browsers cannot set an
	// Authorization header on a WebSocket handshake.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitWebSocket())
		r.Use(middleware.PrometheusMetrics)
		r.Get("/chat", router.handler.Chat)
		r.Get("/watchPost", router.handler.WatchPost)
	})

	// ========================
	// Client Routes
	// ========================
	// Paths used by existing mobile clients.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.handler.identity.Authenticate)

		r.Get("/getMessages/{userId}", router.handler.GetMessages)
		r.Get("/getMessagesSince", router.handler.GetMessagesSince)
		r.Get("/postMetrics/{postId}", router.handler.PostMetrics)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitWrite())
			router.engagementRoutes(r)

			// Older client names for the same mutations.
			r.Post("/quote-repost", router.handler.RepostPost)
			r.Post("/removeRepost", router.handler.UnrepostPost)
			r.Post("/addView", router.handler.ViewPost)
			r.Post("/addBookmark", router.handler.BookmarkPost)
			r.Post("/removeBookmark", router.handler.UnbookmarkPost)
			r.Post("/addPostComment", router.handler.CommentPost)
		})
	})

	// ========================
	// Versioned API
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.handler.identity.Authenticate)

		r.Get("/messages/{userId}", router.handler.GetMessages)
		r.Get("/messages/{userId}/since", router.handler.GetMessagesSince)
		r.Get("/presence/{userId}", router.handler.Presence)
		r.Get("/postMetrics/{postId}", router.handler.PostMetrics)

		r.Route("/posts", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitWrite())
			router.engagementRoutes(r)
		})
	})

	// ========================
	// Prometheus Metrics
	// ========================
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// engagementRoutes mounts the engagement mutations on r.
func (router *Router) engagementRoutes(r chi.Router) {
	r.Post("/likePost", router.handler.LikePost)
	r.Post("/unlikePost", router.handler.UnlikePost)
	r.Post("/commentPost", router.handler.CommentPost)
	r.Post("/repostPost", router.handler.RepostPost)
	r.Post("/unrepostPost", router.handler.UnrepostPost)
	r.Post("/viewPost", router.handler.ViewPost)
	r.Post("/bookmarkPost", router.handler.BookmarkPost)
	r.Post("/unbookmarkPost", router.handler.UnbookmarkPost)
}
