// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

/*
Package api exposes the relay over HTTP using the chi router.

Routes:

	GET  /chat?userId=                      chat WebSocket (token instead of userId in jwt mode)
	GET  /watchPost?postId=                 reaction WebSocket
	GET  /getMessages/{userId}              full chat history of a user
	GET  /getMessagesSince?userId=&lastMessageId=
	POST /likePost /unlikePost /commentPost /repostPost /unrepostPost
	POST /viewPost /bookmarkPost /unbookmarkPost
	GET  /api/v1/messages/{userId}          history mirrors under the versioned prefix
	GET  /api/v1/messages/{userId}/since?lastMessageId=
	GET  /api/v1/presence/{userId}
	GET  /postMetrics/{postId}              current reaction counts (also under /api/v1)
	POST /api/v1/posts/likePost ...         engagement mirrors under the versioned prefix
	GET  /api/v1/health/live, /api/v1/health/ready
	GET  /metrics

REST responses use models.APIResponse. Engagement routes trigger the reaction
relay: a mutation that changed a post publishes a fresh snapshot to every
watcher of that post on any instance.

Identity follows the configured auth mode. In "none" mode the caller names
the user (userId query parameter or request body). In "jwt" mode the user
comes from the token and any user named in a body is overridden; history
reads of another user's messages are refused.

A WebSocket handler blocks for the life of its connection. Connections are
closed through the websocket.Hub on shutdown, not through the request
context, which the server abandons once the connection is hijacked.
*/
package api
