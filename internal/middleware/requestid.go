// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tomtom215/anoprelay/internal/logging"
)

type contextKey string

// RequestIDKey holds the request ID on a request context.
const RequestIDKey contextKey = "request_id"

// RequestIDHeader is the header read from upstream proxies and echoed back.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds an upstream-supplied ID before it reaches logs.
const maxRequestIDLen = 128

// RequestID middleware takes the request ID from an upstream proxy or
// generates a UUID, echoes it in the response header and stores it on the
// context. The same value becomes the log correlation ID, so a WebSocket
// connection's log lines can be matched to its handshake.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = logging.ContextWithCorrelationID(ctx, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
