// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	loggerKey        contextKey = "logger"
)

// GenerateCorrelationID returns the first 8 characters of a new UUID.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns a context carrying id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation ID, or "" when absent.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns the logger stored in ctx. Without one it returns the global
// logger with the correlation ID attached when present. Stored loggers
// already carry their correlation ID.
//
//	logging.Ctx(ctx).Warn().Err(err).Msg("Publish failed")
func Ctx(ctx context.Context) *zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return &logger
	}
	logger := Logger()
	if id := CorrelationIDFromContext(ctx); id != "" {
		logger = logger.With().Str("correlation_id", id).Logger()
	}
	return &logger
}

// ForConnection builds the logger and context used for the lifetime of one
// client connection. The returned context carries both.
func ForConnection(ctx context.Context, endpoint string, connID uint64) (context.Context, zerolog.Logger) {
	id := CorrelationIDFromContext(ctx)
	if id == "" {
		id = GenerateCorrelationID()
		ctx = ContextWithCorrelationID(ctx, id)
	}
	logger := With().
		Str("endpoint", endpoint).
		Uint64("conn_id", connID).
		Str("correlation_id", id).
		Logger()
	return ContextWithLogger(ctx, logger), logger
}
