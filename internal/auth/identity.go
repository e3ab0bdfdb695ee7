// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tomtom215/anoprelay/internal/config"
	"github.com/tomtom215/anoprelay/internal/logging"
)

// Identity errors.
var (
	ErrMissingIdentity = errors.New("auth: missing identity")
	ErrInvalidIdentity = errors.New("auth: invalid identity")
)

// UserIDQueryParam carries the user id in none mode.
const UserIDQueryParam = "userId"

// TokenQueryParam carries the token on WebSocket handshakes in jwt mode.
const TokenQueryParam = "token"

type contextKey string

// UserIDContextKey holds the authenticated user id on a request context.
const UserIDContextKey contextKey = "user_id"

// Identifier resolves the user behind a request.
type Identifier struct {
	mode string
	jwt  *JWTManager
}

// NewIdentifier creates an identifier for mode. jwt may be nil in none mode.
func NewIdentifier(mode string, jwt *JWTManager) *Identifier {
	return &Identifier{mode: mode, jwt: jwt}
}

// Mode returns the configured auth mode.
func (i *Identifier) Mode() string {
	return i.mode
}

// Identify returns the user id of r. The result is always positive.
func (i *Identifier) Identify(r *http.Request) (int64, error) {
	if i.mode != config.AuthModeJWT {
		return ParseID(r.URL.Query().Get(UserIDQueryParam))
	}

	token, err := extractToken(r)
	if err != nil {
		return 0, err
	}
	claims, err := i.jwt.ValidateToken(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	return claims.UserID, nil
}

// extractToken reads the token from the Authorization header, the token
// cookie, or the token query parameter, in that order.
func extractToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", fmt.Errorf("%w: invalid authorization header", ErrInvalidIdentity)
		}
		return parts[1], nil
	}
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	if token := r.URL.Query().Get(TokenQueryParam); token != "" {
		return token, nil
	}
	return "", ErrMissingIdentity
}

// ParseID parses a positive decimal user or post id.
func ParseID(s string) (int64, error) {
	if s == "" {
		return 0, ErrMissingIdentity
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	}
	return id, nil
}

// Authenticate is middleware that requires a valid token in jwt mode and
// stores the user id on the request context. In none mode requests pass
// through untouched, since REST callers name the user in the body.
func (i *Identifier) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if i.mode != config.AuthModeJWT {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := i.Identify(r)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Request rejected: no valid identity")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
	})
}

// ContextWithUserID returns ctx carrying userID.
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDContextKey).(int64)
	return id, ok
}
