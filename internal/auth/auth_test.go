// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package auth

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tomtom215/anoprelay/internal/config"
	"github.com/tomtom215/anoprelay/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

func newTestManager(t *testing.T, timeout time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, TokenTimeout: timeout})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManager_EmptySecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{TokenTimeout: time.Hour}); err == nil {
		t.Error("NewJWTManager() accepted an empty secret")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, err := m.GenerateToken(42)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != 42 || claims.Subject != "42" {
		t.Errorf("claims = %+v, want user 42", claims)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	m := newTestManager(t, time.Hour)
	other, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret + "-other", TokenTimeout: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	expired := newTestManager(t, -time.Minute)

	foreign, _ := other.GenerateToken(1)
	stale, _ := expired.GenerateToken(1)
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	noUser, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", stale},
		{"alg none", noneAlg},
		{"missing user id", noUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); err == nil {
				t.Error("ValidateToken() accepted token")
			}
		})
	}
}

func TestValidateToken_SubjectOnly(t *testing.T) {
	m := newTestManager(t, time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "77",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != 77 {
		t.Errorf("UserID = %d, want 77 from subject", claims.UserID)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr error
	}{
		{"7", 7, nil},
		{"9223372036854775807", 9223372036854775807, nil},
		{"", 0, ErrMissingIdentity},
		{"0", 0, ErrInvalidIdentity},
		{"-3", 0, ErrInvalidIdentity},
		{"abc", 0, ErrInvalidIdentity},
		{"1.5", 0, ErrInvalidIdentity},
	}
	for _, tt := range tests {
		got, err := ParseID(tt.in)
		if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
			t.Errorf("ParseID(%q) error = %v, want %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestIdentify(t *testing.T) {
	m := newTestManager(t, time.Hour)
	token, err := m.GenerateToken(5)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mode    string
		build   func(r *http.Request)
		url     string
		want    int64
		wantErr bool
	}{
		{name: "none mode query", mode: config.AuthModeNone, url: "/chat?userId=12", want: 12},
		{name: "none mode missing", mode: config.AuthModeNone, url: "/chat", wantErr: true},
		{name: "none mode ignores token", mode: config.AuthModeNone, url: "/chat?token=" + token, wantErr: true},
		{
			name: "jwt bearer",
			mode: config.AuthModeJWT,
			url:  "/chat",
			build: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+token)
			},
			want: 5,
		},
		{
			name: "jwt cookie",
			mode: config.AuthModeJWT,
			url:  "/chat",
			build: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "token", Value: token})
			},
			want: 5,
		},
		{name: "jwt query", mode: config.AuthModeJWT, url: "/chat?token=" + token, want: 5},
		{name: "jwt ignores userId", mode: config.AuthModeJWT, url: "/chat?userId=9&token=" + token, want: 5},
		{name: "jwt missing", mode: config.AuthModeJWT, url: "/chat?userId=9", wantErr: true},
		{
			name: "jwt malformed header",
			mode: config.AuthModeJWT,
			url:  "/chat",
			build: func(r *http.Request) {
				r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.build != nil {
				tt.build(r)
			}
			got, err := NewIdentifier(tt.mode, m).Identify(r)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Identify() = %d, want error", got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Identify() = %d, %v; want %d", got, err, tt.want)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	m := newTestManager(t, time.Hour)
	token, _ := m.GenerateToken(31)

	var seen int64
	var hasID bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, hasID = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("jwt accepts token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/likePost", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		NewIdentifier(config.AuthModeJWT, m).Authenticate(next).ServeHTTP(w, r)
		if w.Code != http.StatusNoContent || !hasID || seen != 31 {
			t.Errorf("status=%d id=%d ok=%v", w.Code, seen, hasID)
		}
	})

	t.Run("jwt rejects missing token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/likePost", nil)
		w := httptest.NewRecorder()
		NewIdentifier(config.AuthModeJWT, m).Authenticate(next).ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("none passes through", func(t *testing.T) {
		hasID = false
		r := httptest.NewRequest(http.MethodPost, "/likePost", nil)
		w := httptest.NewRecorder()
		NewIdentifier(config.AuthModeNone, nil).Authenticate(next).ServeHTTP(w, r)
		if w.Code != http.StatusNoContent || hasID {
			t.Errorf("status=%d ok=%v", w.Code, hasID)
		}
	})
}

func TestContextWithUserID(t *testing.T) {
	ctx := ContextWithUserID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), 8)
	if id, ok := UserIDFromContext(ctx); !ok || id != 8 {
		t.Errorf("UserIDFromContext() = %d, %v", id, ok)
	}
}
