// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/anoprelay/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// =====================================================
// Configuration
// =====================================================

func TestNewChiMiddleware_DefaultConfig(t *testing.T) {
	m := NewChiMiddleware(nil)
	if m.config == nil {
		t.Fatal("config is nil")
	}
	// Empty by default: origins must be configured explicitly.
	if len(m.config.CORSAllowedOrigins) != 0 {
		t.Errorf("CORSAllowedOrigins = %v, want []", m.config.CORSAllowedOrigins)
	}
	if m.config.RateLimitRequests != 100 || m.config.RateLimitWindow != time.Minute {
		t.Errorf("rate limit = %d/%v, want 100/1m", m.config.RateLimitRequests, m.config.RateLimitWindow)
	}
}

func TestNewChiMiddlewareFromSecurity(t *testing.T) {
	m := NewChiMiddlewareFromSecurity(&config.SecurityConfig{
		CORSOrigins:     []string{"https://a.example", "https://b.example"},
		RateLimitReqs:   200,
		RateLimitWindow: 2 * time.Minute,
	})

	if len(m.config.CORSAllowedOrigins) != 2 {
		t.Errorf("CORSAllowedOrigins = %v", m.config.CORSAllowedOrigins)
	}
	if m.config.RateLimitRequests != 200 || m.config.RateLimitWindow != 2*time.Minute {
		t.Errorf("rate limit = %d/%v, want 200/2m", m.config.RateLimitRequests, m.config.RateLimitWindow)
	}
	if m.config.RateLimitDisabled {
		t.Error("RateLimitDisabled = true, want false")
	}
}

// =====================================================
// CORS
// =====================================================

func TestChiMiddleware_CORS(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"https://allowed.example"},
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		CORSMaxAge:         3600,
	})
	handler := m.CORS()(okHandler())

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
	}{
		{"allowed origin", http.MethodGet, "https://allowed.example", "https://allowed.example"},
		{"disallowed origin", http.MethodGet, "https://evil.example", ""},
		{"no origin", http.MethodGet, "", ""},
		{"preflight allowed", http.MethodOptions, "https://allowed.example", "https://allowed.example"},
		{"preflight disallowed", http.MethodOptions, "https://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/likePost", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

// =====================================================
// Rate limiting
// =====================================================

func TestChiMiddleware_RateLimit_Disabled(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{
		RateLimitDisabled: true,
		RateLimitRequests: 1,
		RateLimitWindow:   time.Minute,
	})

	limiters := map[string]func(http.Handler) http.Handler{
		"general":   m.RateLimit(),
		"websocket": m.RateLimitWebSocket(),
		"write":     m.RateLimitWrite(),
	}
	for name, limit := range limiters {
		handler := limit(okHandler())
		for i := 0; i < 5; i++ {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.100:12345"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Errorf("%s request %d: status = %d, want 200", name, i, w.Code)
			}
		}
	}
}

func TestChiMiddleware_RateLimit_Enabled(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{
		RateLimitRequests: 3,
		RateLimitWindow:   time.Minute,
	})
	handler := m.RateLimit()(okHandler())

	successCount, limitedCount := 0, 0
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		switch w.Code {
		case http.StatusOK:
			successCount++
		case http.StatusTooManyRequests:
			limitedCount++
		}
	}
	if successCount != 3 || limitedCount != 2 {
		t.Errorf("ok = %d, limited = %d; want 3 and 2", successCount, limitedCount)
	}

	// Another IP has its own budget.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("other IP: status = %d, want 200", w.Code)
	}
}

func TestChiMiddleware_RateLimitCustom(t *testing.T) {
	m := NewChiMiddleware(nil)
	handler := m.RateLimitCustom(RateLimitConfig{Requests: 1, Window: time.Minute})(okHandler())

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/chat", nil)
		req.RemoteAddr = "172.16.0.9:4000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}
}

// =====================================================
// Security headers
// =====================================================

func TestAPISecurityHeaders(t *testing.T) {
	handler := APISecurityHeaders()(okHandler())

	tests := []struct {
		name     string
		proto    string
		wantHSTS bool
	}{
		{"plain http", "", false},
		{"behind tls proxy", "https", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q", got)
			}
			if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
				t.Errorf("X-Frame-Options = %q", got)
			}
			if hsts := w.Header().Get("Strict-Transport-Security") != ""; hsts != tt.wantHSTS {
				t.Errorf("HSTS present = %v, want %v", hsts, tt.wantHSTS)
			}
		})
	}
}
