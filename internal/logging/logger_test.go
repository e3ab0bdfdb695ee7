// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(lvl) {
			t.Errorf("ValidLevel(%q) = false, want true", lvl)
		}
	}
	if ValidLevel("verbose") {
		t.Error("ValidLevel(\"verbose\") = true, want false")
	}
}

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(Config{Level: "info", Output: &bytes.Buffer{}})

	Info().Int64("user_id", 42).Msg("Chat connection opened")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "Chat connection opened" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["user_id"] != float64(42) {
		t.Errorf("user_id = %v", entry["user_id"])
	}
}

func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	defer Init(Config{Level: "info", Output: &bytes.Buffer{}})

	Info().Msg("hidden")
	Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line written at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn line missing")
	}
}

func TestForConnection(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	defer Init(Config{Level: "info", Output: &bytes.Buffer{}})

	ctx, logger := ForConnection(context.Background(), "/chat", 7)
	logger.Info().Msg("opened")

	id := CorrelationIDFromContext(ctx)
	if len(id) != 8 {
		t.Fatalf("correlation id = %q, want 8 characters", id)
	}
	out := buf.String()
	for _, want := range []string{`"endpoint":"/chat"`, `"conn_id":7`, `"correlation_id":"` + id + `"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %s", out, want)
		}
	}

	// The logger travels with the context.
	buf.Reset()
	Ctx(ctx).Info().Msg("again")
	if !strings.Contains(buf.String(), `"conn_id":7`) {
		t.Errorf("Ctx logger lost connection fields: %q", buf.String())
	}
}

func TestForConnection_KeepsExistingCorrelationID(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "abcd1234")
	ctx, _ = ForConnection(ctx, "/watchPost", 1)
	if got := CorrelationIDFromContext(ctx); got != "abcd1234" {
		t.Errorf("correlation id = %q, want abcd1234", got)
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})
	defer Init(Config{Level: "info", Output: &bytes.Buffer{}})

	logger := NewSlogLogger().With("service", "api-layer").WithGroup("restart")
	logger.Warn("service restarted", "attempt", 3)

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"restart.service":"api-layer"`, `"restart.attempt":3`, "service restarted"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %s", out, want)
		}
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	Init(Config{Level: "error", Output: &bytes.Buffer{}})
	defer Init(Config{Level: "info", Output: &bytes.Buffer{}})

	h := NewSlogHandler()
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled at error level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error disabled at error level")
	}
}
