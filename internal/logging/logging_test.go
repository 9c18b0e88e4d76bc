// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
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

// captureGlobal swaps the global logger for one writing to a buffer.
// Tests using it must not run in parallel.
func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line %q is not JSON: %v", line, err)
	}
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCtx_AddsIdentifiers(t *testing.T) {
	buf := captureGlobal(t)

	ctx := ContextWithCorrelationID(context.Background(), "corr1234")
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithAccountID(ctx, "acct-9")
	Ctx(ctx).Info().Msg("evaluated")

	entry := decodeLine(t, buf)
	for key, want := range map[string]string{
		"correlation_id": "corr1234",
		"request_id":     "req-1",
		"account_id":     "acct-9",
		"message":        "evaluated",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %q", key, entry[key], want)
		}
	}
}

func TestGenerateCorrelationID(t *testing.T) {
	a, b := GenerateCorrelationID(), GenerateCorrelationID()
	if len(a) != 8 || a == b {
		t.Errorf("GenerateCorrelationID() = %q, %q; want distinct 8-char ids", a, b)
	}
}

func TestSlogHandler_GroupsAndAttrs(t *testing.T) {
	buf := captureGlobal(t)

	logger := NewSlogLogger().With("supervisor", "fintrack").WithGroup("svc")
	logger.Warn("service restarted", "name", "dispatcher", "attempt", 2)

	entry := decodeLine(t, buf)
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
	if entry["supervisor"] != "fintrack" {
		t.Errorf("supervisor = %v, want fintrack (added before the group)", entry["supervisor"])
	}
	if entry["svc.name"] != "dispatcher" {
		t.Errorf("svc.name = %v, want dispatcher", entry["svc.name"])
	}
	if entry["svc.attempt"] != float64(2) {
		t.Errorf("svc.attempt = %v, want 2", entry["svc.attempt"])
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	_ = captureGlobal(t)
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	h := NewSlogHandler()
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}
