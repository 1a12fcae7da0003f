package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestGetLogger_TagsModule(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("debug")
	defer SetLevel("info")

	GetLogger("Ledger").Warn().Str("sessionId", "s1").Msg("write failed")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["module"] != "Ledger" {
		t.Errorf("expected module Ledger, got %v", entry["module"])
	}
	if entry["sessionId"] != "s1" {
		t.Errorf("expected sessionId s1, got %v", entry["sessionId"])
	}
	if entry["level"] != "warn" {
		t.Errorf("expected warn level, got %v", entry["level"])
	}
}

func TestSetLevel_FiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("error")
	defer SetLevel("info")

	Info().Msg("hidden")
	GetLogger("Test").Debug().Msg("hidden too")

	if buf.Len() != 0 {
		t.Errorf("expected no output below error level, got %q", buf.String())
	}
}
