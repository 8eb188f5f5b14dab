package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWritesJSONWithEventKey(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Service: "worker", Level: "debug", Output: &buf})
	logger.Debug("document_chunked", "chunks", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if line["event"] != "document_chunked" {
		t.Fatalf("expected event key, got %v", line)
	}
	if _, ok := line["msg"]; ok {
		t.Fatalf("msg key must be renamed: %v", line)
	}
	if line["service"] != "worker" || line["chunks"] != float64(3) {
		t.Fatalf("unexpected attributes %v", line)
	}
}

func TestNewTextFormatFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "WARNING", Format: "text", Output: &buf})
	logger.Info("dropped")
	logger.Warn("kept", "stage", "rerank")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "event=kept") || !strings.Contains(out, "stage=rerank") {
		t.Fatalf("unexpected text output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" Info ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
