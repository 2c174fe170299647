package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestTeeHandlerCollapses(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	inner := slog.NewTextHandler(&bytes.Buffer{}, nil)
	if got := TeeHandler(nil, inner); got != inner {
		t.Fatalf("expected the lone handler back, got %T", got)
	}
}

func TestTeeHandlerRespectsEachLevel(t *testing.T) {
	var console, file bytes.Buffer
	logger := slog.New(TeeHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		newJSONHandler(&file, slog.LevelDebug, false),
	)).With("video", "clip.mp4").WithGroup("stage")

	logger.Debug("probe done", "duration", 12.5)
	logger.Warn("music missing")

	if strings.Contains(console.String(), "probe done") {
		t.Fatalf("console must not receive debug records: %q", console.String())
	}
	if !strings.Contains(console.String(), "music missing") {
		t.Fatalf("console missing warn record: %q", console.String())
	}
	lines := strings.Split(strings.TrimSpace(file.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 file records, got %d: %q", len(lines), file.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["level"] != "debug" || record["video"] != "clip.mp4" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"].(string); !ok {
		t.Fatalf("expected string ts, got %v", record["ts"])
	}
	stage, ok := record["stage"].(map[string]any)
	if !ok || stage["duration"] != 12.5 {
		t.Fatalf("expected grouped duration, got %v", record["stage"])
	}
}

func TestWithLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	quiet := WithLevelOverride(base, slog.LevelWarn)
	if quiet.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("override should disable info")
	}
	quiet.With("stage", "audio").Info("hidden")
	quiet.Error("shown")

	loud := WithLevelOverride(quiet, slog.LevelDebug)
	loud.Debug("debug visible again")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record leaked through override: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "debug visible again") {
		t.Fatalf("missing expected records: %q", out)
	}
	if _, ok := WithLevelOverride(nil, slog.LevelInfo).Handler().(NoopHandler); !ok {
		t.Fatal("nil logger should yield a no-op logger")
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := formatTimestamp(time.Time{}); got != "" {
		t.Fatalf("zero time rendered %q", got)
	}
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)
	if got := formatTimestamp(ts); got != "2026-03-04 05:06:07" {
		t.Fatalf("formatTimestamp = %q", got)
	}
}
