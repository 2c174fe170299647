package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"trueedits/internal/deps"
	"trueedits/internal/stage"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusError, "not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "FFmpeg:", "[ERROR] not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "FFmpeg", Available: false},
		{Name: "uvx", Available: true, Command: "uvx"},
		{Name: "deepFilter", Available: false, Optional: true, Detail: "not installed"},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[ERROR] Missing FFmpeg") {
		t.Fatalf("expected summary line first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] not available") {
		t.Fatalf("expected error detail in second line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[OK] Ready (command: uvx)") {
		t.Fatalf("expected ready detail in third line, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "[WARN] not installed") {
		t.Fatalf("expected warn detail in fourth line, got %q", lines[3])
	}

	optionalOnly := dependencyLines(statuses[1:], false)
	if !strings.Contains(optionalOnly[0], "[WARN] Optional missing: deepFilter") {
		t.Fatalf("expected optional summary, got %q", optionalOnly[0])
	}
}

func TestStageHealthLines(t *testing.T) {
	lines := stageHealthLines([]stage.Health{
		stage.Healthy("end_card"),
		{Name: "captions", Detail: "uvx not found"},
	}, false)
	if !strings.Contains(lines[0], "End Card:") || !strings.Contains(lines[0], "[OK] Ready") {
		t.Fatalf("unexpected ready line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] uvx not found") {
		t.Fatalf("unexpected failure line %q", lines[1])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenderTableAlignsAndPads(t *testing.T) {
	out := renderTable([]string{"Result", "Count"}, [][]string{{"Edited", "12"}, {"Failed"}}, 1)
	if !strings.Contains(out, "Edited") || !strings.Contains(out, "Failed") {
		t.Fatalf("missing rows in %q", out)
	}
	if renderTable(nil, [][]string{{"x"}}) != "" {
		t.Fatal("expected empty output without headers")
	}
}
