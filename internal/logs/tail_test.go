package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trueedits/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trueedits-20260101-120000.log")
	writeLog(t, path, "a\nb\nc\n")

	tests := []struct {
		limit int
		want  []string
	}{
		{2, []string{"b", "c"}},
		{5, []string{"a", "b", "c"}},
		{0, nil},
	}
	for _, tt := range tests {
		result, err := logs.Tail(path, tt.limit)
		if err != nil {
			t.Fatalf("Tail(%d): %v", tt.limit, err)
		}
		if len(result.Lines) != len(tt.want) {
			t.Fatalf("Tail(%d) = %#v, want %#v", tt.limit, result.Lines, tt.want)
		}
		for i := range tt.want {
			if result.Lines[i] != tt.want[i] {
				t.Fatalf("Tail(%d) = %#v, want %#v", tt.limit, result.Lines, tt.want)
			}
		}
		if result.Offset != 6 {
			t.Fatalf("Tail(%d) offset = %d, want 6", tt.limit, result.Offset)
		}
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(filepath.Join(t.TempDir(), "missing.log"), 10)
	if err != nil || len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("unexpected result %+v, %v", result, err)
	}
}

func TestReadFromLeavesPartialLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trueedits-1.log")
	writeLog(t, path, "one\ntw")

	result, err := logs.ReadFrom(path, 0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "one" || result.Offset != 4 {
		t.Fatalf("unexpected result %+v", result)
	}

	appendLog(t, path, "o\r\n")
	result, err = logs.ReadFrom(path, result.Offset)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "two" {
		t.Fatalf("unexpected lines %#v", result.Lines)
	}

	writeLog(t, path, "new\n")
	result, err = logs.ReadFrom(path, 100)
	if err != nil || len(result.Lines) != 1 || result.Lines[0] != "new" {
		t.Fatalf("expected truncated file to restart, got %+v, %v", result, err)
	}
}

func TestFollowDeliversNewLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trueedits-1.log")
	writeLog(t, path, "start\n")
	start, err := logs.Tail(path, 1)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, start.Offset, 10*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	appendLog(t, path, "later\n")
	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("follow did not deliver the appended line")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if got[0] != "later" {
		t.Fatalf("unexpected lines %#v", got)
	}
}

func TestLatestPicksNewestFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := logs.Latest(dir); !errors.Is(err, logs.ErrNoLogs) {
		t.Fatalf("expected ErrNoLogs, got %v", err)
	}

	older := filepath.Join(dir, "trueedits-20260101-090000.log")
	newer := filepath.Join(dir, "trueedits-20260102-090000.log")
	writeLog(t, older, "x\n")
	writeLog(t, newer, "y\n")
	writeLog(t, filepath.Join(dir, "other.log"), "z\n")
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	got, err := logs.Latest(dir)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got != newer {
		t.Fatalf("Latest = %s, want %s", got, newer)
	}
}
