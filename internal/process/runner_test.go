package process

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"trueedits/internal/logging"
	"trueedits/internal/services"
)

func newTestRunner(opts ...Option) *Runner {
	return NewRunner(nil, logging.NewNop(), opts...)
}

func TestRunnerSuccess(t *testing.T) {
	r := newTestRunner()
	res, err := r.Run(context.Background(), "sh", "-c", "echo hello; echo warn >&2")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Output, "hello") || !strings.Contains(res.Output, "warn") {
		t.Fatalf("expected captured output, got %q", res.Output)
	}
	if r.Registry().Len() != 0 {
		t.Fatalf("registry should be empty after exit")
	}
}

func TestRunnerExitError(t *testing.T) {
	r := newTestRunner()
	_, err := r.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	if err == nil {
		t.Fatal("expected error")
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T", err)
	}
	if exitErr.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", exitErr.ExitCode)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("exit error should match ErrExternalTool")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error should include output tail: %v", err)
	}
}

func TestRunnerMissingBinary(t *testing.T) {
	_, err := newTestRunner().Run(context.Background(), "trueedits-no-such-binary")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunnerOnLine(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	_, err := newTestRunner().Exec(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo one; echo two"},
		OnLine: func(line string) {
			mu.Lock()
			lines = append(lines, line)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if strings.Join(lines, ",") != "one,two" {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestRunnerCancellation(t *testing.T) {
	r := newTestRunner(WithGrace(500 * time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := r.Run(ctx, "sh", "-c", "sleep 30")
	if !services.IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation took too long: %s", elapsed)
	}
	if r.Registry().Len() != 0 {
		t.Fatalf("registry should be empty after cancellation")
	}
}

func TestRunnerCancellationEscalatesToKill(t *testing.T) {
	r := newTestRunner(WithGrace(200 * time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := r.Run(ctx, "sh", "-c", `trap "" TERM; sleep 30`)
	if !services.IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("kill escalation took too long: %s", elapsed)
	}
}

func TestRunnerDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := newTestRunner().Run(ctx, "sh", "-c", "sleep 30")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestRunnerAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestRunner().Run(ctx, "sh", "-c", "exit 0")
	if !services.IsCancelled(err) {
		t.Fatalf("expected cancellation before start, got %v", err)
	}
}

func TestRegistryTerminateAll(t *testing.T) {
	registry := NewRegistry(logging.NewNop())
	r := NewRunner(registry, logging.NewNop())

	errCh := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), "sh", "-c", "sleep 30")
		errCh <- err
	}()

	deadline := time.Now().Add(5 * time.Second)
	for registry.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("process never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if handles := registry.Active(); len(handles) != 1 || handles[0].Name != "sh" {
		t.Fatalf("unexpected active handles %+v", handles)
	}

	if killed := registry.TerminateAll(2 * time.Second); killed != 0 {
		t.Fatalf("expected clean SIGTERM exit, killed %d", killed)
	}
	select {
	case err := <-errCh:
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("expected terminated process to report an exit error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not return after TerminateAll")
	}
	if registry.Len() != 0 {
		t.Fatal("registry should be empty")
	}
}

func TestTailBufferKeepsEnd(t *testing.T) {
	buf := newTailBuffer(5)
	_, _ = buf.Write([]byte("abc"))
	_, _ = buf.Write([]byte("defgh"))
	if got := buf.String(); got != "defgh" {
		t.Fatalf("tail = %q", got)
	}
}
