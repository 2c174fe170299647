package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"trueedits/internal/queue"
	"trueedits/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "burn", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"burn", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarkerOrCause(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestCancelledIsDistinctFromFailure(t *testing.T) {
	err := services.Cancelled("captions", nil)
	if !services.IsCancelled(err) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("cancellation should not look like a tool failure")
	}
	if !services.IsCancelled(fmt.Errorf("wrapped: %w", context.Canceled)) {
		t.Fatal("raw context cancellation should count as cancelled")
	}
}

func TestFailureStatusMapping(t *testing.T) {
	missing := services.Wrap(services.ErrMissingInput, "prepare", "music", "file not found", nil)
	if status := services.FailureStatus(missing); status != queue.StatusFailed {
		t.Fatalf("expected failed for missing input, got %s", status)
	}
	if status := services.FailureStatus(services.Cancelled("audio", nil)); status != queue.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", status)
	}
	if status := services.FailureStatus(nil); status != queue.StatusFailed {
		t.Fatalf("expected failed for nil error, got %s", status)
	}
}
