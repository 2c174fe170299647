package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trueedits/internal/queue"
)

var (
	ErrMissingInput  = errors.New("missing input")
	ErrExternalTool  = errors.New("external tool error")
	ErrCancelled     = errors.New("cancelled")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Cancelled tags a stop request so callers can tell it apart from failure.
func Cancelled(stage string, cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	return Wrap(ErrCancelled, stage, "", "stopped by user", cause)
}

// IsCancelled reports whether err stems from a stop request.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// FailureStatus maps a job error to the status recorded in the history store.
func FailureStatus(err error) queue.Status {
	if IsCancelled(err) {
		return queue.StatusCancelled
	}
	return queue.StatusFailed
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
