package logging

import (
	"context"
	"log/slog"

	"trueedits/internal/services"
)

// Structured field keys shared by every component.
const (
	FieldComponent    = "component"
	FieldRunID        = "run_id"
	FieldJobID        = "job_id"
	FieldStage        = "stage"
	FieldVideo        = "video"
	FieldEventType    = "event_type" // e.g. "stage_complete"
	FieldErrorHint    = "error_hint" // suggested next step
	FieldImpact       = "impact"     // what the user loses when a warning fires
	FieldDecisionType = "decision_type"

	FieldProgressPercent = "progress_percent"
	FieldProgressMessage = "progress_message"
)

// ContextFields returns the run, job and stage identifiers stored in ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithContext tags logger with the identifiers found in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
