package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trueedits/internal/buildjob"
	"trueedits/internal/logging"
	"trueedits/internal/notifications"
	"trueedits/internal/queue"
	"trueedits/internal/services"
	"trueedits/internal/stage"
)

// Options controls one stage invocation and its history persistence.
type Options struct {
	Logger   *slog.Logger
	Store    *queue.Store
	Notifier notifications.Service
	Handler  stage.Handler
	Job      *buildjob.Job
	// Record is the persisted job row; nil skips persistence.
	Record *queue.Job
	// Percent is the batch progress recorded when the stage starts.
	Percent float64
}

// Outcome reports how a stage ended when it did not fail.
type Outcome struct {
	Skipped    bool
	SkipReason string
	Duration   time.Duration
}

// Run skips or executes a stage, records its status on the job and, when a
// store is configured, persists progress. Cancellation is returned as is and
// never counted as a failure.
func Run(ctx context.Context, opts Options) (Outcome, error) {
	if opts.Handler == nil {
		return Outcome{}, errors.New("stage handler unavailable")
	}
	if opts.Job == nil {
		return Outcome{}, errors.New("build job is required")
	}
	name := opts.Handler.Name()

	stageCtx := services.WithStage(ctx, name)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if skip, reason := opts.Handler.Skip(opts.Job); skip {
		opts.Job.MarkStage(name, buildjob.StageSkipped)
		stageLogger.Info(
			"stage skipped",
			logging.String(logging.FieldEventType, "stage_skipped"),
			logging.String("reason", reason),
		)
		persist(stageCtx, stageLogger, opts, DeriveStageLabel(name), "Skipped: "+reason)
		return Outcome{Skipped: true, SkipReason: reason}, nil
	}

	start := time.Now()
	opts.Job.MarkStage(name, buildjob.StageRunning)
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("source_file", opts.Job.VideoPath),
		logging.String("input", opts.Job.Current),
	)
	persist(stageCtx, stageLogger, opts, DeriveStageLabel(name), fmt.Sprintf("%s started", DeriveStageLabel(name)))

	if err := opts.Handler.Execute(stageCtx, opts.Job); err != nil {
		return Outcome{Duration: time.Since(start)}, handleFailure(stageCtx, stageLogger, opts, name, err)
	}

	opts.Job.MarkStage(name, buildjob.StageDone)
	elapsed := time.Since(start)
	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("state", string(opts.Job.CurrentState())),
		logging.String("output", opts.Job.Current),
		logging.Duration("stage_duration", elapsed),
	)
	return Outcome{Duration: elapsed}, nil
}

func handleFailure(ctx context.Context, logger *slog.Logger, opts Options, stageName string, stageErr error) error {
	if services.IsCancelled(stageErr) {
		opts.Job.MarkStage(stageName, buildjob.StageCancelled)
		logger.Info(
			"stage cancelled",
			logging.String(logging.FieldEventType, "stage_cancelled"),
			logging.String("reason", queue.UserStopReason),
		)
		return stageErr
	}
	opts.Job.MarkStage(stageName, buildjob.StageFailed)
	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("resolved_status", string(queue.StatusFailed)),
		logging.String(logging.FieldErrorHint, failureHint(stageErr)),
		logging.Error(stageErr),
	)

	if opts.Notifier != nil {
		label := fmt.Sprintf("%s (%s)", opts.Job.Stem, stageName)
		if err := opts.Notifier.NotifyError(ctx, stageErr, label); err != nil {
			logger.Debug("stage error notification failed", logging.Error(err))
		}
	}
	return stageErr
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrMissingInput):
		return "check that the referenced file exists"
	case errors.Is(err, services.ErrConfiguration):
		return "run trueedits config validate"
	case errors.Is(err, services.ErrTimeout):
		return "raise the timeout or check the tool is not stuck"
	case errors.Is(err, services.ErrValidation):
		return "inspect the job temp directory with workflow.keep_temp enabled"
	default:
		return "check the tool output in the log"
	}
}

func persist(ctx context.Context, logger *slog.Logger, opts Options, label, message string) {
	if opts.Store == nil || opts.Record == nil {
		return
	}
	opts.Record.Status = queue.StatusRunning
	opts.Record.SetProgress(label, message, opts.Percent)
	if err := opts.Store.UpdateJob(ctx, opts.Record); err != nil {
		logging.WarnWithContext(logger, "failed to persist stage progress", "history_update_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.history_db access"),
			logging.String(logging.FieldImpact, "history shows stale progress for this job"),
		)
	}
}

// DeriveStageLabel renders a stage key for display, e.g. "end_card" becomes
// "End Card".
func DeriveStageLabel(name string) string {
	parts := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, " ")
}
