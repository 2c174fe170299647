package workflow

import (
	"context"
	"log/slog"

	"trueedits/internal/buildjob"
	"trueedits/internal/logging"
	"trueedits/internal/queue"
)

// History writes are best effort: a broken database never fails a video.

func (m *Manager) markInterrupted(ctx context.Context, logger *slog.Logger) {
	if m.store == nil {
		return
	}
	n, err := m.store.MarkInterrupted(ctx)
	if err != nil {
		m.warnHistory(logger, "failed to reconcile interrupted jobs", err)
		return
	}
	if n > 0 {
		logger.Info("marked interrupted jobs from an earlier process",
			logging.String(logging.FieldEventType, "history_reconciled"),
			logging.Int64("jobs", n),
		)
	}
}

func (m *Manager) createRun(ctx context.Context, logger *slog.Logger, id string, total int) *queue.Run {
	if m.store == nil {
		return nil
	}
	run, err := m.store.CreateRun(ctx, id, total)
	if err != nil {
		m.warnHistory(logger, "failed to record batch run", err)
		return nil
	}
	return run
}

func (m *Manager) finishRun(ctx context.Context, logger *slog.Logger, run *queue.Run, summary Summary, stopped bool) {
	if m.store == nil || run == nil {
		return
	}
	run.Processed = summary.Processed
	run.Failed = summary.Failed
	run.Cancelled = summary.Cancelled
	switch {
	case stopped:
		run.Status = queue.StatusCancelled
		run.Message = queue.UserStopReason
	case summary.Failed > 0:
		run.Status = queue.StatusFailed
	default:
		run.Status = queue.StatusCompleted
	}
	if err := m.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		m.warnHistory(logger, "failed to record batch result", err)
	}
}

func (m *Manager) createJobRecord(ctx context.Context, logger *slog.Logger, runID string, position int, job *buildjob.Job) *queue.Job {
	if m.store == nil {
		return nil
	}
	record, err := m.store.CreateJob(ctx, job.ID, runID, position, job.VideoPath, job.Stem)
	if err != nil {
		m.warnHistory(logger, "failed to record job", err)
		return nil
	}
	return record
}

func (m *Manager) finishJobRecord(ctx context.Context, logger *slog.Logger, record *queue.Job, status queue.Status, output, message string) {
	if m.store == nil || record == nil {
		return
	}
	record.OutputPath = output
	record.Finish(status, message)
	if err := m.store.UpdateJob(context.WithoutCancel(ctx), record); err != nil {
		m.warnHistory(logger, "failed to record job result", err)
	}
}

func (m *Manager) warnHistory(logger *slog.Logger, msg string, err error) {
	logging.WarnWithContext(logger, msg, "history_write_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check paths.history_db access"),
		logging.String(logging.FieldImpact, "trueedits history may be incomplete"),
	)
}
