package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"trueedits/internal/config"
	"trueedits/internal/logging"
	"trueedits/internal/queue"
	"trueedits/internal/services"
	"trueedits/internal/stage"
)

// LockFileName is created in the work directory while a batch runs.
const LockFileName = "trueedits.lock"

// ErrBatchRunning is returned when another process holds the work
// directory lock.
var ErrBatchRunning = errors.New("another batch is already running")

// RunBatch processes req.Videos in order. Per-video failures are recorded in
// the summary and the batch continues; cancelling ctx stops the in-flight
// video and skips the rest. The returned error is reserved for problems that
// prevent the batch from starting.
func (m *Manager) RunBatch(ctx context.Context, req Request, progress ProgressFunc) (Summary, error) {
	emitter := newProgressEmitter(progress, m.logger)
	fail := func(err error) (Summary, error) {
		emitter.emit(0, err.Error())
		return Summary{Errors: []string{err.Error()}}, err
	}

	if len(req.Videos) == 0 {
		return fail(services.Wrap(services.ErrValidation, "workflow", "start", "No video files provided", nil))
	}
	cfg, err := ApplyRequest(m.cfg, req)
	if err != nil {
		return fail(err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fail(services.Wrap(services.ErrConfiguration, "workflow", "start", "Failed to create directories", err))
	}

	lock := flock.New(filepath.Join(cfg.Paths.WorkDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fail(fmt.Errorf("acquire work directory lock: %w", err))
	}
	if !locked {
		return fail(fmt.Errorf("%w on %s", ErrBatchRunning, cfg.Paths.WorkDir))
	}
	defer func() { _ = lock.Unlock() }()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, m.logger)

	m.markInterrupted(ctx, logger)
	if err := runPreflightChecks(cfg, logger); err != nil {
		return fail(err)
	}
	stages, err := m.buildStages(cfg, req.ForceCaptions)
	if err != nil {
		return fail(services.Wrap(services.ErrConfiguration, "workflow", "start", "Invalid caption settings", err))
	}

	total := len(req.Videos)
	run := m.createRun(ctx, logger, runID, total)
	start := time.Now()
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("videos", total),
		logging.Bool("captions", cfg.Captions.Enabled),
		logging.String("platform", cfg.Audio.Platform),
		logging.String("cleanup", cfg.Audio.Cleanup),
	)
	if err := m.notifier.NotifyBatchStarted(ctx, total); err != nil {
		logger.Debug("batch start notification failed", logging.Error(err))
	}
	emitter.emit(progressJobsStart, fmt.Sprintf("Starting pipeline: %d video(s) to process", total))

	summary, stopped := m.runJobs(ctx, cfg, runID, req.Videos, stages, emitter)

	if stopped {
		if n := m.registry.TerminateAll(m.stopGrace()); n > 0 {
			logger.Info("terminated external processes",
				logging.String(logging.FieldEventType, "processes_terminated"),
				logging.Int("count", n),
			)
		}
		summary.Errors = append(summary.Errors, queue.UserStopReason)
		emitter.emit(emitter.percent(), queue.UserStopReason)
	}
	summary.Success = summary.Failed == 0 && !stopped

	emitter.emit(progressSummary, fmt.Sprintf("Processed: %d/%d videos successfully", summary.Processed, total))
	switch {
	case stopped:
		emitter.emit(progressDone, fmt.Sprintf("Batch stopped after %d video(s).", summary.Processed))
	case summary.Failed > 0:
		emitter.emit(progressDone, fmt.Sprintf("Batch complete with %d error(s). Check logs.", summary.Failed))
	default:
		emitter.emit(progressDone, "Batch complete! All videos processed successfully.")
	}

	m.finishRun(ctx, logger, run, summary, stopped)
	elapsed := time.Since(start)
	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed),
		logging.Int("cancelled", summary.Cancelled),
		logging.Bool("stopped", stopped),
		logging.Duration("duration", elapsed),
	)
	notifyCtx := context.WithoutCancel(ctx)
	if err := m.notifier.NotifyBatchCompleted(notifyCtx, summary.Processed, summary.Failed, summary.Cancelled, elapsed); err != nil {
		logger.Debug("batch completion notification failed", logging.Error(err))
	}
	return summary, nil
}

// runJobs is the batch loop. It reports whether the batch was stopped.
func (m *Manager) runJobs(ctx context.Context, cfg *config.Config, runID string, videos []string, stages []stage.Handler, emitter *progressEmitter) (Summary, bool) {
	var summary Summary
	for idx, video := range videos {
		if ctx.Err() != nil {
			return summary, true
		}
		slot := jobSlot{index: idx, total: len(videos), stages: len(stages)}
		name := filepath.Base(video)
		emitter.emit(slot.startPercent(), fmt.Sprintf("%s Processing %s...", slot.label(), name))

		output, err := m.processJob(ctx, jobRun{
			cfg:       cfg,
			runID:     runID,
			slot:      slot,
			video:     video,
			stages:    stages,
			overrides: cfg.Logging.StageOverrides,
			emitter:   emitter,
		})
		switch {
		case err == nil:
			summary.Processed++
			emitter.emit(slot.endPercent(), fmt.Sprintf("%s ✓ %s complete", slot.label(), name))
			if nerr := m.notifier.NotifyVideoCompleted(ctx, video, output); nerr != nil {
				m.logger.Debug("video notification failed", logging.Error(nerr))
			}
		case services.IsCancelled(err):
			summary.Cancelled++
			return summary, true
		default:
			summary.Failed++
			entry := fmt.Sprintf("%s: %v", name, err)
			summary.Errors = append(summary.Errors, entry)
			emitter.emit(slot.endPercent(), fmt.Sprintf("%s ✗ %s", slot.label(), entry))
		}
	}
	return summary, false
}
