package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"trueedits/internal/buildjob"
	"trueedits/internal/config"
	"trueedits/internal/logging"
	"trueedits/internal/media/ffprobe"
	"trueedits/internal/queue"
	"trueedits/internal/services"
	"trueedits/internal/stage"
	"trueedits/internal/stageexec"
)

// jobRun carries the batch context one video needs.
type jobRun struct {
	cfg       *config.Config
	runID     string
	slot      jobSlot
	video     string
	stages    []stage.Handler
	overrides map[string]string
	emitter   *progressEmitter
}

// processJob is the per-video error boundary. It always cleans up the job's
// temp directory and records the outcome, including after a panic.
func (m *Manager) processJob(ctx context.Context, jr jobRun) (output string, err error) {
	jobID := uuid.NewString()
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, m.logger).With(logging.String(logging.FieldVideo, filepath.Base(jr.video)))

	// Stage failures are announced by stageexec; everything else that fails
	// the video (missing input, probe, panics) is announced here.
	stageNotified := false
	defer func() {
		if err == nil || stageNotified || services.IsCancelled(err) {
			return
		}
		if nerr := m.notifier.NotifyError(context.WithoutCancel(ctx), err, filepath.Base(jr.video)); nerr != nil {
			logger.Debug("video error notification failed", logging.Error(nerr))
		}
	}()

	video := jr.video
	if abs, absErr := filepath.Abs(video); absErr == nil {
		video = abs
	}
	job, err := buildjob.New(jobID, video, jr.cfg.Paths.WorkDir)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "workflow", "job", "Invalid video path", err)
	}
	record := m.createJobRecord(ctx, logger, jr.runID, jr.slot.index, job)
	start := time.Now()

	defer func() {
		m.finishJob(ctx, jr.cfg, logger, job, record, err, time.Since(start))
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked",
				logging.String(logging.FieldEventType, "job_panic"),
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
			)
			err = services.Wrap(services.ErrExternalTool, "workflow", "job", fmt.Sprintf("unexpected panic: %v", r), nil)
		}
	}()

	if _, statErr := os.Stat(video); statErr != nil {
		return "", services.Wrap(services.ErrMissingInput, "workflow", "job", fmt.Sprintf("Video not found: %s", video), statErr)
	}
	if err := job.EnsureTempDir(); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "workflow", "job", "Failed to create temp directory", err)
	}
	if err := m.probeSource(ctx, jr.cfg, job); err != nil {
		return "", err
	}
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("source_file", job.VideoPath),
		logging.String("temp_dir", job.TempDir),
		logging.Int("width", job.Media.Video.Width),
		logging.Int("height", job.Media.Video.Height),
		logging.Bool("has_audio", job.Media.HasAudio),
		logging.Float64("duration_seconds", job.Media.Duration),
	)

	reporter := &stageReporter{emitter: jr.emitter, slot: jr.slot, lastPercent: -1}
	job.OnProgress = reporter.report
	for idx, handler := range jr.stages {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", services.Cancelled(handler.Name(), ctxErr)
		}
		reporter.stage = idx
		_, err := stageexec.Run(ctx, stageexec.Options{
			Logger:   stageLogger(logger, jr.overrides, handler.Name()),
			Store:    m.store,
			Notifier: m.notifier,
			Handler:  handler,
			Job:      job,
			Record:   record,
			Percent:  float64(jr.slot.stagePercent(idx, 0)),
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && !services.IsCancelled(err) {
				return "", services.Cancelled(handler.Name(), ctxErr)
			}
			stageNotified = true
			return "", err
		}
	}
	job.SetState(buildjob.StateComplete)
	return job.Output, nil
}

// probeSource fills job.Media from the source video.
func (m *Manager) probeSource(ctx context.Context, cfg *config.Config, job *buildjob.Job) error {
	result, err := m.probe(ctx, cfg.Tools.FFprobe, job.VideoPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return services.Cancelled("probe", ctxErr)
		}
		return services.Wrap(services.ErrExternalTool, "probe", "inspect", "Failed to probe video", err)
	}
	info, err := result.VideoInfo(cfg.Captions.ForcePortrait)
	if err != nil {
		if errors.Is(err, ffprobe.ErrNoVideoStream) {
			return services.Wrap(services.ErrValidation, "probe", "inspect", "File has no video stream", err)
		}
		return services.Wrap(services.ErrValidation, "probe", "inspect", "Video stream is unreadable", err)
	}
	job.Media = buildjob.Media{
		Video:    info,
		HasAudio: result.HasAudio(),
		Duration: result.DurationSeconds(),
	}
	return nil
}

// finishJob moves the job to its terminal state, removes its temp directory
// and records the result.
func (m *Manager) finishJob(ctx context.Context, cfg *config.Config, logger *slog.Logger, job *buildjob.Job, record *queue.Job, err error, elapsed time.Duration) {
	status := queue.StatusCompleted
	message := ""
	switch {
	case err == nil:
		job.SetState(buildjob.StateComplete)
	case services.IsCancelled(err):
		job.SetState(buildjob.StateCancelled)
		status = queue.StatusCancelled
		message = queue.UserStopReason
	default:
		job.SetState(buildjob.StateFailed)
		status = queue.StatusFailed
		message = err.Error()
	}

	_ = job.Cleanup(buildjob.CleanupOptions{
		Retries: cfg.Workflow.CleanupRetries,
		Keep:    cfg.Workflow.KeepTemp,
		Logger:  logger,
	})
	m.finishJobRecord(ctx, logger, record, status, job.Output, message)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("state", string(job.CurrentState())),
		logging.Duration("duration", elapsed),
	}
	switch status {
	case queue.StatusCompleted:
		logger.Info("job finished", logging.Args(append(attrs, logging.String("output", job.Output))...)...)
	case queue.StatusCancelled:
		logger.Info("job stopped", logging.Args(append(attrs, logging.String("reason", message))...)...)
	default:
		logger.Error("job failed", logging.Args(append(attrs, logging.Error(err))...)...)
	}
}
