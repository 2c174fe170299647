package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trueedits/internal/config"
	"trueedits/internal/encoding"
	"trueedits/internal/logging"
	"trueedits/internal/media/ffprobe"
	"trueedits/internal/notifications"
	"trueedits/internal/organizer"
	"trueedits/internal/process"
	"trueedits/internal/queue"
	"trueedits/internal/services/isolation"
	"trueedits/internal/services/whisperx"
	"trueedits/internal/stage"
	"trueedits/internal/subtitles"
)

// ProbeFunc inspects a media file.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Manager runs batches. It is safe to reuse across batches but runs one
// batch at a time; the work directory lock rejects concurrent batches from
// other processes.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service

	registry *process.Registry
	exec     process.Executor
	probe    ProbeFunc

	transcriber subtitles.Transcriber
	isolator    encoding.Isolator
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithExecutor replaces the process runner used for external tools.
func WithExecutor(exec process.Executor) ManagerOption {
	return func(m *Manager) { m.exec = exec }
}

// WithProbe replaces the source probe.
func WithProbe(probe ProbeFunc) ManagerOption {
	return func(m *Manager) { m.probe = probe }
}

// WithTranscriber replaces the WhisperX service.
func WithTranscriber(t subtitles.Transcriber) ManagerOption {
	return func(m *Manager) { m.transcriber = t }
}

// WithIsolator replaces the DeepFilterNet service.
func WithIsolator(i encoding.Isolator) ManagerOption {
	return func(m *Manager) { m.isolator = i }
}

// WithNotifier replaces the ntfy notifier.
func WithNotifier(n notifications.Service) ManagerOption {
	return func(m *Manager) { m.notifier = n }
}

// NewManager constructs a batch manager. store may be nil, in which case no
// history is recorded.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		notifier: notifications.NewService(cfg),
		registry: process.NewRegistry(logger),
		probe:    ffprobe.Inspect,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.exec == nil {
		m.exec = process.NewRunner(m.registry, logger, process.WithGrace(m.stopGrace()))
	}
	return m
}

// Registry exposes the process registry used for cancellation.
func (m *Manager) Registry() *process.Registry {
	return m.registry
}

func (m *Manager) stopGrace() time.Duration {
	if m.cfg == nil || m.cfg.Workflow.StopGraceSeconds <= 0 {
		return process.DefaultGrace
	}
	return time.Duration(m.cfg.Workflow.StopGraceSeconds) * time.Second
}

// buildStages assembles the pipeline for the effective batch config in
// execution order.
func (m *Manager) buildStages(cfg *config.Config, force bool) ([]stage.Handler, error) {
	settings, err := CaptionSettings(cfg, force)
	if err != nil {
		return nil, err
	}
	transcriber := m.transcriber
	if transcriber == nil {
		transcriber = whisperx.NewService(whisperx.Config{
			Model:        cfg.Transcription.Model,
			CUDAEnabled:  cfg.Transcription.CUDAEnabled,
			VADMethod:    cfg.Transcription.VADMethod,
			HFToken:      cfg.Transcription.HFToken,
			Timeout:      time.Duration(cfg.Transcription.TimeoutMinutes) * time.Minute,
			UVXBinary:    cfg.Tools.UVX,
			FFmpegBinary: cfg.Tools.FFmpeg,
		}, m.exec, m.logger)
	}
	isolator := m.isolator
	if isolator == nil && cfg.Audio.VoiceIsolation {
		isolator = isolation.NewService(cfg.Tools.DeepFilter, m.exec, m.logger,
			isolation.WithPostFilter(cfg.Audio.Cleanup == "full"))
	}
	return []stage.Handler{
		subtitles.NewStage(settings, transcriber, m.logger),
		encoding.NewBurnStage(cfg, m.exec, m.logger),
		encoding.NewEndCardStage(cfg, m.exec, m.logger),
		encoding.NewAudioStage(cfg, m.exec, isolator, m.logger),
		organizer.NewOrganizer(cfg, m.logger),
	}, nil
}

// StageHealth runs every stage's health check against the effective config
// for req.
func (m *Manager) StageHealth(ctx context.Context, req Request) ([]stage.Health, error) {
	cfg, err := ApplyRequest(m.cfg, req)
	if err != nil {
		return nil, err
	}
	stages, err := m.buildStages(cfg, req.ForceCaptions)
	if err != nil {
		return nil, fmt.Errorf("build stages: %w", err)
	}
	results := make([]stage.Health, 0, len(stages))
	for _, handler := range stages {
		results = append(results, handler.HealthCheck(ctx))
	}
	return results, nil
}
