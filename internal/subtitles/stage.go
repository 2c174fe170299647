package subtitles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trueedits/internal/buildjob"
	"trueedits/internal/captions"
	"trueedits/internal/fileutil"
	langpkg "trueedits/internal/language"
	"trueedits/internal/logging"
	"trueedits/internal/services"
	"trueedits/internal/services/whisperx"
	"trueedits/internal/stage"
)

const stageName = "captions"

// Transcriber is the speech recognition surface the caption stage needs.
type Transcriber interface {
	ExtractAudio(ctx context.Context, source, dest string) error
	Transcribe(ctx context.Context, audioPath, outDir, language string) (whisperx.Transcript, error)
}

// Settings is the resolved caption configuration for one batch.
type Settings struct {
	Enabled      bool
	Segmenting   captions.Options
	Style        StyleInput
	Karaoke      Karaoke
	KaraokeFloor float64
	// Language is passed to the recognizer; empty means detect.
	Language string

	// CacheDir holds <stem>.ass scripts from earlier runs.
	CacheDir   string
	ReuseCache bool
	// Force regenerates even when a cached script matches.
	Force bool

	ArtifactWait time.Duration
	// Tools are checked by HealthCheck.
	Tools []string
}

// Stage generates the caption script for a job, reusing a cached script
// when one matches the frame.
type Stage struct {
	settings    Settings
	transcriber Transcriber
	logger      *slog.Logger
}

// NewStage constructs the caption generation stage.
func NewStage(settings Settings, transcriber Transcriber, logger *slog.Logger) *Stage {
	return &Stage{
		settings:    settings,
		transcriber: transcriber,
		logger:      logging.NewComponentLogger(logger, "caption-stage"),
	}
}

// SetLogger routes stage logs into the job-scoped logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if s == nil {
		return
	}
	s.logger = logging.NewComponentLogger(logger, "caption-stage")
}

// Name implements stage.Handler.
func (s *Stage) Name() string { return stageName }

// Skip reports disabled captions, silent videos and reusable cached
// scripts. A cache hit is recorded on the job so burn-in picks it up.
func (s *Stage) Skip(job *buildjob.Job) (bool, string) {
	if !s.settings.Enabled {
		return true, "captions disabled"
	}
	if job == nil {
		return false, ""
	}
	if !job.Media.HasAudio {
		return true, "no audio track to transcribe"
	}
	path, ok, reason := s.lookupCache(job)
	s.logger.Info("transcript cache decision",
		logging.Args(logging.DecisionAttrs("transcript_cache", cacheResult(ok), reason)...)...,
	)
	if !ok {
		return false, ""
	}
	job.Subtitles = path
	if job.Language == "" {
		job.Language = langpkg.ToISO2(s.settings.Language)
	}
	return true, "cached subtitles reused"
}

func cacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func (s *Stage) cachePath(job *buildjob.Job) string {
	if strings.TrimSpace(s.settings.CacheDir) == "" {
		return ""
	}
	return filepath.Join(s.settings.CacheDir, job.Stem+buildjob.SuffixSubtitles)
}

// lookupCache returns the cached script path when it can be burned as is.
func (s *Stage) lookupCache(job *buildjob.Job) (string, bool, string) {
	path := s.cachePath(job)
	switch {
	case path == "":
		return "", false, "no transcript cache directory"
	case !s.settings.ReuseCache:
		return "", false, "cache reuse disabled"
	case s.settings.Force:
		return "", false, "regeneration forced"
	}
	info, err := ReadScriptInfo(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, "no cached script"
		}
		logging.WarnWithContext(s.logger, "cached script unreadable; regenerating", "transcript_cache_invalid",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the cached .ass if it keeps failing"),
			logging.String(logging.FieldImpact, "captions are transcribed again"),
		)
		return "", false, "cached script unreadable"
	}
	w, h := job.Media.Video.Width, job.Media.Video.Height
	if info.PlayResX != w || info.PlayResY != h {
		return "", false, fmt.Sprintf("cached script is %dx%d, video is %dx%d", info.PlayResX, info.PlayResY, w, h)
	}
	return path, true, "cached script matches frame"
}

// Execute transcribes the job's audio and writes its caption script.
func (s *Stage) Execute(ctx context.Context, job *buildjob.Job) error {
	if s == nil || s.transcriber == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "execute", "Caption stage is not configured", nil)
	}
	if job == nil {
		return services.Wrap(services.ErrValidation, stageName, "execute", "Job is nil", nil)
	}
	width, height := job.Media.Video.Width, job.Media.Video.Height
	if width <= 0 || height <= 0 {
		return services.Wrap(services.ErrValidation, stageName, "execute", "Video dimensions unknown", nil)
	}
	job.SetState(buildjob.StateCaptionsGenerating)
	start := time.Now()

	job.Report(0, "Extracting speech audio")
	speech := job.Path(buildjob.SuffixSpeechWAV)
	if err := s.transcriber.ExtractAudio(ctx, job.VideoPath, speech); err != nil {
		return stageError("extract audio", "Speech audio extraction failed", err)
	}

	job.Report(0.1, "Transcribing speech")
	transcript, err := s.transcriber.Transcribe(ctx, speech, job.TempDir, s.settings.Language)
	if err != nil {
		return stageError("transcribe", "Transcription failed", err)
	}

	job.Report(0.8, "Building caption script")
	segments := captions.SegmentUtterances(transcript.Utterances, s.settings.Segmenting)
	if len(segments) == 0 {
		logging.WarnWithContext(s.logger, "no speech found; caption script is empty", "captions_empty",
			logging.String(logging.FieldErrorHint, "check the audio track or the transcription language"),
			logging.String(logging.FieldImpact, "video is delivered without visible captions"),
		)
	}
	style, err := CompileStyle(s.settings.Style, width, height)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageName, "style", "Invalid caption style", err)
	}
	content, err := Render(style, BuildCues(segments, s.settings.Karaoke, s.settings.KaraokeFloor), s.settings.Karaoke)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageName, "render", "Caption script render failed", err)
	}

	out := job.Path(buildjob.SuffixSubtitles)
	if err := WriteFile(out, content); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "write", "Failed to write caption script", err)
	}
	if err := fileutil.WaitForFile(ctx, out, s.settings.ArtifactWait); err != nil {
		return stageError("wait", "Caption script never appeared", err)
	}
	s.storeCache(job, content)

	job.Subtitles = out
	job.Language = transcript.Language
	job.Report(1, fmt.Sprintf("%d captions", len(segments)))
	s.logger.Info("caption script generated",
		logging.String(logging.FieldEventType, "captions_generated"),
		logging.Int("segments", len(segments)),
		logging.String("language", transcript.Language),
		logging.String("subtitle_path", out),
		logging.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *Stage) storeCache(job *buildjob.Job, content string) {
	path := s.cachePath(job)
	if path == "" {
		return
	}
	if err := WriteFile(path, content); err != nil {
		logging.WarnWithContext(s.logger, "failed to cache caption script", "transcript_cache_write_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check transcripts_dir permissions"),
			logging.String(logging.FieldImpact, "the next run transcribes again"),
		)
	}
}

func stageError(op, msg string, err error) error {
	if services.IsCancelled(err) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return services.Cancelled(stageName, err)
	}
	if errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrMissingInput, stageName, op, msg, err)
	}
	if errors.Is(err, services.ErrExternalTool) || errors.Is(err, services.ErrConfiguration) || errors.Is(err, services.ErrTimeout) {
		return err
	}
	return services.Wrap(services.ErrExternalTool, stageName, op, msg, err)
}

// HealthCheck verifies the recognizer and ffmpeg are installed.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s == nil || s.transcriber == nil {
		return stage.Unhealthy(stageName, "transcriber not configured")
	}
	if !s.settings.Enabled {
		return stage.Healthy(stageName)
	}
	return stage.ToolsHealth(stageName, s.settings.Tools...)
}
