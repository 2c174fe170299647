package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trueedits/internal/buildjob"
	"trueedits/internal/config"
	"trueedits/internal/logging"
	"trueedits/internal/process"
	"trueedits/internal/services"
	"trueedits/internal/stage"
)

const burnStageName = "burn"

// BurnStage renders the job's caption script into the video frames.
type BurnStage struct {
	cfg    *config.Config
	ffmpeg ffmpegRunner
	logger *slog.Logger
}

// NewBurnStage constructs the burn-in stage.
func NewBurnStage(cfg *config.Config, exec process.Executor, logger *slog.Logger) *BurnStage {
	s := &BurnStage{cfg: cfg, ffmpeg: ffmpegRunner{binary: cfg.Tools.FFmpeg, exec: exec}}
	s.SetLogger(logger)
	return s
}

// SetLogger updates the stage's logging destination.
func (s *BurnStage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "burn-stage")
}

// Name implements stage.Handler.
func (s *BurnStage) Name() string { return burnStageName }

// Skip passes the source through untouched when captions are off or no
// script was produced.
func (s *BurnStage) Skip(job *buildjob.Job) (bool, string) {
	if !s.cfg.Captions.Enabled {
		return true, "captions disabled"
	}
	if job == nil || strings.TrimSpace(job.Subtitles) == "" {
		return true, "no caption script"
	}
	return false, ""
}

// Execute burns job.Subtitles into job.Current.
func (s *BurnStage) Execute(ctx context.Context, job *buildjob.Job) error {
	if job == nil {
		return services.Wrap(services.ErrValidation, burnStageName, "execute", "Job is nil", nil)
	}
	video := job.Media.Video
	if video.Width <= 0 || video.Height <= 0 {
		return services.Wrap(services.ErrValidation, burnStageName, "execute", "Video dimensions unknown", nil)
	}
	logger := logging.WithContext(ctx, s.logger)
	job.SetState(buildjob.StateCaptionsBurning)
	start := time.Now()

	out := job.Path(buildjob.SuffixCaptioned)
	filter := SubtitlesFilter(job.Subtitles, video.Width, video.Height, s.cfg.Paths.FontsDir)
	args := append(baseArgs(),
		"-i", job.Current,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", videoPreset,
		"-crf", videoCRF,
		"-c:a", "copy",
		"-movflags", "+faststart",
		out,
	)
	job.Report(0, "Burning captions")
	if err := s.ffmpeg.run(ctx, job, logger, burnStageName, args, job.Media.Duration); err != nil {
		return err
	}
	if _, err := validateOutput(ctx, s.cfg.Tools.FFprobe, burnStageName, out, job.Media.HasAudio); err != nil {
		return err
	}
	job.Advance(out)
	logger.Info("captions burned",
		logging.String(logging.FieldEventType, "captions_burned"),
		logging.String("output", out),
		logging.Duration("duration", time.Since(start)),
	)
	return nil
}

// HealthCheck verifies ffmpeg and ffprobe are installed.
func (s *BurnStage) HealthCheck(context.Context) stage.Health {
	if s.cfg == nil {
		return stage.Unhealthy(burnStageName, "configuration unavailable")
	}
	return stage.ToolsHealth(burnStageName, s.cfg.Tools.FFmpeg, s.cfg.Tools.FFprobe)
}

// SubtitlesFilter builds the burn-in video filter. original_size pins
// libass to the script's PlayRes so positions match the probed frame.
func SubtitlesFilter(assPath string, width, height int, fontsDir string) string {
	filter := fmt.Sprintf("subtitles=%s:original_size=%dx%d", escapeFilterValue(assPath), width, height)
	if dir := strings.TrimSpace(fontsDir); dir != "" {
		filter += ":fontsdir=" + escapeFilterValue(dir)
	}
	return filter
}

var (
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	graphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

// escapeFilterValue escapes a value for the option level and then for the
// filtergraph level, as ffmpeg parses -vf twice.
func escapeFilterValue(value string) string {
	return graphEscaper.Replace(optionEscaper.Replace(value))
}
