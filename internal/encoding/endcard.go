package encoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"trueedits/internal/buildjob"
	"trueedits/internal/config"
	langpkg "trueedits/internal/language"
	"trueedits/internal/logging"
	"trueedits/internal/media/ffprobe"
	"trueedits/internal/process"
	"trueedits/internal/services"
	"trueedits/internal/stage"
)

const endCardStageName = "end_card"

// EndCardChoice is the outcome of end card selection.
type EndCardChoice struct {
	Path   string
	Reason string
}

// ResolveEndCard picks the card to append. An explicit path wins and must
// exist. Otherwise, with auto selection on, <dir>/<lang>.mp4 is used when
// present for the transcript language. An empty Path means no card.
func ResolveEndCard(branding config.BrandingConfig, dir, language string) (EndCardChoice, error) {
	if explicit := strings.TrimSpace(branding.EndCard); explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return EndCardChoice{}, services.Wrap(services.ErrMissingInput, endCardStageName, "resolve", fmt.Sprintf("End card %s not found", explicit), err)
		}
		if info.IsDir() {
			return EndCardChoice{}, services.Wrap(services.ErrMissingInput, endCardStageName, "resolve", fmt.Sprintf("End card %s is a directory", explicit), nil)
		}
		return EndCardChoice{Path: explicit, Reason: "explicit end card"}, nil
	}
	if !branding.AutoEndCard {
		return EndCardChoice{Reason: "end card disabled"}, nil
	}
	if strings.TrimSpace(dir) == "" {
		return EndCardChoice{Reason: "no end card directory"}, nil
	}
	code := langpkg.ToISO2(language)
	if code == "" {
		return EndCardChoice{Reason: "transcript language unknown"}, nil
	}
	candidate := filepath.Join(dir, code+".mp4")
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() && info.Size() > 0 {
		return EndCardChoice{Path: candidate, Reason: "auto end card for " + code}, nil
	}
	return EndCardChoice{Reason: "no end card for " + code}, nil
}

// EndCardStage conforms an end card to the main video and concatenates it.
type EndCardStage struct {
	cfg    *config.Config
	ffmpeg ffmpegRunner
	logger *slog.Logger
}

// NewEndCardStage constructs the end card stage.
func NewEndCardStage(cfg *config.Config, exec process.Executor, logger *slog.Logger) *EndCardStage {
	s := &EndCardStage{cfg: cfg, ffmpeg: ffmpegRunner{binary: cfg.Tools.FFmpeg, exec: exec}}
	s.SetLogger(logger)
	return s
}

// SetLogger updates the stage's logging destination.
func (s *EndCardStage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "endcard-stage")
}

// Name implements stage.Handler.
func (s *EndCardStage) Name() string { return endCardStageName }

// Skip reports when no card applies. Resolution errors do not skip so
// Execute can surface them.
func (s *EndCardStage) Skip(job *buildjob.Job) (bool, string) {
	if job == nil {
		return false, ""
	}
	choice, err := ResolveEndCard(s.cfg.Branding, s.cfg.Paths.EndCardsDir, s.language(job))
	if err != nil {
		return false, ""
	}
	attrs := logging.DecisionAttrs("end_card", decisionResult(choice.Path != ""), choice.Reason)
	s.logger.Info("end card decision", logging.Args(append(attrs, logging.String("end_card", choice.Path))...)...)
	if choice.Path == "" {
		return true, choice.Reason
	}
	return false, ""
}

// language prefers the detected transcript language and falls back to the
// requested one when captions did not run.
func (s *EndCardStage) language(job *buildjob.Job) string {
	if lang := strings.TrimSpace(job.Language); lang != "" {
		return lang
	}
	return s.cfg.Transcription.Language
}

func decisionResult(applied bool) string {
	if applied {
		return "append"
	}
	return "skip"
}

// Execute appends the resolved card to job.Current.
func (s *EndCardStage) Execute(ctx context.Context, job *buildjob.Job) error {
	if job == nil {
		return services.Wrap(services.ErrValidation, endCardStageName, "execute", "Job is nil", nil)
	}
	choice, err := ResolveEndCard(s.cfg.Branding, s.cfg.Paths.EndCardsDir, s.language(job))
	if err != nil {
		return err
	}
	if choice.Path == "" {
		return nil
	}
	logger := logging.WithContext(ctx, s.logger)
	job.SetState(buildjob.StateEndCardAppending)
	start := time.Now()

	probe, err := probeMedia(ctx, s.cfg.Tools.FFprobe, choice.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return services.Cancelled(endCardStageName, ctxErr)
		}
		return services.Wrap(services.ErrExternalTool, endCardStageName, "probe", "Failed to probe end card", err)
	}
	card, err := probe.VideoInfo(false)
	if err != nil {
		if errors.Is(err, ffprobe.ErrNoVideoStream) {
			return services.Wrap(services.ErrValidation, endCardStageName, "probe", "End card has no video stream", err)
		}
		return services.Wrap(services.ErrValidation, endCardStageName, "probe", "End card is unreadable", err)
	}
	cardDuration := probe.DurationSeconds()
	plan := ffprobe.PlanEndCard(job.Media.Video, card, probe.HasAudio())
	logger.Info("end card plan",
		logging.String(logging.FieldEventType, "end_card_plan"),
		logging.String("end_card", choice.Path),
		logging.Bool("needs_scale", plan.NeedsScale),
		logging.Bool("needs_frame_rate", plan.NeedsFrameRate),
		logging.Bool("add_silent_audio", plan.AddSilentAudio && job.Media.HasAudio),
		logging.String("encoder", plan.Encoder),
	)

	normalized := job.Path(buildjob.SuffixEndCard)
	job.Report(0, "Conforming end card")
	normalizeArgs := NormalizeEndCardArgs(choice.Path, normalized, plan, job.Media.HasAudio, cardDuration)
	if err := s.ffmpeg.run(ctx, job, logger, endCardStageName, normalizeArgs, 0); err != nil {
		return err
	}

	out := job.Path(buildjob.SuffixWithEndCard)
	total := job.Media.Duration + cardDuration
	job.Report(0, "Appending end card")
	if err := s.ffmpeg.run(ctx, job, logger, endCardStageName, ConcatArgs(job.Current, normalized, out, plan, job.Media.HasAudio), total); err != nil {
		return err
	}
	result, err := validateOutput(ctx, s.cfg.Tools.FFprobe, endCardStageName, out, job.Media.HasAudio)
	if err != nil {
		return err
	}
	if d := result.DurationSeconds(); d > 0 {
		job.Media.Duration = d
	} else {
		job.Media.Duration = total
	}
	job.Advance(out)
	logger.Info("end card appended",
		logging.String(logging.FieldEventType, "end_card_appended"),
		logging.String("output", out),
		logging.Float64("card_seconds", cardDuration),
		logging.Duration("duration", time.Since(start)),
	)
	return nil
}

// NormalizeEndCardArgs re-encodes the card into the main video's geometry,
// frame rate and pixel format. When the main video has audio the card gets
// a 48kHz stereo track, silent if it has none of its own.
func NormalizeEndCardArgs(card, out string, plan ffprobe.EndCardPlan, withAudio bool, cardSeconds float64) []string {
	args := append(baseArgs(), "-i", card)
	silent := withAudio && plan.AddSilentAudio
	if silent {
		args = append(args, "-f", "lavfi")
		if cardSeconds > 0 {
			args = append(args, "-t", strconv.FormatFloat(cardSeconds, 'f', 3, 64))
		}
		args = append(args, "-i", "anullsrc=r="+sampleRate+":cl=stereo")
	}
	args = append(args, "-map", "0:v:0")
	switch {
	case silent:
		args = append(args, "-map", "1:a:0")
	case withAudio:
		args = append(args, "-map", "0:a:0")
	}
	args = append(args,
		"-vf", plan.VideoFilter(),
		"-c:v", plan.Encoder,
		"-preset", videoPreset,
		"-crf", videoCRF,
	)
	if withAudio {
		args = append(args, "-c:a", "aac", "-b:a", audioBitrate, "-ar", sampleRate, "-ac", "2", "-shortest")
	} else {
		args = append(args, "-an")
	}
	return append(args, out)
}

// ConcatFilter joins the main video and the card, with or without audio.
func ConcatFilter(withAudio bool) string {
	if withAudio {
		return "[0:v][0:a][1:v][1:a]concat=n=2:v=1:a=1[v][a]"
	}
	return "[0:v][1:v]concat=n=2:v=1:a=0[v]"
}

// ConcatArgs appends the normalized card to main.
func ConcatArgs(main, card, out string, plan ffprobe.EndCardPlan, withAudio bool) []string {
	args := append(baseArgs(),
		"-i", main,
		"-i", card,
		"-filter_complex", ConcatFilter(withAudio),
		"-map", "[v]",
	)
	if withAudio {
		args = append(args, "-map", "[a]")
	}
	args = append(args,
		"-c:v", plan.Encoder,
		"-preset", videoPreset,
		"-crf", videoCRF,
		"-pix_fmt", plan.PixFmt,
	)
	if withAudio {
		args = append(args, "-c:a", "aac", "-b:a", audioBitrate, "-ar", sampleRate, "-ac", "2")
	}
	return append(args, "-movflags", "+faststart", out)
}

// HealthCheck verifies ffmpeg and ffprobe are installed.
func (s *EndCardStage) HealthCheck(context.Context) stage.Health {
	if s.cfg == nil {
		return stage.Unhealthy(endCardStageName, "configuration unavailable")
	}
	return stage.ToolsHealth(endCardStageName, s.cfg.Tools.FFmpeg, s.cfg.Tools.FFprobe)
}
