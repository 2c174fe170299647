package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"trueedits/internal/buildjob"
	"trueedits/internal/config"
	"trueedits/internal/logging"
	"trueedits/internal/media/audio"
	"trueedits/internal/process"
	"trueedits/internal/services"
	"trueedits/internal/stage"
)

const audioStageName = "audio"

// Isolator separates speech from background noise.
type Isolator interface {
	Isolate(ctx context.Context, input, outDir string) (string, error)
}

// AudioStage isolates the voice, mixes in ducked music and normalizes
// loudness for the target platform.
type AudioStage struct {
	cfg      *config.Config
	ffmpeg   ffmpegRunner
	isolator Isolator
	logger   *slog.Logger
}

// NewAudioStage constructs the audio stage. A nil isolator disables voice
// isolation regardless of configuration.
func NewAudioStage(cfg *config.Config, exec process.Executor, isolator Isolator, logger *slog.Logger) *AudioStage {
	s := &AudioStage{cfg: cfg, ffmpeg: ffmpegRunner{binary: cfg.Tools.FFmpeg, exec: exec}, isolator: isolator}
	s.SetLogger(logger)
	return s
}

// SetLogger updates the stage's logging destination.
func (s *AudioStage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "audio-stage")
}

// Name implements stage.Handler.
func (s *AudioStage) Name() string { return audioStageName }

// Skip leaves silent videos alone; there is no voice to process.
func (s *AudioStage) Skip(job *buildjob.Job) (bool, string) {
	if job != nil && !job.Media.HasAudio {
		return true, "video has no audio track"
	}
	return false, ""
}

// Execute runs voice isolation, conforming and the final mix.
func (s *AudioStage) Execute(ctx context.Context, job *buildjob.Job) error {
	if job == nil {
		return services.Wrap(services.ErrValidation, audioStageName, "execute", "Job is nil", nil)
	}
	logger := logging.WithContext(ctx, s.logger)
	start := time.Now()

	spec, err := s.graphSpec(job)
	if err != nil {
		return err
	}

	if s.cfg.Audio.VoiceIsolation && s.isolator != nil {
		voice, err := s.isolateVoice(ctx, job, logger)
		if err != nil {
			return err
		}
		spec.IsolatedVoice = voice
		job.Voice = voice
	}

	job.SetState(buildjob.StateDuckingMixing)
	graph, err := audio.BuildGraph(spec)
	if err != nil {
		return services.Wrap(services.ErrValidation, audioStageName, "graph", "Invalid audio settings", err)
	}
	logger.Info("audio graph built",
		logging.String(logging.FieldEventType, "audio_graph"),
		logging.String("filter", graph.Filter),
		logging.Int("inputs", len(graph.Inputs)),
	)
	out := job.Path(buildjob.SuffixMixed)
	job.Report(0, "Mixing audio")
	if err := s.ffmpeg.run(ctx, job, logger, audioStageName, graph.Args(out), job.Media.Duration); err != nil {
		return err
	}
	if _, err := validateOutput(ctx, s.cfg.Tools.FFprobe, audioStageName, out, true); err != nil {
		return err
	}
	job.Advance(out)
	logger.Info("audio finished",
		logging.String(logging.FieldEventType, "audio_finished"),
		logging.String("output", out),
		logging.Bool("isolated_voice", spec.IsolatedVoice != ""),
		logging.Bool("music", spec.Music != nil),
		logging.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *AudioStage) graphSpec(job *buildjob.Job) (audio.GraphSpec, error) {
	level, err := audio.ParseCleanupLevel(s.cfg.Audio.Cleanup)
	if err != nil {
		return audio.GraphSpec{}, services.Wrap(services.ErrConfiguration, audioStageName, "settings", "Invalid cleanup level", err)
	}
	platform, err := audio.ParsePlatform(s.cfg.Audio.Platform)
	if err != nil {
		return audio.GraphSpec{}, services.Wrap(services.ErrConfiguration, audioStageName, "settings", "Invalid platform", err)
	}
	spec := audio.GraphSpec{
		VideoPath: job.Current,
		Cleanup:   level,
		Target:    platform.Target(),
	}
	if music := strings.TrimSpace(s.cfg.Audio.MusicPath); music != "" {
		if _, err := os.Stat(music); err != nil {
			return audio.GraphSpec{}, services.Wrap(services.ErrMissingInput, audioStageName, "settings", fmt.Sprintf("Music track %s not found", music), err)
		}
		spec.Music = &audio.Music{Path: music, Volume: s.cfg.Audio.MusicVolume}
	}
	return spec, nil
}

// isolateVoice returns the conformed isolated voice, or "" when isolation
// failed and the raw voice should be used. Only cancellation and conform
// failures are returned as errors.
func (s *AudioStage) isolateVoice(ctx context.Context, job *buildjob.Job, logger *slog.Logger) (string, error) {
	job.SetState(buildjob.StateVoiceIsolating)
	job.Report(0, "Extracting voice")
	raw := job.Path(buildjob.SuffixVoiceWAV)
	if err := s.ffmpeg.run(ctx, job, logger, audioStageName, VoiceExtractArgs(job.Current, raw), job.Media.Duration); err != nil {
		if services.IsCancelled(err) {
			return "", err
		}
		s.warnIsolation(logger, "voice extraction failed; using the original voice", err)
		return "", nil
	}

	job.Report(0.3, "Isolating voice")
	isolated, err := s.isolator.Isolate(ctx, raw, job.TempDir)
	if err != nil {
		if services.IsCancelled(err) {
			return "", err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", services.Cancelled(audioStageName, ctxErr)
		}
		s.warnIsolation(logger, "voice isolation failed; using the original voice", err)
		return "", nil
	}

	job.SetState(buildjob.StateNormalizing)
	job.Report(0, "Conforming isolated voice")
	conformed := job.Path(buildjob.SuffixVoiceNorm)
	if err := s.ffmpeg.run(ctx, job, logger, audioStageName, ConformVoiceArgs(isolated, conformed, job.Media.Duration), job.Media.Duration); err != nil {
		return "", err
	}
	return conformed, nil
}

func (s *AudioStage) warnIsolation(logger *slog.Logger, msg string, err error) {
	logging.WarnWithContext(logger, msg, "voice_isolation_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the deepFilter installation"),
		logging.String(logging.FieldImpact, "background noise is only reduced by the ffmpeg cleanup chain"),
	)
}

const (
	// Quiet speech is lifted before the model so it is not under-driven.
	voicePrenormFilter = "highpass=f=100,loudnorm=I=-16:TP=-1.5:LRA=11"
	// Removes residual room tone left by the model.
	voiceGateFilter = "agate=threshold=-45dB:ratio=1.5:knee=6:attack=50:release=300"
)

// VoiceExtractArgs writes the first audio stream as 48kHz mono PCM for the
// isolation model, high-passed and pre-normalized.
func VoiceExtractArgs(source, dest string) []string {
	return append(baseArgs(),
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-af", voicePrenormFilter,
		"-ac", "1",
		"-ar", sampleRate,
		"-c:a", "pcm_s16le",
		dest,
	)
}

// ConformVoiceArgs gates the isolated voice, resamples it to 48kHz stereo
// and pads or trims it to the video duration so the mix stays in sync.
func ConformVoiceArgs(source, dest string, seconds float64) []string {
	filter := voiceGateFilter + ",aresample=" + sampleRate
	if seconds > 0 {
		filter += ",apad"
	}
	args := append(baseArgs(),
		"-i", source,
		"-af", filter,
		"-ac", "2",
		"-ar", sampleRate,
		"-c:a", "pcm_s16le",
	)
	if seconds > 0 {
		args = append(args, "-t", strconv.FormatFloat(seconds, 'f', 3, 64))
	}
	return append(args, dest)
}

// HealthCheck verifies ffmpeg and, when isolation is on, the isolation CLI.
func (s *AudioStage) HealthCheck(context.Context) stage.Health {
	if s.cfg == nil {
		return stage.Unhealthy(audioStageName, "configuration unavailable")
	}
	tools := []string{s.cfg.Tools.FFmpeg, s.cfg.Tools.FFprobe}
	if s.cfg.Audio.VoiceIsolation {
		tools = append(tools, s.cfg.Tools.DeepFilter)
	}
	return stage.ToolsHealth(audioStageName, tools...)
}
