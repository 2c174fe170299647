package encoding

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"trueedits/internal/buildjob"
	"trueedits/internal/logging"
	"trueedits/internal/process"
	"trueedits/internal/services"
)

// Encoder settings shared by every re-encode.
const (
	videoPreset  = "medium"
	videoCRF     = "18"
	audioBitrate = "192k"
	sampleRate   = "48000"
)

// ffmpegRunner runs ffmpeg with machine-readable progress on stdout.
type ffmpegRunner struct {
	binary string
	exec   process.Executor
}

// baseArgs are the leading flags of every invocation.
func baseArgs() []string {
	return []string{"-y", "-hide_banner", "-nostdin"}
}

// run executes ffmpeg and reports progress against total seconds of output.
func (r ffmpegRunner) run(ctx context.Context, job *buildjob.Job, logger *slog.Logger, stageName string, args []string, total float64) error {
	if r.exec == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "ffmpeg", "Command runner unavailable", nil)
	}
	label := job.CurrentState().Label()
	var parser progressParser
	sampler := logging.NewProgressSampler(10)
	full := append([]string{"-progress", "pipe:1", "-nostats"}, args...)
	logger.Debug("launching ffmpeg",
		logging.String(logging.FieldEventType, "ffmpeg_started"),
		logging.String("command", r.binary),
		logging.String("args", strings.Join(full, " ")),
	)
	_, err := r.exec.Exec(ctx, process.Command{
		Name: r.binary,
		Args: full,
		OnLine: func(line string) {
			update, ok := parser.Feed(line)
			if !ok {
				return
			}
			message := progressMessageText(label, update, total)
			percent := -1.0
			if f := update.fraction(total); f >= 0 {
				percent = f * 100
				job.Report(f, message)
			}
			if sampler.Allow(label, percent) {
				logger.Info("ffmpeg progress",
					logging.String(logging.FieldEventType, "ffmpeg_progress"),
					logging.Float64("percent", percent),
					logging.String(logging.FieldProgressMessage, message),
				)
			}
		},
	})
	if err != nil {
		return toolError(stageName, "ffmpeg", err)
	}
	return nil
}

// toolError adds stage context to a runner failure without hiding
// cancellation, deadlines or a missing binary.
func toolError(stageName, op string, err error) error {
	if services.IsCancelled(err) || errors.Is(err, services.ErrTimeout) || errors.Is(err, services.ErrConfiguration) {
		return err
	}
	return services.Wrap(services.ErrExternalTool, stageName, op, "ffmpeg failed", err)
}
