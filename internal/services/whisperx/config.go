package whisperx

import "time"

// Config selects the model, device and external binaries for a
// transcription. Zero values fall back to the defaults applied by
// NewService.
type Config struct {
	Model       string
	CUDAEnabled bool
	// VADMethod is "silero" (default) or "pyannote". Pyannote needs HFToken.
	VADMethod string
	HFToken   string
	// Timeout bounds one transcription. Zero means no limit beyond ctx.
	Timeout      time.Duration
	UVXBinary    string
	FFmpegBinary string
}

const (
	defaultModel = "large-v3"
	vadSilero    = "silero"
	vadPyannote  = "pyannote"

	cudaIndexURL = "https://download.pytorch.org/whl/cu128"
	pypiIndexURL = "https://pypi.org/simple"

	// speechSampleRate is the rate WhisperX resamples to internally, so the
	// extracted speech track is written at it directly.
	speechSampleRate = "16000"
)

func (c Config) withDefaults() Config {
	if c.UVXBinary == "" {
		c.UVXBinary = "uvx"
	}
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.VADMethod == "" {
		c.VADMethod = vadSilero
	}
	return c
}

// decodeFlags tune WhisperX for short spoken clips: sentence-level
// segments with word timings, small VAD chunks and a wide beam.
var decodeFlags = []string{
	"--batch_size", "4",
	"--output_format", "json",
	"--segment_resolution", "sentence",
	"--chunk_size", "15",
	"--vad_onset", "0.08",
	"--vad_offset", "0.07",
	"--beam_size", "10",
	"--best_of", "10",
	"--temperature", "0.0",
	"--patience", "1.0",
}
