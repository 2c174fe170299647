package whisperx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"trueedits/internal/captions"
	langpkg "trueedits/internal/language"
	"trueedits/internal/logging"
	"trueedits/internal/process"
	"trueedits/internal/services"
)

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg    Config
	exec   process.Executor
	logger *slog.Logger
}

// NewService creates a WhisperX service that runs its commands through exec.
func NewService(cfg Config, exec process.Executor, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg.withDefaults(),
		exec:   exec,
		logger: logging.NewComponentLogger(logger, "whisperx"),
	}
}

// Transcript is the parsed WhisperX result.
type Transcript struct {
	// Language is the ISO 639-1 code WhisperX used or detected.
	Language   string
	Utterances []captions.Utterance
	// JSONPath is the raw WhisperX output.
	JSONPath string
}

// ExtractAudio writes the first audio stream of source to dest as mono
// 16kHz PCM.
func (s *Service) ExtractAudio(ctx context.Context, source, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("extract audio: ensure dir: %w", err)
	}
	_, err := s.exec.Exec(ctx, process.Command{
		Name: s.cfg.FFmpegBinary,
		Args: buildFFmpegExtractArgs(source, dest),
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "captions", "extract speech", "ffmpeg could not extract the audio track", err)
	}
	return nil
}

// Transcribe runs WhisperX on audioPath and parses the JSON it writes to
// outDir. An empty language lets WhisperX detect it.
func (s *Service) Transcribe(ctx context.Context, audioPath, outDir, language string) (Transcript, error) {
	if audioPath == "" {
		return Transcript{}, services.Wrap(services.ErrValidation, "captions", "transcribe", "audio path required", nil)
	}
	if outDir == "" {
		outDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Transcript{}, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	lang := langpkg.ToISO2(language)
	s.logger.Info("transcription started",
		logging.String(logging.FieldEventType, "transcription_start"),
		logging.String("model", s.cfg.Model),
		logging.Bool("cuda", s.cfg.CUDAEnabled),
		logging.String("language", orAuto(lang)),
	)

	_, err := s.exec.Exec(ctx, process.Command{
		Name: s.cfg.UVXBinary,
		Args: s.buildArgs(audioPath, outDir, lang),
		// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
		Env: torchEnv(),
	})
	if err != nil {
		if services.IsCancelled(err) {
			return Transcript{}, err
		}
		return Transcript{}, services.Wrap(services.ErrExternalTool, "captions", "whisperx", "transcription failed", err)
	}

	jsonPath := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))+".json")
	payload, err := LoadPayload(jsonPath)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrExternalTool, "captions", "whisperx", "transcript output unreadable", err)
	}

	transcript := Transcript{
		Language:   firstNonEmpty(langpkg.ToISO2(payload.Language), lang),
		Utterances: payload.Utterances(),
		JSONPath:   jsonPath,
	}
	s.logger.Info("transcription completed",
		logging.String(logging.FieldEventType, "transcription_complete"),
		logging.String("language", orAuto(transcript.Language)),
		logging.Int("utterances", len(transcript.Utterances)),
	)
	return transcript, nil
}

func torchEnv() []string {
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") != "" {
		return nil
	}
	return []string{"TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1"}
}

func buildFFmpegExtractArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", speechSampleRate,
		"-c:a", "pcm_s16le",
		dest,
	}
}

// buildArgs returns the uvx arguments that run WhisperX on source and
// write its JSON into outputDir. An empty language lets WhisperX detect it.
func (s *Service) buildArgs(source, outputDir, language string) []string {
	args := []string{"--index-url", pypiIndexURL}
	if s.cfg.CUDAEnabled {
		args = []string{"--index-url", cudaIndexURL, "--extra-index-url", pypiIndexURL}
	}
	args = append(args, "whisperx", source, "--model", s.cfg.Model, "--output_dir", outputDir)
	args = append(args, decodeFlags...)
	args = append(args, "--vad_method", s.cfg.VADMethod)
	if s.cfg.VADMethod == vadPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}
	if language != "" {
		args = append(args, "--language", language)
	}
	if s.cfg.CUDAEnabled {
		return append(args, "--device", "cuda")
	}
	return append(args, "--device", "cpu", "--compute_type", "float32")
}

func orAuto(lang string) string {
	if lang == "" {
		return "auto"
	}
	return lang
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
