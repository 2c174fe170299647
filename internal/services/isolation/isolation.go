// Package isolation runs the DeepFilterNet command line tool to separate
// speech from background noise.
package isolation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"trueedits/internal/logging"
	"trueedits/internal/process"
	"trueedits/internal/services"
)

// DefaultCommand is the DeepFilterNet CLI entry point.
const DefaultCommand = "deepFilter"

// Service isolates voice from a 48kHz mono WAV.
type Service struct {
	binary string
	exec   process.Executor
	logger *slog.Logger
	// postFilter enables DeepFilterNet's extra attenuation of very noisy
	// sections.
	postFilter bool
}

// Option configures a Service.
type Option func(*Service)

// WithPostFilter enables the --pf post filter.
func WithPostFilter(enabled bool) Option {
	return func(s *Service) { s.postFilter = enabled }
}

// NewService returns a Service that runs binary through exec.
func NewService(binary string, exec process.Executor, logger *slog.Logger, opts ...Option) *Service {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultCommand
	}
	s := &Service{
		binary: binary,
		exec:   exec,
		logger: logging.NewComponentLogger(logger, "isolation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Binary returns the configured command.
func (s *Service) Binary() string {
	return s.binary
}

// Isolate runs DeepFilterNet on input and returns the enhanced WAV it
// wrote into outDir. DeepFilterNet names its output after the input stem
// plus a model suffix, so the newest matching WAV is returned.
func (s *Service) Isolate(ctx context.Context, input, outDir string) (string, error) {
	if _, err := os.Stat(input); err != nil {
		return "", services.Wrap(services.ErrMissingInput, "audio", "isolate voice", "voice track missing", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("isolate voice: ensure dir: %w", err)
	}
	args := []string{input, "-o", outDir}
	if s.postFilter {
		args = append(args, "--pf")
	}

	res, err := s.exec.Exec(ctx, process.Command{Name: s.binary, Args: args})
	if err != nil {
		if services.IsCancelled(err) {
			return "", err
		}
		return "", services.Wrap(services.ErrExternalTool, "audio", "isolate voice", "deepFilter failed", err)
	}

	output, err := findOutput(outDir, input)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "audio", "isolate voice", "deepFilter produced no output", err)
	}
	s.logger.Info("voice isolated",
		logging.String(logging.FieldEventType, "voice_isolated"),
		logging.String("output_path", output),
		logging.Duration("duration", res.Duration),
	)
	return output, nil
}

func findOutput(outDir, input string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	matches, err := filepath.Glob(filepath.Join(outDir, globEscape(stem)+"*.wav"))
	if err != nil {
		return "", err
	}
	inputAbs, _ := filepath.Abs(input)
	type candidate struct {
		path string
		mod  int64
	}
	var candidates []candidate
	for _, m := range matches {
		if abs, _ := filepath.Abs(m); abs == inputAbs {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || info.Size() == 0 {
			continue
		}
		candidates = append(candidates, candidate{path: m, mod: info.ModTime().UnixNano()})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no %s*.wav in %s: %w", stem, outDir, os.ErrNotExist)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].mod > candidates[j].mod })
	return candidates[0].path, nil
}

func globEscape(s string) string {
	replacer := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return replacer.Replace(s)
}
