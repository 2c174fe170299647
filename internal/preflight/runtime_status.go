package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"trueedits/internal/config"
	"trueedits/internal/language"
)

// CheckTranscriptionFromConfig summarizes the WhisperX settings.
func CheckTranscriptionFromConfig(cfg *config.Config) Result {
	const name = "Transcription"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Captions.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if cfg.Transcription.VADMethod == "pyannote" && strings.TrimSpace(cfg.Transcription.HFToken) == "" {
		return Result{Name: name, Detail: "pyannote VAD requires hf_token"}
	}
	device := "cpu"
	if cfg.Transcription.CUDAEnabled {
		device = "cuda"
	}
	lang := "auto-detect"
	if cfg.Transcription.Language != "" {
		lang = language.DisplayName(cfg.Transcription.Language)
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("model %s on %s, %s, %s VAD", cfg.Transcription.Model, device, lang, cfg.Transcription.VADMethod),
	}
}

// CheckEndCardsFromConfig reports the explicit end card or the languages
// available for automatic selection.
func CheckEndCardsFromConfig(cfg *config.Config) Result {
	const name = "End cards"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if cfg.Branding.EndCard != "" {
		return CheckFileReadable(name, cfg.Branding.EndCard)
	}
	if !cfg.Branding.AutoEndCard || cfg.Paths.EndCardsDir == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	langs := EndCardLanguages(cfg.Paths.EndCardsDir)
	if len(langs) == 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (no cards)", cfg.Paths.EndCardsDir)}
	}
	names := make([]string, 0, len(langs))
	for _, code := range langs {
		names = append(names, language.DisplayName(code))
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(names, ", ")}
}

// EndCardLanguages lists the language codes that have an <code>.mp4 card in dir.
func EndCardLanguages(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var codes []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".mp4") {
			continue
		}
		codes = append(codes, strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
	}
	sort.Strings(codes)
	return codes
}

// GPUProbe reports the CUDA device WhisperX would run on.
type GPUProbe struct {
	Detected bool
	Name     string
	Memory   string
}

// ProbeGPU queries nvidia-smi for the first GPU.
func ProbeGPU() GPUProbe {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return GPUProbe{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=name,memory.total", "--format=csv,noheader")
	output, err := cmd.Output()
	if err != nil {
		return GPUProbe{}
	}
	return parseGPUProbe(string(output))
}

func parseGPUProbe(output string) GPUProbe {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	if line == "" {
		return GPUProbe{}
	}
	name, memory, _ := strings.Cut(line, ",")
	return GPUProbe{Detected: true, Name: strings.TrimSpace(name), Memory: strings.TrimSpace(memory)}
}

// GPUDetail renders a display-friendly summary for status output.
func (p GPUProbe) GPUDetail() string {
	if !p.Detected {
		return "No CUDA device detected"
	}
	if p.Memory == "" {
		return p.Name
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.Memory)
}
