package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory locations used by the pipeline.
type Paths struct {
	// WorkDir holds per-job temp directories and the batch lock file.
	WorkDir string `toml:"work_dir"`
	// OutputDir receives finished videos. Empty means next to the source.
	OutputDir      string `toml:"output_dir"`
	TranscriptsDir string `toml:"transcripts_dir"`
	EndCardsDir    string `toml:"endcards_dir"`
	FontsDir       string `toml:"fonts_dir"`
	LogDir         string `toml:"log_dir"`
	HistoryDB      string `toml:"history_db"`
}

// Tools names the external executables.
type Tools struct {
	FFmpeg     string `toml:"ffmpeg"`
	FFprobe    string `toml:"ffprobe"`
	UVX        string `toml:"uvx"`
	DeepFilter string `toml:"deep_filter"`
}

// Transcription configures WhisperX.
type Transcription struct {
	Model string `toml:"model"`
	// Language is an ISO code or name; empty lets WhisperX detect it.
	Language       string `toml:"language"`
	CUDAEnabled    bool   `toml:"cuda_enabled"`
	VADMethod      string `toml:"vad_method"`
	HFToken        string `toml:"hf_token"`
	TimeoutMinutes int    `toml:"timeout_minutes"`
}

// CaptionConfig controls segmentation, styling and karaoke highlighting.
type CaptionConfig struct {
	Enabled     bool    `toml:"enabled"`
	LengthMode  string  `toml:"length_mode"`
	MaxChars    int     `toml:"max_chars"`
	Padding     float64 `toml:"padding"`
	MinGap      float64 `toml:"min_gap"`
	MinDuration float64 `toml:"min_duration"`

	Font              string  `toml:"font"`
	FontSize          float64 `toml:"font_size"`
	PreviewHeight     int     `toml:"preview_height"`
	PrimaryColor      string  `toml:"primary_color"`
	BackgroundEnabled bool    `toml:"background_enabled"`
	BackgroundColor   string  `toml:"background_color"`
	BackgroundOpacity float64 `toml:"background_opacity"`
	Bold              bool    `toml:"bold"`
	Italic            bool    `toml:"italic"`
	Outline           int     `toml:"outline"`
	Shadow            int     `toml:"shadow"`

	PositionX       float64 `toml:"position_x"`
	PositionY       float64 `toml:"position_y"`
	Anchor          string  `toml:"anchor"`
	MaxMarginH      float64 `toml:"max_margin_h"`
	MaxMarginV      float64 `toml:"max_margin_v"`
	ForcePortrait   bool    `toml:"force_portrait"`
	ReuseTranscript bool    `toml:"reuse_transcript"`

	Karaoke               bool    `toml:"karaoke"`
	KaraokeBaseColor      string  `toml:"karaoke_base_color"`
	KaraokeHighlightColor string  `toml:"karaoke_highlight_color"`
	KaraokeFloor          float64 `toml:"karaoke_floor"`
}

// AudioConfig controls voice cleanup, music ducking and loudness.
type AudioConfig struct {
	Cleanup        string  `toml:"cleanup"`
	Platform       string  `toml:"platform"`
	MusicPath      string  `toml:"music_path"`
	MusicVolume    float64 `toml:"music_volume"`
	VoiceIsolation bool    `toml:"voice_isolation"`
}

// BrandingConfig controls the end card appended to every video.
type BrandingConfig struct {
	EndCard     string `toml:"end_card"`
	AutoEndCard bool   `toml:"auto_end_card"`
}

// Workflow contains batch timing settings.
type Workflow struct {
	ArtifactWaitSeconds int  `toml:"artifact_wait_seconds"`
	StopGraceSeconds    int  `toml:"stop_grace_seconds"`
	CleanupRetries      int  `toml:"cleanup_retries"`
	KeepTemp            bool `toml:"keep_temp"`
}

// Notifications configures ntfy pushes for batch events.
type Notifications struct {
	// NtfyTopic is the full topic URL; empty disables notifications.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	RetentionDays  int               `toml:"retention_days"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for trueedits.
//
// Configuration sections by subsystem:
//   - Paths: work, output, transcript cache, end card, font and log directories
//   - Tools: ffmpeg, ffprobe, uvx and deepFilter executables
//   - Transcription: WhisperX model, language and device
//   - Captions: segmentation, style, position and karaoke
//   - Audio: cleanup level, platform loudness, music and voice isolation
//   - Branding: end card selection
//   - Workflow: artifact waits, stop grace period and temp cleanup
//   - Notifications: ntfy topic for batch start, finish and failures
//   - Logging: log format, level, retention and per-stage overrides
type Config struct {
	Paths         Paths          `toml:"paths"`
	Tools         Tools          `toml:"tools"`
	Transcription Transcription  `toml:"transcription"`
	Captions      CaptionConfig  `toml:"captions"`
	Audio         AudioConfig    `toml:"audio"`
	Branding      BrandingConfig `toml:"branding"`
	Workflow      Workflow       `toml:"workflow"`
	Notifications Notifications  `toml:"notifications"`
	Logging       Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("trueedits.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a batch writes into. The output
// directory is only created when configured; an empty value means outputs
// land next to their sources.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.Paths.TranscriptsDir, c.Paths.LogDir, filepath.Dir(c.Paths.HistoryDB)}
	if c.Paths.OutputDir != "" {
		dirs = append(dirs, c.Paths.OutputDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Encode renders the config as TOML for `config show`.
func (c *Config) Encode() ([]byte, error) {
	var b strings.Builder
	enc := toml.NewEncoder(&b)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return []byte(b.String()), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
