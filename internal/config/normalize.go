package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnvOverrides()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeTranscription()
	c.normalizeCaptions()
	c.normalizeAudio()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

// applyEnvOverrides lets the environment win over the file for the settings
// most often changed per invocation.
func (c *Config) applyEnvOverrides() {
	if value, ok := os.LookupEnv("TRUEEDITS_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	if value, ok := os.LookupEnv("TRUEEDITS_WORK_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.WorkDir = value
	}
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.output_dir", &c.Paths.OutputDir, ""},
		{"paths.transcripts_dir", &c.Paths.TranscriptsDir, defaultTranscriptsDir},
		{"paths.endcards_dir", &c.Paths.EndCardsDir, defaultEndCardsDir},
		{"paths.fonts_dir", &c.Paths.FontsDir, ""},
		{"paths.log_dir", &c.Paths.LogDir, ""},
		{"paths.history_db", &c.Paths.HistoryDB, defaultHistoryDB},
	}
	for _, f := range fields {
		trimmed := strings.TrimSpace(*f.value)
		if trimmed == "" {
			trimmed = f.fallback
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.value = expanded
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = orDefault(c.Tools.FFmpeg, "ffmpeg")
	c.Tools.FFprobe = orDefault(c.Tools.FFprobe, "ffprobe")
	c.Tools.UVX = orDefault(c.Tools.UVX, "uvx")
	c.Tools.DeepFilter = orDefault(c.Tools.DeepFilter, "deepFilter")
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = orDefault(c.Transcription.Model, defaultWhisperXModel)
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if c.Transcription.Language == "auto" {
		c.Transcription.Language = ""
	}
	c.Transcription.VADMethod = strings.ToLower(orDefault(c.Transcription.VADMethod, defaultVADMethod))
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
	if c.Transcription.TimeoutMinutes <= 0 {
		c.Transcription.TimeoutMinutes = defaultTranscriptionMins
	}
}

func (c *Config) normalizeCaptions() {
	cc := &c.Captions
	cc.LengthMode = strings.ToLower(orDefault(cc.LengthMode, defaultLengthMode))
	if cc.MaxChars <= 0 {
		cc.MaxChars = defaultMaxChars
	}
	cc.Font = orDefault(cc.Font, defaultFont)
	cc.PrimaryColor = strings.TrimSpace(cc.PrimaryColor)
	cc.BackgroundColor = strings.TrimSpace(cc.BackgroundColor)
	cc.Anchor = strings.ToLower(strings.TrimSpace(cc.Anchor))
	cc.KaraokeBaseColor = strings.TrimSpace(cc.KaraokeBaseColor)
	cc.KaraokeHighlightColor = orDefault(cc.KaraokeHighlightColor, defaultKaraokeHighlight)
	if cc.KaraokeFloor <= 0 {
		cc.KaraokeFloor = defaultKaraokeFloor
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.Cleanup = strings.ToLower(orDefault(c.Audio.Cleanup, defaultCleanup))
	c.Audio.Platform = strings.ToLower(orDefault(c.Audio.Platform, defaultPlatform))
	c.Audio.MusicPath = strings.TrimSpace(c.Audio.MusicPath)
	if c.Audio.MusicPath != "" {
		if expanded, err := expandPath(c.Audio.MusicPath); err == nil {
			c.Audio.MusicPath = expanded
		}
	}
	c.Branding.EndCard = strings.TrimSpace(c.Branding.EndCard)
	if c.Branding.EndCard != "" {
		if expanded, err := expandPath(c.Branding.EndCard); err == nil {
			c.Branding.EndCard = expanded
		}
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.ArtifactWaitSeconds <= 0 {
		c.Workflow.ArtifactWaitSeconds = defaultArtifactWaitSeconds
	}
	if c.Workflow.StopGraceSeconds <= 0 {
		c.Workflow.StopGraceSeconds = defaultStopGraceSeconds
	}
	if c.Workflow.CleanupRetries <= 0 {
		c.Workflow.CleanupRetries = defaultCleanupRetries
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if len(c.Logging.StageOverrides) > 0 {
		overrides := make(map[string]string, len(c.Logging.StageOverrides))
		for stage, level := range c.Logging.StageOverrides {
			overrides[strings.ToLower(strings.TrimSpace(stage))] = strings.ToLower(strings.TrimSpace(level))
		}
		c.Logging.StageOverrides = overrides
	}
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
