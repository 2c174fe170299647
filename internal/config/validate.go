package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Enumerated caption and audio
// values are checked by the packages that interpret them, see
// workflow.ValidateConfig.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		return errors.New("paths.history_db must be set")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.vad_method must be silero or pyannote, got %q", c.Transcription.VADMethod)
	}
	if c.Transcription.VADMethod == "pyannote" && c.Transcription.HFToken == "" {
		return errors.New("transcription.hf_token is required for pyannote VAD (or set HF_TOKEN)")
	}
	return nil
}

func (c *Config) validateCaptions() error {
	cc := c.Captions
	if err := ensureFractions(map[string]float64{
		"captions.position_x":         cc.PositionX,
		"captions.position_y":         cc.PositionY,
		"captions.background_opacity": cc.BackgroundOpacity,
		"captions.max_margin_h":       cc.MaxMarginH,
		"captions.max_margin_v":       cc.MaxMarginV,
	}); err != nil {
		return err
	}
	if cc.Padding < 0 || cc.MinGap < 0 || cc.MinDuration < 0 {
		return errors.New("captions.padding, captions.min_gap and captions.min_duration must be >= 0")
	}
	if cc.FontSize < 0 {
		return errors.New("captions.font_size must be >= 0")
	}
	if cc.PreviewHeight < 0 {
		return errors.New("captions.preview_height must be >= 0")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.MusicVolume < 0 || c.Audio.MusicVolume > 2 {
		return errors.New("audio.music_volume must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateLogging() error {
	for stage, level := range c.Logging.StageOverrides {
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("logging.stage_overrides.%s: unknown level %q", stage, level)
		}
	}
	return nil
}

func ensureFractions(values map[string]float64) error {
	for key, value := range values {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", key)
		}
	}
	return nil
}
