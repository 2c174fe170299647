package workflow

import (
	"fmt"
	"strings"
	"time"

	"trueedits/internal/captions"
	"trueedits/internal/config"
	"trueedits/internal/media/audio"
	"trueedits/internal/services"
	"trueedits/internal/subtitles"
)

// Request is one batch invocation. Zero values and nil pointers leave the
// configured setting in place.
type Request struct {
	Videos []string

	Model    string
	Language string

	Cleanup        string
	Platform       string
	Music          string
	MusicVolume    *float64
	VoiceIsolation *bool

	EndCard string

	Captions   *bool
	Position   *Position
	Karaoke    *bool
	LengthMode string
	// ForceCaptions regenerates captions even when a cached script matches.
	ForceCaptions bool
}

// Position is the normalized caption placement, (0,0) being top-left.
type Position struct {
	X      float64
	Y      float64
	Anchor string
}

// ProgressFunc receives overall batch progress in percent with a message.
type ProgressFunc func(percent int, message string)

// Summary is the outcome of a batch.
type Summary struct {
	Success   bool
	Processed int
	Failed    int
	Cancelled int
	// Errors holds "<file>: <error>" entries, plus the stop message when the
	// batch was stopped.
	Errors []string
}

// ApplyRequest returns a copy of cfg with the request's overrides applied and
// validated. cfg itself is never modified.
func ApplyRequest(cfg *config.Config, req Request) (*config.Config, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "settings", "Configuration unavailable", nil)
	}
	effective := *cfg

	if v := strings.TrimSpace(req.Model); v != "" {
		effective.Transcription.Model = v
	}
	if v := strings.ToLower(strings.TrimSpace(req.Language)); v != "" {
		if v == "auto" {
			v = ""
		}
		effective.Transcription.Language = v
	}
	if v := strings.TrimSpace(req.Cleanup); v != "" {
		effective.Audio.Cleanup = strings.ToLower(v)
	}
	if v := strings.TrimSpace(req.Platform); v != "" {
		effective.Audio.Platform = strings.ToLower(v)
	}
	if v := strings.TrimSpace(req.Music); v != "" {
		expanded, err := config.ExpandPath(v)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "workflow", "settings", "Invalid music path", err)
		}
		effective.Audio.MusicPath = expanded
	}
	if req.MusicVolume != nil {
		effective.Audio.MusicVolume = *req.MusicVolume
	}
	if req.VoiceIsolation != nil {
		effective.Audio.VoiceIsolation = *req.VoiceIsolation
	}
	if v := strings.TrimSpace(req.EndCard); v != "" {
		expanded, err := config.ExpandPath(v)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "workflow", "settings", "Invalid end card path", err)
		}
		effective.Branding.EndCard = expanded
	}
	if req.Captions != nil {
		effective.Captions.Enabled = *req.Captions
	}
	if req.Position != nil {
		effective.Captions.PositionX = req.Position.X
		effective.Captions.PositionY = req.Position.Y
		effective.Captions.Anchor = strings.ToLower(strings.TrimSpace(req.Position.Anchor))
	}
	if req.Karaoke != nil {
		effective.Captions.Karaoke = *req.Karaoke
	}
	if v := strings.TrimSpace(req.LengthMode); v != "" {
		effective.Captions.LengthMode = strings.ToLower(v)
	}

	if err := ValidateConfig(&effective); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "settings", "Invalid batch settings", err)
	}
	return &effective, nil
}

// ValidateConfig runs cfg.Validate and then checks the enumerated caption
// and audio values against the parsers that consume them.
func ValidateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cc := cfg.Captions
	if _, err := captions.ParseLengthMode(cc.LengthMode); err != nil {
		return fmt.Errorf("captions.length_mode: %w", err)
	}
	if _, err := subtitles.ParseAnchor(cc.Anchor); err != nil {
		return fmt.Errorf("captions.anchor: %w", err)
	}
	colors := []struct{ key, value string }{
		{"captions.primary_color", cc.PrimaryColor},
		{"captions.background_color", cc.BackgroundColor},
		{"captions.karaoke_base_color", cc.KaraokeBaseColor},
		{"captions.karaoke_highlight_color", cc.KaraokeHighlightColor},
	}
	for _, c := range colors {
		if c.value == "" {
			continue
		}
		if _, err := subtitles.ColorToASS(c.value, 1); err != nil {
			return fmt.Errorf("%s: %w", c.key, err)
		}
	}
	if _, err := audio.ParseCleanupLevel(cfg.Audio.Cleanup); err != nil {
		return fmt.Errorf("audio.cleanup: %w", err)
	}
	if _, err := audio.ParsePlatform(cfg.Audio.Platform); err != nil {
		return fmt.Errorf("audio.platform: %w", err)
	}
	return nil
}

// CaptionSettings resolves the caption stage settings from cfg.
func CaptionSettings(cfg *config.Config, force bool) (subtitles.Settings, error) {
	cc := cfg.Captions
	mode, err := captions.ParseLengthMode(cc.LengthMode)
	if err != nil {
		return subtitles.Settings{}, fmt.Errorf("captions.length_mode: %w", err)
	}
	anchor, err := subtitles.ParseAnchor(cc.Anchor)
	if err != nil {
		return subtitles.Settings{}, fmt.Errorf("captions.anchor: %w", err)
	}
	return subtitles.Settings{
		Enabled: cc.Enabled,
		Segmenting: captions.Options{
			Mode:        mode,
			MaxChars:    cc.MaxChars,
			Padding:     cc.Padding,
			MinGap:      cc.MinGap,
			MinDuration: cc.MinDuration,
		},
		Style: subtitles.StyleInput{
			Font:               cc.Font,
			Size:               cc.FontSize,
			PreviewHeight:      cc.PreviewHeight,
			PrimaryColor:       cc.PrimaryColor,
			BackgroundColor:    cc.BackgroundColor,
			BackgroundOpacity:  cc.BackgroundOpacity,
			BackgroundEnabled:  cc.BackgroundEnabled,
			Bold:               cc.Bold,
			Italic:             cc.Italic,
			Outline:            cc.Outline,
			Shadow:             cc.Shadow,
			Position:           subtitles.Position{X: cc.PositionX, Y: cc.PositionY, Anchor: anchor},
			MaxMarginHFraction: cc.MaxMarginH,
			MaxMarginVFraction: cc.MaxMarginV,
		},
		Karaoke: subtitles.Karaoke{
			Enabled:        cc.Karaoke,
			BaseColor:      cc.KaraokeBaseColor,
			HighlightColor: cc.KaraokeHighlightColor,
		},
		KaraokeFloor: cc.KaraokeFloor,
		Language:     cfg.Transcription.Language,
		CacheDir:     cfg.Paths.TranscriptsDir,
		ReuseCache:   cc.ReuseTranscript,
		Force:        force,
		ArtifactWait: time.Duration(cfg.Workflow.ArtifactWaitSeconds) * time.Second,
		Tools:        []string{cfg.Tools.UVX, cfg.Tools.FFmpeg},
	}, nil
}
