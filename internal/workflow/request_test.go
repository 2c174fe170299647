package workflow_test

import (
	"errors"
	"strings"
	"testing"

	"trueedits/internal/captions"
	"trueedits/internal/config"
	"trueedits/internal/services"
	"trueedits/internal/subtitles"
	"trueedits/internal/testsupport"
	"trueedits/internal/workflow"
)

func TestApplyRequestOverrides(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	off, on := false, true
	volume := 0.2

	effective, err := workflow.ApplyRequest(cfg, workflow.Request{
		Model:          "large-v3",
		Language:       "Auto",
		Cleanup:        "LIGHT",
		Platform:       "TikTok",
		MusicVolume:    &volume,
		VoiceIsolation: &off,
		Captions:       &on,
		Position:       &workflow.Position{X: 0.5, Y: 0.2, Anchor: "Top"},
		Karaoke:        &on,
		LengthMode:     "single_word",
	})
	if err != nil {
		t.Fatalf("ApplyRequest: %v", err)
	}
	if effective == cfg {
		t.Fatal("expected a copy of the config")
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"model", effective.Transcription.Model, "large-v3"},
		{"language", effective.Transcription.Language, ""},
		{"cleanup", effective.Audio.Cleanup, "light"},
		{"platform", effective.Audio.Platform, "tiktok"},
		{"music volume", effective.Audio.MusicVolume, 0.2},
		{"voice isolation", effective.Audio.VoiceIsolation, false},
		{"anchor", effective.Captions.Anchor, "top"},
		{"position y", effective.Captions.PositionY, 0.2},
		{"karaoke", effective.Captions.Karaoke, true},
		{"length mode", effective.Captions.LengthMode, "single_word"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Fatalf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if cfg.Audio.Platform == "tiktok" || cfg.Captions.LengthMode != "line" {
		t.Fatal("ApplyRequest modified the loaded config")
	}

	settings, err := workflow.CaptionSettings(effective, true)
	if err != nil {
		t.Fatalf("CaptionSettings: %v", err)
	}
	if settings.Segmenting.Mode != captions.LengthSingleWord || settings.Style.Position.Anchor != subtitles.AnchorTop {
		t.Fatalf("unexpected caption settings %+v", settings)
	}
	if !settings.Force || !settings.Karaoke.Enabled || settings.CacheDir != cfg.Paths.TranscriptsDir {
		t.Fatalf("unexpected caption settings %+v", settings)
	}
}

func TestApplyRequestRejectsInvalidSettings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	tests := []struct {
		name string
		req  workflow.Request
	}{
		{"cleanup", workflow.Request{Cleanup: "extreme"}},
		{"platform", workflow.Request{Platform: "myspace"}},
		{"anchor", workflow.Request{Position: &workflow.Position{X: 0.5, Y: 0.5, Anchor: "left"}}},
		{"length mode", workflow.Request{LengthMode: "paragraph"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := workflow.ApplyRequest(cfg, tt.req); !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
	if _, err := workflow.ApplyRequest(nil, workflow.Request{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for nil config, got %v", err)
	}
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"length mode", func(c *config.Config) { c.Captions.LengthMode = "paragraph" }, "captions.length_mode"},
		{"anchor", func(c *config.Config) { c.Captions.Anchor = "left" }, "captions.anchor"},
		{"color", func(c *config.Config) { c.Captions.PrimaryColor = "#GG0000" }, "captions.primary_color"},
		{"karaoke color", func(c *config.Config) { c.Captions.KaraokeHighlightColor = "yellow" }, "captions.karaoke_highlight_color"},
		{"cleanup", func(c *config.Config) { c.Audio.Cleanup = "extreme" }, "audio.cleanup"},
		{"platform", func(c *config.Config) { c.Audio.Platform = "myspace" }, "audio.platform"},
		{"base checks", func(c *config.Config) { c.Captions.PositionY = 1.5 }, "captions.position_y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := workflow.ValidateConfig(&cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}

	cfg := config.Default()
	if err := workflow.ValidateConfig(&cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
