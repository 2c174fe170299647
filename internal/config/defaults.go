package config

const (
	defaultConfigPath          = "~/.config/trueedits/config.toml"
	defaultWorkDir             = "~/.local/share/trueedits/work"
	defaultTranscriptsDir      = "~/.local/share/trueedits/transcripts"
	defaultEndCardsDir         = "~/.local/share/trueedits/endcards"
	defaultLogDir              = "~/.local/share/trueedits/logs"
	defaultHistoryDB           = "~/.local/share/trueedits/history.db"
	defaultLogRetentionDays    = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultWhisperXModel       = "large-v3"
	defaultVADMethod           = "silero"
	defaultTranscriptionMins   = 60
	defaultLengthMode          = "line"
	defaultMaxChars            = 20
	defaultPadding             = 0.08
	defaultMinGap              = 0.01
	defaultMinDuration         = 0.05
	defaultFont                = "Arial"
	defaultPreviewHeight       = 0
	defaultPrimaryColor        = "#FFFFFF"
	defaultBackgroundColor     = "#000000"
	defaultBackgroundOpacity   = 0.6
	defaultOutline             = 3
	defaultShadow              = 2
	defaultPositionX           = 0.5
	defaultPositionY           = 0.8
	defaultMaxMarginH          = 0.45
	defaultMaxMarginV          = 0.45
	defaultKaraokeHighlight    = "#FFFF00"
	defaultKaraokeFloor        = 0.03
	defaultCleanup             = "full"
	defaultPlatform            = "generic"
	defaultMusicVolume         = 0.15
	defaultArtifactWaitSeconds = 10
	defaultStopGraceSeconds    = 2
	defaultCleanupRetries      = 3
	defaultNtfyTimeoutSeconds  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:        defaultWorkDir,
			TranscriptsDir: defaultTranscriptsDir,
			EndCardsDir:    defaultEndCardsDir,
			LogDir:         defaultLogDir,
			HistoryDB:      defaultHistoryDB,
		},
		Tools: Tools{
			FFmpeg:     "ffmpeg",
			FFprobe:    "ffprobe",
			UVX:        "uvx",
			DeepFilter: "deepFilter",
		},
		Transcription: Transcription{
			Model:          defaultWhisperXModel,
			VADMethod:      defaultVADMethod,
			TimeoutMinutes: defaultTranscriptionMins,
		},
		Captions: CaptionConfig{
			Enabled:               true,
			LengthMode:            defaultLengthMode,
			MaxChars:              defaultMaxChars,
			Padding:               defaultPadding,
			MinGap:                defaultMinGap,
			MinDuration:           defaultMinDuration,
			Font:                  defaultFont,
			PreviewHeight:         defaultPreviewHeight,
			PrimaryColor:          defaultPrimaryColor,
			BackgroundColor:       defaultBackgroundColor,
			BackgroundOpacity:     defaultBackgroundOpacity,
			Bold:                  true,
			Outline:               defaultOutline,
			Shadow:                defaultShadow,
			PositionX:             defaultPositionX,
			PositionY:             defaultPositionY,
			MaxMarginH:            defaultMaxMarginH,
			MaxMarginV:            defaultMaxMarginV,
			ReuseTranscript:       true,
			KaraokeHighlightColor: defaultKaraokeHighlight,
			KaraokeFloor:          defaultKaraokeFloor,
		},
		Audio: AudioConfig{
			Cleanup:     defaultCleanup,
			Platform:    defaultPlatform,
			MusicVolume: defaultMusicVolume,
		},
		Branding: BrandingConfig{
			AutoEndCard: true,
		},
		Workflow: Workflow{
			ArtifactWaitSeconds: defaultArtifactWaitSeconds,
			StopGraceSeconds:    defaultStopGraceSeconds,
			CleanupRetries:      defaultCleanupRetries,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
