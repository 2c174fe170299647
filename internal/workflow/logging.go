package workflow

import (
	"log/slog"
	"strings"

	"trueedits/internal/logging"
)

// stageLogger applies any configured per-stage level override to base.
func stageLogger(base *slog.Logger, overrides map[string]string, stageName string) *slog.Logger {
	if override := stageOverrideLevel(overrides, stageName); override != "" {
		return logging.WithLevelOverride(base, parseStageLevel(override))
	}
	return base
}

func stageOverrideLevel(overrides map[string]string, stage string) string {
	if len(overrides) == 0 {
		return ""
	}
	stage = strings.ToLower(strings.TrimSpace(stage))
	if stage == "" {
		return ""
	}
	for key, value := range overrides {
		if strings.ToLower(strings.TrimSpace(key)) == stage {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func parseStageLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
