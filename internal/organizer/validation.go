package organizer

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"trueedits/internal/logging"
	"trueedits/internal/services"
)

// ValidateTarget refuses delivery paths that would overwrite the source or
// drop the expected suffix. This catches logic bugs in the naming path.
func ValidateTarget(target, source string, logger *slog.Logger) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return services.Wrap(services.ErrValidation, stageName, "validate target", "Output path is required", nil)
	}
	if samePath(target, source) {
		if logger != nil {
			logger.Error("output path equals source",
				logging.String("output", target),
				logging.String(logging.FieldEventType, "output_validation_failed"),
				logging.String(logging.FieldErrorHint, "check paths.output_dir"),
			)
		}
		return services.Wrap(services.ErrValidation, stageName, "validate target",
			fmt.Sprintf("Output %q would overwrite the source video", target), nil)
	}
	nameOnly := strings.TrimSuffix(filepath.Base(target), filepath.Ext(target))
	if !strings.HasSuffix(nameOnly, OutputSuffix) {
		return services.Wrap(services.ErrValidation, stageName, "validate target",
			fmt.Sprintf("Output %q is missing the %s suffix", target, OutputSuffix), nil)
	}
	return nil
}
