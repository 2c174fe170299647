package workflow

import (
	"fmt"
	"log/slog"
	"strings"

	"trueedits/internal/config"
	"trueedits/internal/logging"
	"trueedits/internal/preflight"
	"trueedits/internal/services"
)

// runPreflightChecks validates the directories a batch writes into. Returns
// nil when all checks pass, or an error describing all failures.
func runPreflightChecks(cfg *config.Config, logger *slog.Logger) error {
	var failures []string
	for _, r := range preflight.RunAll(cfg) {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue and run the batch again"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "workflow", "preflight",
			"Preflight checks failed: "+strings.Join(failures, "; "), nil)
	}
	return nil
}
