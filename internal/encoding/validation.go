package encoding

import (
	"context"
	"errors"
	"fmt"
	"os"

	"trueedits/internal/media/ffprobe"
	"trueedits/internal/services"
)

// validateOutput probes a freshly written artifact and rejects files that
// are empty, have no video, lost their audio or report no duration.
func validateOutput(ctx context.Context, ffprobeBinary, stageName, path string, wantAudio bool) (ffprobe.Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ffprobe.Result{}, services.Wrap(services.ErrValidation, stageName, "validate output", "Output file missing", err)
	}
	if info.Size() == 0 {
		return ffprobe.Result{}, services.Wrap(services.ErrValidation, stageName, "validate output", fmt.Sprintf("Output %s is empty", path), nil)
	}
	result, err := probeMedia(ctx, ffprobeBinary, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return ffprobe.Result{}, services.Wrap(services.ErrTimeout, stageName, "validate output", "Probe deadline exceeded", ctxErr)
			}
			return ffprobe.Result{}, services.Cancelled(stageName, ctxErr)
		}
		return ffprobe.Result{}, services.Wrap(services.ErrValidation, stageName, "validate output", "Failed to probe output", err)
	}
	switch {
	case result.VideoStreamCount() == 0:
		return result, services.Wrap(services.ErrValidation, stageName, "validate output", "Output has no video stream", nil)
	case wantAudio && !result.HasAudio():
		return result, services.Wrap(services.ErrValidation, stageName, "validate output", "Output lost its audio stream", nil)
	case result.DurationSeconds() <= 0:
		return result, services.Wrap(services.ErrValidation, stageName, "validate output", "Output reports no duration", nil)
	}
	return result, nil
}
