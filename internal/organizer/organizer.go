package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trueedits/internal/buildjob"
	"trueedits/internal/config"
	"trueedits/internal/fileutil"
	"trueedits/internal/logging"
	"trueedits/internal/preflight"
	"trueedits/internal/services"
	"trueedits/internal/stage"
)

const (
	stageName = "finalize"

	// OutputSuffix is appended to the source stem for the deliverable.
	OutputSuffix = "_Edited"
	outputExt    = ".mp4"
)

// Organizer moves the finished artifact into place.
type Organizer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewOrganizer constructs the finalize stage.
func NewOrganizer(cfg *config.Config, logger *slog.Logger) *Organizer {
	o := &Organizer{cfg: cfg}
	o.SetLogger(logger)
	return o
}

// SetLogger updates the organizer's logging destination while preserving component labeling.
func (o *Organizer) SetLogger(logger *slog.Logger) {
	o.logger = logging.NewComponentLogger(logger, "organizer")
}

// Name implements stage.Handler.
func (o *Organizer) Name() string { return stageName }

// Skip never skips; every job ends with a deliverable.
func (o *Organizer) Skip(*buildjob.Job) (bool, string) { return false, "" }

// OutputPath returns <output dir or source dir>/<stem>_Edited.mp4.
func OutputPath(outputDir, videoPath string) string {
	dir := strings.TrimSpace(outputDir)
	if dir == "" {
		dir = filepath.Dir(videoPath)
	}
	return filepath.Join(dir, buildjob.Stem(videoPath)+OutputSuffix+outputExt)
}

// Execute delivers job.Current to the output path.
func (o *Organizer) Execute(ctx context.Context, job *buildjob.Job) error {
	if job == nil {
		return services.Wrap(services.ErrValidation, stageName, "execute", "Job is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return services.Cancelled(stageName, err)
	}
	logger := logging.WithContext(ctx, o.logger)
	job.SetState(buildjob.StateFinalizing)
	start := time.Now()

	source := job.Current
	if strings.TrimSpace(source) == "" {
		source = job.VideoPath
	}
	target := OutputPath(o.cfg.Paths.OutputDir, job.VideoPath)
	if err := ValidateTarget(target, job.VideoPath, logger); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "ensure output dir", "Failed to create output directory", err)
	}

	passthrough := samePath(source, job.VideoPath)
	job.Report(0, "Delivering video")
	var err error
	if passthrough {
		err = fileutil.CopyFileVerified(source, target)
	} else {
		err = fileutil.MoveFile(source, target)
	}
	if err != nil {
		_ = os.Remove(target)
		return services.Wrap(services.ErrExternalTool, stageName, "deliver", fmt.Sprintf("Failed to deliver %s", filepath.Base(target)), err)
	}

	job.Output = target
	job.Advance(target)
	job.Report(1, "Delivered "+filepath.Base(target))
	logger.Info("video delivered",
		logging.String(logging.FieldEventType, "video_delivered"),
		logging.String("output", target),
		logging.Bool("passthrough", passthrough),
		logging.Duration("duration", time.Since(start)),
	)
	return nil
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// HealthCheck verifies the output directory, when configured, is writable.
func (o *Organizer) HealthCheck(context.Context) stage.Health {
	if o.cfg == nil {
		return stage.Unhealthy(stageName, "configuration unavailable")
	}
	dir := strings.TrimSpace(o.cfg.Paths.OutputDir)
	if dir == "" {
		return stage.Healthy(stageName)
	}
	if result := preflight.CheckDirectoryAccess("output", dir); !result.Passed {
		return stage.Unhealthy(stageName, result.Detail)
	}
	return stage.Healthy(stageName)
}
