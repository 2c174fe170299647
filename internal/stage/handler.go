package stage

import (
	"context"
	"log/slog"

	"trueedits/internal/buildjob"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	// Name is the stage key used in logs, stage overrides and job records.
	Name() string
	// Skip reports whether the stage has nothing to do for job, with a reason.
	Skip(*buildjob.Job) (bool, string)
	Execute(context.Context, *buildjob.Job) error
	HealthCheck(context.Context) Health
}

// LoggerAware stages accept a job-scoped logger before Execute.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
