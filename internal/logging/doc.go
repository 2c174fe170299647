// Package logging assembles structured slog loggers and formatting helpers used
// across trueedits.
//
// It owns the console and JSON handlers, level and output plumbing, the
// per-run log file with retention, and context-aware helpers so stage code
// tags log lines with run IDs, job IDs and stage names. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
