// Package notifications pushes batch events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// the workflow can notify unconditionally. Delivery failures are returned to
// the caller, which logs them and carries on.
package notifications
