// Package services defines shared utilities consumed by the pipeline stages
// and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, job IDs and stage names for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent job statuses (failed vs cancelled).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
