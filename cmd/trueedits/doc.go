// Package main hosts the trueedits CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the slog logger
// and history store, and hands batches to the workflow manager. Commands stay
// thin: `build` maps flags onto a workflow.Request and renders progress,
// `status` and `history` render checks and stored runs, and `config`
// scaffolds and validates the TOML file.
package main
