// Package stageexec runs a single pipeline stage against a build job.
//
// Run owns the per-stage bookkeeping shared by every stage: skip decisions,
// stage status on the job, start/complete/failure log events, error
// notifications and progress rows in the history store.
package stageexec
