// Package workflow runs batches of videos through the build pipeline.
//
// A Manager takes a Request, layers it over the loaded configuration and
// processes each video strictly in order: probe, captions, burn-in, end
// card, audio and finalize. Every job runs inside its own error boundary so a
// failure is recorded and the batch moves on, while cancellation of the
// context stops the in-flight job, terminates its external processes and
// leaves the remaining videos untouched. Temp directories are removed on
// every exit path.
//
// The batch holds an exclusive lock on the work directory, records runs and
// jobs in the history store, and reports overall progress through a
// ProgressFunc in the 0-100 range.
package workflow
