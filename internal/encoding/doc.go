// Package encoding runs the ffmpeg stages of a build: caption burn-in, end
// card appending and the audio finishing pass.
//
// Each stage reads the job's current artifact, writes a stem-qualified file
// into the job temp directory and advances the job to it. ffmpeg runs
// through a process.Executor so a batch stop can terminate it, and its
// -progress output is turned into stage-local progress callbacks. Outputs
// are probed before the job moves on so a truncated file never reaches
// finalization.
package encoding
