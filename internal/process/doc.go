// Package process runs external tools (ffmpeg, WhisperX, voice isolation)
// under a shared Registry.
//
// Every command starts in its own process group. Runner.Exec blocks on the
// process while selecting on the context; cancellation sends SIGTERM to the
// group and escalates to SIGKILL after a grace period. Registry.TerminateAll
// does the same for every process still running, which the pipeline uses
// when a batch is stopped.
//
// Non-zero exits surface as *ExitError carrying the exit code and the tail of
// the command's output.
package process
