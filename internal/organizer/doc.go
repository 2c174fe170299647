// Package organizer finalizes a build by delivering the finished video.
//
// The last artifact in the job temp directory is moved to
// <output_dir>/<stem>_Edited.mp4, or next to the source when no output
// directory is configured. When no stage produced a new artifact the
// source itself is copied so the original is never moved or overwritten.
// Progress updates and error wrapping follow the same conventions as other
// stages so the workflow manager can react uniformly.
package organizer
