// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no trueedits-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties, including rotation side data
//   - VideoInfo: displayed frame size, pixel format, codec and frame rate
//   - EndCardPlan: how a trailing clip must be conformed to the main video
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns parsed Result
//   - Result.VideoInfo: normalizes rotation and optional portrait orientation
//   - PlanEndCard: compares two VideoInfo values for concatenation
package ffprobe
