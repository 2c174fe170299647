// Package audio builds the ffmpeg filter graph that finishes a video's
// soundtrack.
//
// The graph is plain text in ffmpeg's filter_complex syntax: clauses of the
// form [in]filter=args[out] joined with semicolons. A graph always has the
// same shape:
//  1. A voice chain whose strength follows the cleanup level
//  2. An optional music chain, ducked under the voice with a side-chain
//     compressor and mixed back in
//  3. Exactly one loudnorm pass at the end, targeting a platform preset
//
// Key types:
//   - GraphSpec: inputs and settings for one graph
//   - Graph: the rendered filter text, its output label and input files
//   - LoudnessTarget: integrated loudness, true peak and loudness range
//
// Primary entry point:
//   - BuildGraph
package audio
