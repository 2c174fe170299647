// Package whisperx runs WhisperX through uvx to produce word-timed
// transcripts for caption generation.
//
// This package handles:
//   - Extracting a mono 16kHz speech track from the source video
//   - Invoking WhisperX with the configured model, device and VAD method
//   - Parsing the JSON output into captions.Utterance values
//
// Missing utterance timings are passed through as nil for the segmenter to
// recover. Words WhisperX could not align get timings interpolated from
// their aligned neighbours. Commands run through a process.Executor so a
// stop request terminates them with the rest of the batch.
package whisperx
