// Package language normalizes language codes for transcription and end-card
// selection.
//
// ISO 639-1, ISO 639-2 and plain-word forms resolve through a small table;
// BCP 47 tags and names outside the table fall back to golang.org/x/text.
package language
