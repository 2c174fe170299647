// Package subtitles turns caption segments into an Advanced SubStation
// Alpha (.ass) script sized for the output frame.
//
// Style compilation maps the caption settings (font, colours, outline,
// anchor and normalized position) onto a single ASS style, expressing the
// position as an alignment cell plus margins. The emitter writes one
// dialogue line per segment and, when karaoke is enabled, a second layer
// that reveals each word in the highlight colour for exactly its timed
// span. The caption stage caches
// the script under the transcripts directory keyed by video stem.
package subtitles
