package whisperx

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"trueedits/internal/captions"
)

// Word represents a single word from WhisperX output. Start and End are
// absent for tokens the aligner could not place, typically numerals.
type Word struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Score *float64 `json:"score,omitempty"`
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string   `json:"text"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Words []Word   `json:"words"`
}

// Payload is the JSON document WhisperX writes.
type Payload struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// LoadPayload reads a WhisperX JSON file.
func LoadPayload(jsonPath string) (Payload, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Payload{}, err
	}
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Payload{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload, nil
}

// Text concatenates the segment texts.
func (p Payload) Text() string {
	parts := make([]string, 0, len(p.Segments))
	for _, seg := range p.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Utterances converts the payload into segmenter input.
func (p Payload) Utterances() []captions.Utterance {
	out := make([]captions.Utterance, 0, len(p.Segments))
	for _, seg := range p.Segments {
		out = append(out, captions.Utterance{
			Text:  strings.TrimSpace(seg.Text),
			Start: seg.Start,
			End:   seg.End,
			Words: alignWords(seg),
		})
	}
	return out
}

// alignWords returns the segment's words with every timing filled in. Runs
// of unaligned words share the gap between their aligned neighbours. When
// no word in the segment is aligned the result is nil so the segmenter
// falls back to utterance-level timing.
func alignWords(seg Segment) []captions.Word {
	anyTimed := false
	for _, w := range seg.Words {
		if timed(w) {
			anyTimed = true
			break
		}
	}
	if !anyTimed {
		return nil
	}

	words := make([]captions.Word, len(seg.Words))
	for i := 0; i < len(seg.Words); {
		w := seg.Words[i]
		if timed(w) {
			words[i] = captions.Word{Text: w.Word, Start: *w.Start, End: *w.End}
			i++
			continue
		}
		runEnd := i
		for runEnd < len(seg.Words) && !timed(seg.Words[runEnd]) {
			runEnd++
		}
		left := gapStart(seg, words, i)
		right := left
		if runEnd < len(seg.Words) {
			right = *seg.Words[runEnd].Start
		} else if seg.End != nil && *seg.End > left {
			right = *seg.End
		}
		if right < left {
			right = left
		}
		step := (right - left) / float64(runEnd-i)
		for k := i; k < runEnd; k++ {
			words[k] = captions.Word{
				Text:  seg.Words[k].Word,
				Start: left + float64(k-i)*step,
				End:   left + float64(k-i+1)*step,
			}
		}
		i = runEnd
	}
	return words
}

func gapStart(seg Segment, filled []captions.Word, idx int) float64 {
	if idx > 0 {
		return filled[idx-1].End
	}
	if seg.Start != nil {
		return *seg.Start
	}
	for _, w := range seg.Words {
		if timed(w) {
			return *w.Start
		}
	}
	return 0
}

func timed(w Word) bool {
	return w.Start != nil && w.End != nil
}
