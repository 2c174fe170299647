package captions

import (
	"fmt"
	"strings"
)

// Word is a single recognized token with absolute timestamps in seconds.
type Word struct {
	Text  string
	Start float64
	End   float64
}

// Utterance groups the words of one recognition segment. Start and End are
// nil when the recognizer did not report them.
type Utterance struct {
	Text  string
	Start *float64
	End   *float64
	Words []Word
}

// Segment is a caption unit ready for rendering.
type Segment struct {
	Text  string
	Start float64
	End   float64
	Words []Word
}

// Duration returns End-Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// LengthMode selects how words are grouped into captions.
type LengthMode string

const (
	LengthLine       LengthMode = "line"
	LengthSingleWord LengthMode = "single_word"
	LengthMovie      LengthMode = "movie"
)

// ParseLengthMode accepts the config spellings plus a few aliases.
func ParseLengthMode(value string) (LengthMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "line", "lines":
		return LengthLine, nil
	case "single_word", "single-word", "word", "single":
		return LengthSingleWord, nil
	case "movie", "block":
		return LengthMovie, nil
	default:
		return "", fmt.Errorf("unknown caption length mode %q (want line, single_word or movie)", value)
	}
}

// Options control grouping and timing normalization.
type Options struct {
	Mode        LengthMode
	MaxChars    int
	Padding     float64
	MinGap      float64
	MinDuration float64
}

const (
	DefaultMaxChars    = 32
	DefaultPadding     = 0.08
	DefaultMinGap      = 0.01
	DefaultMinDuration = 0.05

	// fallbackDuration is used when an utterance has a start but no end.
	fallbackDuration = 0.3

	movieMaxLines = 3
	movieMaxChars = 120
)

// DefaultOptions returns line mode with the standard timing constants.
func DefaultOptions() Options {
	return Options{
		Mode:        LengthLine,
		MaxChars:    DefaultMaxChars,
		Padding:     DefaultPadding,
		MinGap:      DefaultMinGap,
		MinDuration: DefaultMinDuration,
	}
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = LengthLine
	}
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	if o.Padding < 0 {
		o.Padding = 0
	}
	if o.MinGap < 0 {
		o.MinGap = 0
	}
	if o.MinDuration < 0 {
		o.MinDuration = 0
	}
	return o
}
