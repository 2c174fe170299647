package captions

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"unicode"
)

const eps = 1e-9

func ptr(v float64) *float64 { return &v }

func sampleWords() []Word {
	return []Word{
		{Text: "So", Start: 0.00, End: 0.12},
		{Text: "today", Start: 0.12, End: 0.40},
		{Text: "we're", Start: 0.41, End: 0.55},
		{Text: "going", Start: 0.55, End: 0.70},
		{Text: "to", Start: 0.70, End: 0.74},
		{Text: "talk", Start: 0.74, End: 0.95},
		{Text: "about", Start: 0.96, End: 1.20},
		{Text: "loudness", Start: 1.21, End: 1.70},
		{Text: "and", Start: 1.71, End: 1.78},
		{Text: "why", Start: 1.79, End: 1.80},
		{Text: "it", Start: 1.80, End: 1.81},
		{Text: "matters.", Start: 1.81, End: 2.30},
	}
}

func TestSegmentWordsHelloWorld(t *testing.T) {
	words := []Word{
		{Text: "Hello", Start: 0.0, End: 0.40},
		{Text: "world", Start: 0.45, End: 0.90},
	}
	opts := DefaultOptions()
	opts.MaxChars = 20

	segs := SegmentWords(words, opts)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d: %+v", len(segs), segs)
	}
	seg := segs[0]
	if seg.Text != "Hello world" {
		t.Fatalf("unexpected text %q", seg.Text)
	}
	if math.Abs(seg.Start-0.0) > eps || math.Abs(seg.End-0.98) > eps {
		t.Fatalf("unexpected timing %.4f-%.4f", seg.Start, seg.End)
	}
}

func TestSegmentWordsEmpty(t *testing.T) {
	if segs := SegmentWords(nil, DefaultOptions()); len(segs) != 0 {
		t.Fatalf("expected no segments, got %+v", segs)
	}
	if segs := SegmentUtterances(nil, DefaultOptions()); len(segs) != 0 {
		t.Fatalf("expected no segments, got %+v", segs)
	}
}

func TestSegmentTimingInvariants(t *testing.T) {
	for _, mode := range []LengthMode{LengthLine, LengthSingleWord, LengthMovie} {
		t.Run(string(mode), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Mode = mode
			opts.MaxChars = 14
			segs := SegmentWords(sampleWords(), opts)
			if len(segs) == 0 {
				t.Fatal("expected segments")
			}
			for i, seg := range segs {
				if seg.End-seg.Start < opts.MinDuration-eps {
					t.Fatalf("segment %d shorter than minimum: %+v", i, seg)
				}
				if i > 0 && seg.Start < segs[i-1].End+opts.MinGap-eps {
					t.Fatalf("segment %d overlaps previous: prev end %.4f start %.4f", i, segs[i-1].End, seg.Start)
				}
			}
		})
	}
}

func TestSegmentSingleWordHasNoWhitespace(t *testing.T) {
	words := append(sampleWords(), Word{Text: "New York", Start: 2.4, End: 2.9})
	opts := DefaultOptions()
	opts.Mode = LengthSingleWord
	segs := SegmentWords(words, opts)
	if len(segs) != len(words)+1 {
		t.Fatalf("expected %d segments, got %d", len(words)+1, len(segs))
	}
	for _, seg := range segs {
		if strings.IndexFunc(seg.Text, unicode.IsSpace) >= 0 {
			t.Fatalf("single word segment contains whitespace: %q", seg.Text)
		}
	}
}

func TestSegmentDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = LengthMovie
	opts.MaxChars = 18
	first := SegmentWords(sampleWords(), opts)
	for i := 0; i < 5; i++ {
		if again := SegmentWords(sampleWords(), opts); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, again)
		}
	}
}

func TestSegmentLineModeRespectsMaxChars(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxChars = 14
	for _, seg := range SegmentWords(sampleWords(), opts) {
		if len([]rune(seg.Text)) > opts.MaxChars {
			t.Fatalf("segment %q exceeds %d chars", seg.Text, opts.MaxChars)
		}
	}
}

func TestSegmentLineModeOverlongWord(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxChars = 4
	segs := SegmentWords([]Word{{Text: "extraordinary", Start: 0, End: 1}, {Text: "yes", Start: 1.1, End: 1.3}}, opts)
	if len(segs) != 2 || segs[0].Text != "extraordinary" {
		t.Fatalf("unexpected segments %+v", segs)
	}
}

func TestSegmentMovieModeMergesLines(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = LengthMovie
	opts.MaxChars = 14
	segs := SegmentWords(sampleWords(), opts)
	if len(segs) == 0 {
		t.Fatal("expected segments")
	}
	first := segs[0]
	lines := strings.Split(first.Text, "\n")
	if len(lines) < 2 || len(lines) > 3 {
		t.Fatalf("expected merged block of 2-3 lines, got %q", first.Text)
	}
	if first.Start != 0 {
		t.Fatalf("block should keep first start, got %.3f", first.Start)
	}
	for _, seg := range segs {
		if len(strings.Split(seg.Text, "\n")) > 3 {
			t.Fatalf("block has more than three lines: %q", seg.Text)
		}
	}
}

func TestSegmentPaddingPushesNextStart(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = LengthSingleWord
	segs := SegmentWords([]Word{
		{Text: "one", Start: 0.00, End: 0.20},
		{Text: "two", Start: 0.21, End: 0.40},
	}, opts)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if math.Abs(segs[1].Start-(0.28+0.01)) > eps {
		t.Fatalf("expected second start shifted to 0.29, got %.4f", segs[1].Start)
	}
	if segs[1].End < 0.48-eps {
		t.Fatalf("second end should keep its padding, got %.4f", segs[1].End)
	}
}

func TestSegmentMinDurationExtendsEnd(t *testing.T) {
	opts := DefaultOptions()
	opts.Padding = 0
	segs := SegmentWords([]Word{{Text: "hi", Start: 1.0, End: 1.0}}, opts)
	if len(segs) != 1 || math.Abs(segs[0].End-1.05) > eps {
		t.Fatalf("expected end extended to 1.05, got %+v", segs)
	}
}

func TestSegmentDropsEmptyText(t *testing.T) {
	segs := SegmentWords([]Word{{Text: "  ", Start: 0, End: 1}, {Text: "ok", Start: 1, End: 2}}, DefaultOptions())
	if len(segs) != 1 || segs[0].Text != "ok" {
		t.Fatalf("unexpected segments %+v", segs)
	}
}

func TestSegmentUtterancesFallback(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxChars = 10
	utts := []Utterance{
		{Text: "alpha beta gamma delta", Start: ptr(2.0), End: ptr(4.0)},
	}
	segs := SegmentUtterances(utts, opts)
	if len(segs) != 3 {
		t.Fatalf("expected 3 wrapped lines, got %+v", segs)
	}
	if math.Abs(segs[0].Start-2.0) > eps {
		t.Fatalf("unexpected first start %.4f", segs[0].Start)
	}
	if math.Abs(segs[2].End-(4.0+opts.Padding)) > eps {
		t.Fatalf("unexpected last end %.4f", segs[2].End)
	}
}

func TestSegmentUtterancesMissingTimestamps(t *testing.T) {
	utts := []Utterance{
		{Text: "first", Words: []Word{{Text: "first", Start: 0.5, End: 1.0}}},
		{Text: "no timing at all"},
		{Text: "start only", Start: ptr(5.0)},
	}
	segs := SegmentUtterances(utts, DefaultOptions())
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %+v", segs)
	}
	if segs[1].Start < segs[0].End {
		t.Fatalf("untimed utterance should follow previous end: %+v", segs)
	}
	want := 5.0 + fallbackDuration + DefaultPadding
	if math.Abs(segs[2].End-want) > eps {
		t.Fatalf("start-only utterance end = %.4f, want %.4f", segs[2].End, want)
	}
}

func TestParseLengthMode(t *testing.T) {
	tests := []struct {
		in      string
		want    LengthMode
		wantErr bool
	}{
		{"", LengthLine, false},
		{"Line", LengthLine, false},
		{"single-word", LengthSingleWord, false},
		{"movie", LengthMovie, false},
		{"paragraph", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLengthMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLengthMode(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLengthMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWrapText(t *testing.T) {
	got := WrapText("the quick brown fox", 9)
	want := []string{"the quick", "brown fox"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("WrapText = %q, want %q", got, want)
	}
}
