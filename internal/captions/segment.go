package captions

import (
	"strings"
	"unicode/utf8"
)

// SegmentWords groups a flat word list into caption segments and applies the
// timing normalization pass. An empty input yields an empty result.
func SegmentWords(words []Word, opts Options) []Segment {
	opts = opts.withDefaults()
	return normalize(group(cleanWords(words), opts), opts)
}

// SegmentUtterances segments recognizer output. Utterances with word
// timestamps are grouped by word; the rest are spread evenly across their
// wrapped text lines.
func SegmentUtterances(utterances []Utterance, opts Options) []Segment {
	opts = opts.withDefaults()
	var raw []Segment
	prevEnd := 0.0
	for _, u := range utterances {
		var segs []Segment
		if words := cleanWords(u.Words); len(words) > 0 {
			segs = group(words, opts)
		} else {
			segs = fallbackSegments(u, prevEnd, opts)
		}
		if len(segs) == 0 {
			continue
		}
		raw = append(raw, segs...)
		prevEnd = segs[len(segs)-1].End
	}
	return normalize(raw, opts)
}

// cleanWords trims tokens, drops empty ones and splits tokens that carry
// internal whitespace into evenly timed pieces.
func cleanWords(words []Word) []Word {
	out := make([]Word, 0, len(words))
	for _, w := range words {
		if w.End < w.Start {
			w.End = w.Start
		}
		fields := strings.Fields(w.Text)
		switch len(fields) {
		case 0:
			continue
		case 1:
			w.Text = fields[0]
			out = append(out, w)
		default:
			step := (w.End - w.Start) / float64(len(fields))
			for i, f := range fields {
				piece := Word{Text: f, Start: w.Start + float64(i)*step, End: w.Start + float64(i+1)*step}
				if i == len(fields)-1 {
					piece.End = w.End
				}
				out = append(out, piece)
			}
		}
	}
	return out
}

func group(words []Word, opts Options) []Segment {
	if len(words) == 0 {
		return nil
	}
	switch opts.Mode {
	case LengthSingleWord:
		segs := make([]Segment, 0, len(words))
		for _, w := range words {
			segs = append(segs, segmentFromWords([]Word{w}))
		}
		return segs
	case LengthMovie:
		return mergeMovie(groupLines(words, opts.MaxChars))
	default:
		return groupLines(words, opts.MaxChars)
	}
}

func groupLines(words []Word, maxChars int) []Segment {
	var (
		segs   []Segment
		buf    []Word
		length int
	)
	for _, w := range words {
		add := utf8.RuneCountInString(w.Text)
		if len(buf) > 0 {
			add++
		}
		if len(buf) > 0 && length+add > maxChars {
			segs = append(segs, segmentFromWords(buf))
			buf = nil
			length = 0
			add = utf8.RuneCountInString(w.Text)
		}
		buf = append(buf, w)
		length += add
	}
	if len(buf) > 0 {
		segs = append(segs, segmentFromWords(buf))
	}
	return segs
}

// mergeMovie folds consecutive lines into blocks of at most three lines whose
// joined text stays under the block character limit.
func mergeMovie(lines []Segment) []Segment {
	var (
		blocks []Segment
		cur    []Segment
		length int
	)
	for _, line := range lines {
		add := utf8.RuneCountInString(line.Text)
		if len(cur) > 0 {
			add++
		}
		if len(cur) > 0 && (len(cur) >= movieMaxLines || length+add >= movieMaxChars) {
			blocks = append(blocks, joinLines(cur))
			cur = nil
			length = 0
			add = utf8.RuneCountInString(line.Text)
		}
		cur = append(cur, line)
		length += add
	}
	if len(cur) > 0 {
		blocks = append(blocks, joinLines(cur))
	}
	return blocks
}

func joinLines(lines []Segment) Segment {
	texts := make([]string, 0, len(lines))
	var words []Word
	for _, l := range lines {
		texts = append(texts, l.Text)
		words = append(words, l.Words...)
	}
	return Segment{
		Text:  strings.Join(texts, "\n"),
		Start: lines[0].Start,
		End:   lines[len(lines)-1].End,
		Words: words,
	}
}

func segmentFromWords(words []Word) Segment {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	kept := make([]Word, len(words))
	copy(kept, words)
	return Segment{
		Text:  strings.Join(texts, " "),
		Start: words[0].Start,
		End:   words[len(words)-1].End,
		Words: kept,
	}
}

func fallbackSegments(u Utterance, prevEnd float64, opts Options) []Segment {
	text := strings.TrimSpace(u.Text)
	if text == "" {
		return nil
	}
	start := prevEnd
	if u.Start != nil {
		start = *u.Start
	}
	end := start + fallbackDuration
	if u.End != nil && *u.End > start {
		end = *u.End
	}

	var lines []string
	if opts.Mode == LengthSingleWord {
		lines = strings.Fields(text)
	} else {
		lines = WrapText(text, opts.MaxChars)
	}
	if len(lines) == 0 {
		return nil
	}

	step := (end - start) / float64(len(lines))
	segs := make([]Segment, 0, len(lines))
	for i, line := range lines {
		seg := Segment{Text: line, Start: start + float64(i)*step, End: start + float64(i+1)*step}
		if i == len(lines)-1 {
			seg.End = end
		}
		segs = append(segs, seg)
	}
	if opts.Mode == LengthMovie {
		return mergeMovie(segs)
	}
	return segs
}

// WrapText breaks text into lines of at most maxChars runes on word
// boundaries. Words longer than maxChars occupy a line of their own.
func WrapText(text string, maxChars int) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	if maxChars <= 0 {
		return []string{strings.Join(fields, " ")}
	}
	var (
		lines []string
		cur   strings.Builder
	)
	for _, f := range fields {
		if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+1+utf8.RuneCountInString(f) > maxChars {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(f)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// normalize pads segment ends, enforces the minimum duration and pushes each
// start past the previous end plus the minimum gap.
func normalize(segs []Segment, opts Options) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End < s.Start {
			s.End = s.Start
		}
		s.End += opts.Padding
		if s.End-s.Start < opts.MinDuration {
			s.End = s.Start + opts.MinDuration
		}
		if len(out) > 0 {
			floor := out[len(out)-1].End + opts.MinGap
			if s.Start < floor {
				s.Start = floor
				if s.End-s.Start < opts.MinDuration {
					s.End = s.Start + opts.MinDuration
				}
			}
		}
		out = append(out, s)
	}
	return out
}
