package subtitles

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"trueedits/internal/captions"
)

const (
	styleFormat = "Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, " +
		"Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, " +
		"Alignment, MarginL, MarginR, MarginV, Encoding"
	eventFormat = "Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text"

	alphaVisible     = `\alpha&H00&`
	alphaTransparent = `\alpha&HFF&`
)

// Karaoke configures the word-highlight overlay layer.
type Karaoke struct {
	Enabled        bool
	BaseColor      string
	HighlightColor string
}

// Cue is a caption segment plus its karaoke word intervals, if any.
type Cue struct {
	Segment captions.Segment
	Words   []captions.WordTiming
}

// BuildCues attaches karaoke intervals to each segment when enabled.
func BuildCues(segments []captions.Segment, karaoke Karaoke, floor float64) []Cue {
	cues := make([]Cue, 0, len(segments))
	for _, seg := range segments {
		cue := Cue{Segment: seg}
		if karaoke.Enabled {
			cue.Words = captions.DistributeKaraoke(seg, floor)
		}
		cues = append(cues, cue)
	}
	return cues
}

// Render serializes the style and cues into an ASS script. Karaoke cues get
// a layer 0 base line plus one layer 1 overlay per word.
func Render(style Style, cues []Cue, karaoke Karaoke) (string, error) {
	var highlight, base string
	if karaoke.Enabled {
		var err error
		if highlight, err = colorOverride(firstNonEmpty(karaoke.HighlightColor, "#FFFF00")); err != nil {
			return "", fmt.Errorf("karaoke highlight color: %w", err)
		}
		if strings.TrimSpace(karaoke.BaseColor) != "" {
			if base, err = colorOverride(karaoke.BaseColor); err != nil {
				return "", fmt.Errorf("karaoke base color: %w", err)
			}
		}
	}

	var b strings.Builder
	writeHeader(&b, style)
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: " + eventFormat + "\n")

	for _, cue := range cues {
		text := strings.TrimSpace(cue.Segment.Text)
		if text == "" {
			continue
		}
		baseText := Escape(text)
		if base != "" {
			baseText = `{\c` + base + `}` + baseText
		}
		writeDialogue(&b, 0, cue.Segment.Start, cue.Segment.End, style.Name, baseText)

		if !karaoke.Enabled || len(cue.Words) == 0 {
			continue
		}
		tokens := overlayTokens(text, len(cue.Words))
		for i, w := range cue.Words {
			writeDialogue(&b, 1, w.Start, w.End, style.Name, overlayText(tokens, i, highlight))
		}
	}
	return b.String(), nil
}

type overlayToken struct {
	text      string
	lineBreak bool
}

// overlayTokens splits caption text into words, remembering which words
// start a new line. When the word count does not match the timings, the
// caption is treated as a single line.
func overlayTokens(text string, count int) []overlayToken {
	var tokens []overlayToken
	for li, line := range strings.Split(text, "\n") {
		for wi, field := range strings.Fields(line) {
			tokens = append(tokens, overlayToken{text: field, lineBreak: li > 0 && wi == 0})
		}
	}
	if len(tokens) == count {
		return tokens
	}
	fields := strings.Fields(text)
	tokens = tokens[:0]
	for _, f := range fields {
		tokens = append(tokens, overlayToken{text: f})
	}
	for len(tokens) < count {
		tokens = append(tokens, overlayToken{})
	}
	return tokens[:count]
}

func overlayText(tokens []overlayToken, active int, highlight string) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			if tok.lineBreak {
				b.WriteString(`\N`)
			} else {
				b.WriteByte(' ')
			}
		}
		if i == active {
			b.WriteString("{" + alphaVisible + `\c` + highlight + "}")
		} else {
			b.WriteString("{" + alphaTransparent + "}")
		}
		b.WriteString(Escape(tok.text))
	}
	return b.String()
}

func writeHeader(b *strings.Builder, style Style) {
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(b, "PlayResX: %d\n", style.PlayResX)
	fmt.Fprintf(b, "PlayResY: %d\n", style.PlayResY)
	b.WriteString("ScaledBorderAndShadow: yes\n")
	b.WriteString("WrapStyle: 0\n")
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: " + styleFormat + "\n")
	b.WriteString(FormatStyleLine(style) + "\n")
}

func writeDialogue(b *strings.Builder, layer int, start, end float64, style, text string) {
	fmt.Fprintf(b, "Dialogue: %d,%s,%s,%s,,0,0,0,,%s\n", layer, FormatTime(start), FormatTime(end), style, text)
}

// FormatStyleLine renders the "Style:" row in [V4+ Styles] field order.
func FormatStyleLine(s Style) string {
	name := firstNonEmpty(s.Name, DefaultStyleName)
	return fmt.Sprintf("Style: %s,%s,%d,%s,%s,%s,%s,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d",
		name, s.Font, s.Size,
		s.PrimaryColor, s.SecondaryColor, s.OutlineColor, s.BackColor,
		assBool(s.Bold), assBool(s.Italic), assBool(s.Underline), assBool(s.StrikeOut),
		s.ScaleX, s.ScaleY, s.Spacing, s.Angle,
		s.BorderStyle, s.Outline, s.Shadow,
		s.Alignment, s.MarginL, s.MarginR, s.MarginV, s.Encoding,
	)
}

// FormatTime renders seconds as H:MM:SS.CS, rounding to the nearest
// centisecond. Negative values clamp to zero.
func FormatTime(seconds float64) string {
	cs := int64(math.Round(seconds * 100))
	if cs < 0 {
		cs = 0
	}
	h := cs / 360000
	m := (cs / 6000) % 60
	s := (cs / 100) % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"{", `\{`,
	"}", `\}`,
	"\r\n", `\N`,
	"\n", `\N`,
)

// Escape makes caption text safe for a Dialogue text field.
func Escape(text string) string {
	return escaper.Replace(text)
}

func assBool(v bool) int {
	if v {
		return -1
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// WriteFile writes the script next to path and renames it into place so a
// half-written file is never picked up as a cached artifact.
func WriteFile(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create subtitle directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp subtitle: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write subtitle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close subtitle: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename subtitle: %w", err)
	}
	return nil
}

// ScriptInfo is the subset of an existing script needed to decide whether
// it can be reused.
type ScriptInfo struct {
	PlayResX int
	PlayResY int
	Style    Style
	Events   int
}

// ReadScriptInfo scans an ASS file for its resolution, first style and
// dialogue count.
func ReadScriptInfo(path string) (ScriptInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ScriptInfo{}, err
	}
	defer f.Close()

	var (
		info      ScriptInfo
		haveStyle bool
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "PlayResX:"):
			info.PlayResX, _ = strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "PlayResX:")))
		case strings.HasPrefix(line, "PlayResY:"):
			info.PlayResY, _ = strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "PlayResY:")))
		case strings.HasPrefix(line, "Style:") && !haveStyle:
			style, err := ParseStyleLine(line)
			if err != nil {
				return ScriptInfo{}, fmt.Errorf("parse %s: %w", path, err)
			}
			info.Style = style
			haveStyle = true
		case strings.HasPrefix(line, "Dialogue:"):
			info.Events++
		}
	}
	if err := scanner.Err(); err != nil {
		return ScriptInfo{}, fmt.Errorf("read %s: %w", path, err)
	}
	if !haveStyle {
		return ScriptInfo{}, fmt.Errorf("no style found in %s", path)
	}
	info.Style.PlayResX = info.PlayResX
	info.Style.PlayResY = info.PlayResY
	return info, nil
}
