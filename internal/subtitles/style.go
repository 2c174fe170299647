package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Style is one row of the ASS [V4+ Styles] table plus the script resolution
// it was authored for.
type Style struct {
	Name           string
	Font           string
	Size           int
	PrimaryColor   string
	SecondaryColor string
	OutlineColor   string
	BackColor      string
	Bold           bool
	Italic         bool
	Underline      bool
	StrikeOut      bool
	ScaleX         int
	ScaleY         int
	Spacing        int
	Angle          int
	BorderStyle    int
	Outline        int
	Shadow         int
	Alignment      int
	MarginL        int
	MarginR        int
	MarginV        int
	Encoding       int
	PlayResX       int
	PlayResY       int
}

const (
	DefaultStyleName = "Default"
	DefaultFont      = "Roboto"

	borderOutline   = 1
	borderOpaqueBox = 3
)

// DefaultStyle returns the bottom-centred style used for vertical
// short-form video at the given resolution.
func DefaultStyle(width, height int) Style {
	s := Style{
		Name:           DefaultStyleName,
		Font:           DefaultFont,
		Size:           int(float64(height) * 0.072),
		PrimaryColor:   "&H00FFFFFF",
		SecondaryColor: "&H000000FF",
		OutlineColor:   "&H00000000",
		BackColor:      "&H64000000",
		ScaleX:         100,
		ScaleY:         100,
		Spacing:        int(float64(width) * 0.0005),
		BorderStyle:    borderOutline,
		Outline:        3,
		Shadow:         2,
		Alignment:      2,
		MarginL:        int(float64(width) * 0.037),
		MarginR:        int(float64(width) * 0.037),
		MarginV:        int(float64(height) * 0.33),
		Encoding:       1,
		PlayResX:       width,
		PlayResY:       height,
	}
	if s.Size <= 0 {
		s.Size = 64
	}
	s.clampMargins()
	return s
}

// Anchor pins the caption to a row regardless of the vertical position.
type Anchor string

const (
	AnchorAuto   Anchor = ""
	AnchorTop    Anchor = "top"
	AnchorMiddle Anchor = "middle"
	AnchorBottom Anchor = "bottom"
)

// ParseAnchor accepts "", "auto", top, middle/center or bottom.
func ParseAnchor(value string) (Anchor, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return AnchorAuto, nil
	case "top":
		return AnchorTop, nil
	case "middle", "center", "centre":
		return AnchorMiddle, nil
	case "bottom":
		return AnchorBottom, nil
	default:
		return "", fmt.Errorf("unknown caption anchor %q", value)
	}
}

// Position is a normalized caption location; (0,0) is the top-left corner.
type Position struct {
	X      float64
	Y      float64
	Anchor Anchor
}

// StyleInput carries caption settings in preview coordinates.
type StyleInput struct {
	Font              string
	Size              float64
	PreviewHeight     int
	PrimaryColor      string
	BackgroundColor   string
	BackgroundOpacity float64
	BackgroundEnabled bool
	Bold              bool
	Italic            bool
	Outline           int
	Shadow            int
	Position          Position

	// Upper bounds for the computed margins as fractions of the frame.
	MaxMarginHFraction float64
	MaxMarginVFraction float64
}

const (
	lowThird  = 0.33
	highThird = 0.67
)

// CompileStyle turns caption settings into a style for a width x height
// frame.
func CompileStyle(in StyleInput, width, height int) (Style, error) {
	s := DefaultStyle(width, height)

	if font := strings.TrimSpace(in.Font); font != "" {
		s.Font = font
	}
	if in.Size > 0 {
		size := in.Size
		if in.PreviewHeight > 0 && height > 0 {
			size = size * float64(height) / float64(in.PreviewHeight)
		}
		s.Size = int(math.Round(size))
		if s.Size < 1 {
			s.Size = 1
		}
	}
	if strings.TrimSpace(in.PrimaryColor) != "" {
		color, err := ColorToASS(in.PrimaryColor, 1)
		if err != nil {
			return Style{}, fmt.Errorf("primary color: %w", err)
		}
		s.PrimaryColor = color
	}
	if strings.TrimSpace(in.BackgroundColor) != "" {
		color, err := ColorToASS(in.BackgroundColor, in.BackgroundOpacity)
		if err != nil {
			return Style{}, fmt.Errorf("background color: %w", err)
		}
		s.BackColor = color
		s.OutlineColor = color
	}
	if in.BackgroundEnabled {
		s.BorderStyle = borderOpaqueBox
	}
	s.Bold = in.Bold
	s.Italic = in.Italic
	s.Outline = max(in.Outline, 0)
	s.Shadow = max(in.Shadow, 0)

	pos := clampPosition(in.Position)
	s.Alignment = AlignmentFor(pos)

	marginH := math.Abs(0.5-pos.X) * float64(width)
	if in.MaxMarginHFraction > 0 {
		marginH = math.Min(marginH, in.MaxMarginHFraction*float64(width))
	}
	marginV := (1 - pos.Y) * float64(height)
	if in.MaxMarginVFraction > 0 {
		marginV = math.Min(marginV, in.MaxMarginVFraction*float64(height))
	}
	s.MarginL = int(math.Round(marginH))
	s.MarginR = int(math.Round(marginH))
	s.MarginV = int(math.Round(marginV))
	s.clampMargins()
	return s, nil
}

// AlignmentFor maps a position onto the numpad-style ASS alignment grid:
// 1-3 bottom, 4-6 middle, 7-9 top.
func AlignmentFor(pos Position) int {
	col := 1
	switch {
	case pos.X < lowThird:
		col = 0
	case pos.X > highThird:
		col = 2
	}

	rowBase := 3
	switch pos.Anchor {
	case AnchorTop:
		rowBase = 6
	case AnchorBottom:
		rowBase = 0
	case AnchorMiddle:
		rowBase = 3
	default:
		switch {
		case pos.Y < lowThird:
			rowBase = 6
		case pos.Y > highThird:
			rowBase = 0
		}
	}
	return rowBase + col + 1
}

// Rescale adapts the style to a different frame size and re-clamps margins.
func (s Style) Rescale(width, height int) Style {
	if s.PlayResX > 0 && s.PlayResY > 0 && width > 0 && height > 0 {
		sx := float64(width) / float64(s.PlayResX)
		sy := float64(height) / float64(s.PlayResY)
		s.Size = int(math.Round(float64(s.Size) * sy))
		s.MarginL = int(math.Round(float64(s.MarginL) * sx))
		s.MarginR = int(math.Round(float64(s.MarginR) * sx))
		s.MarginV = int(math.Round(float64(s.MarginV) * sy))
	}
	s.PlayResX = width
	s.PlayResY = height
	s.clampMargins()
	return s
}

func (s *Style) clampMargins() {
	s.MarginL = clampInt(s.MarginL, 0, s.PlayResX)
	s.MarginR = clampInt(s.MarginR, 0, s.PlayResX)
	s.MarginV = clampInt(s.MarginV, 0, s.PlayResY)
}

func clampPosition(p Position) Position {
	if math.IsNaN(p.X) {
		p.X = 0.5
	}
	if math.IsNaN(p.Y) {
		p.Y = 1
	}
	p.X = math.Max(0, math.Min(1, p.X))
	p.Y = math.Max(0, math.Min(1, p.Y))
	return p
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ColorToASS converts "#RRGGBB" (or "RRGGBB") and an opacity in [0,1] into
// the ASS "&HAABBGGRR" form. Values already in ASS form pass through.
func ColorToASS(hex string, opacity float64) (string, error) {
	hex = strings.TrimSpace(hex)
	if strings.HasPrefix(strings.ToUpper(hex), "&H") {
		return strings.ToUpper(hex), nil
	}
	r, g, b, err := parseHexColor(hex)
	if err != nil {
		return "", err
	}
	opacity = math.Max(0, math.Min(1, opacity))
	alpha := int(math.Round((1 - opacity) * 255))
	return fmt.Sprintf("&H%02X%02X%02X%02X", alpha, b, g, r), nil
}

// colorOverride returns the inline \c form (&HBBGGRR&) of a colour.
func colorOverride(hex string) (string, error) {
	hex = strings.TrimSpace(hex)
	if strings.HasPrefix(strings.ToUpper(hex), "&H") {
		body := strings.TrimSuffix(strings.ToUpper(hex)[2:], "&")
		if len(body) == 8 {
			body = body[2:]
		}
		return "&H" + body + "&", nil
	}
	r, g, b, err := parseHexColor(hex)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("&H%02X%02X%02X&", b, g, r), nil
}

func parseHexColor(hex string) (r, g, b uint8, err error) {
	value := strings.TrimPrefix(hex, "#")
	if len(value) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid color %q: want #RRGGBB", hex)
	}
	n, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return uint8(n >> 16), uint8(n >> 8), uint8(n), nil
}

// ParseStyleLine reads a "Style:" row written by FormatStyleLine. PlayRes is
// left unset.
func ParseStyleLine(line string) (Style, error) {
	body, ok := strings.CutPrefix(strings.TrimSpace(line), "Style:")
	if !ok {
		return Style{}, fmt.Errorf("not a style line: %q", line)
	}
	fields := strings.Split(body, ",")
	if len(fields) != 23 {
		return Style{}, fmt.Errorf("style line has %d fields, want 23", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	ints := make([]int, len(fields))
	for _, idx := range []int{2, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22} {
		v, err := strconv.Atoi(fields[idx])
		if err != nil {
			return Style{}, fmt.Errorf("style field %d: %w", idx, err)
		}
		ints[idx] = v
	}
	return Style{
		Name:           fields[0],
		Font:           fields[1],
		Size:           ints[2],
		PrimaryColor:   fields[3],
		SecondaryColor: fields[4],
		OutlineColor:   fields[5],
		BackColor:      fields[6],
		Bold:           ints[7] != 0,
		Italic:         ints[8] != 0,
		Underline:      ints[9] != 0,
		StrikeOut:      ints[10] != 0,
		ScaleX:         ints[11],
		ScaleY:         ints[12],
		Spacing:        ints[13],
		Angle:          ints[14],
		BorderStyle:    ints[15],
		Outline:        ints[16],
		Shadow:         ints[17],
		Alignment:      ints[18],
		MarginL:        ints[19],
		MarginR:        ints[20],
		MarginV:        ints[21],
		Encoding:       ints[22],
	}, nil
}
