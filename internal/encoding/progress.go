package encoding

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// progressUpdate is one block of ffmpeg -progress output.
type progressUpdate struct {
	OutTime time.Duration
	Speed   float64
	Done    bool
}

// progressParser accumulates key=value lines until ffmpeg closes a block
// with progress=continue or progress=end.
type progressParser struct {
	current progressUpdate
}

// Feed consumes one line and returns a completed update at block ends.
func (p *progressParser) Feed(line string) (progressUpdate, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return progressUpdate{}, false
	}
	value = strings.TrimSpace(value)
	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys carry microseconds.
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.current.OutTime = time.Duration(us) * time.Microsecond
		}
	case "out_time":
		if d, ok := parseClock(value); ok {
			p.current.OutTime = d
		}
	case "speed":
		if v, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil {
			p.current.Speed = v
		}
	case "progress":
		update := p.current
		update.Done = value == "end"
		return update, true
	}
	return progressUpdate{}, false
}

// parseClock parses HH:MM:SS.micro as written by ffmpeg.
func parseClock(value string) (time.Duration, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	s, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil || h < 0 || m < 0 || s < 0 {
		return 0, false
	}
	total := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s*float64(time.Second))
	return total, true
}

// fraction maps an update onto [0,1] of the expected output duration.
// Unknown durations report -1 until the final block.
func (u progressUpdate) fraction(total float64) float64 {
	if u.Done {
		return 1
	}
	if total <= 0 {
		return -1
	}
	f := u.OutTime.Seconds() / total
	if f > 1 {
		f = 1
	}
	return f
}

func (u progressUpdate) eta(total float64) time.Duration {
	if total <= 0 || u.Speed <= 0 {
		return 0
	}
	remaining := total - u.OutTime.Seconds()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(remaining / u.Speed * float64(time.Second))
}

func progressMessageText(label string, update progressUpdate, total float64) string {
	fraction := update.fraction(total)
	if fraction < 0 {
		return label
	}
	base := fmt.Sprintf("%s %.1f%%", label, fraction*100)
	extras := make([]string, 0, 2)
	if eta := update.eta(total); eta > 0 && !update.Done {
		if formatted := formatETA(eta); formatted != "" {
			extras = append(extras, fmt.Sprintf("ETA %s", formatted))
		}
	}
	if update.Speed > 0 {
		extras = append(extras, fmt.Sprintf("@ %.1fx", update.Speed))
	}
	if len(extras) == 0 {
		return base
	}
	return fmt.Sprintf("%s (%s)", base, strings.Join(extras, ", "))
}

func formatETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || (hours == 0 && minutes == 0) {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, "")
}
