package logging

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type labelledField struct {
	label string
	value string
}

// infoOrder lists the keys shown first at info level, in this order.
// Anything else follows in record order.
var infoOrder = []string{
	FieldEventType,
	FieldDecisionType,
	"decision_result",
	"decision_reason",
	FieldVideo,
	FieldProgressPercent,
	FieldProgressMessage,
	"command",
	"error_message",
	FieldErrorHint,
	FieldImpact,
	"status",
	"language",
	"model",
	"segment_count",
	"word_count",
	"length_mode",
	"karaoke",
	"resolution",
	"frame_rate",
	"rotation",
	"cleanup",
	"platform",
	"loudness_target",
	"music",
	"end_card",
	"voice_isolation",
	"output",
	"stage_duration",
	"job_duration",
	"output_bytes",
	"processed",
	"failed",
	"cancelled",
	"reason",
}

var fieldLabels = map[string]string{
	FieldEventType:       "Event",
	FieldDecisionType:    "Decision",
	FieldErrorHint:       "Hint",
	FieldVideo:           "Video",
	FieldProgressPercent: "Progress",
	FieldProgressMessage: "Step",
	"decision_result":    "Result",
	"decision_reason":    "Reason",
	"stage_duration":     "Duration",
	"job_duration":       "Duration",
	"segment_count":      "Captions",
	"word_count":         "Words",
	"loudness_target":    "Loudness",
	"voice_isolation":    "Voice Isolation",
	"output_bytes":       "Size",
}

// selectInfoFields picks and formats the fields worth showing at info
// level and counts the ones held back for debug output.
func selectInfoFields(fields []field) ([]labelledField, int) {
	ordered := slices.Clone(fields)
	slices.SortStableFunc(ordered, func(a, b field) int {
		return infoRank(a.key) - infoRank(b.key)
	})

	var shown []labelledField
	hidden := 0
	for _, f := range ordered {
		switch f.key {
		case FieldJobID, FieldStage, FieldComponent:
			continue
		}
		if debugOnly(f.key) {
			hidden++
			continue
		}
		value := formatForKey(f.key, f.value)
		if len(value) > 120 && !alwaysFull(f.key) {
			hidden++
			continue
		}
		shown = append(shown, labelledField{label: labelFor(f.key), value: value})
	}
	return shown, hidden
}

func infoRank(key string) int {
	if i := slices.Index(infoOrder, key); i >= 0 {
		return i
	}
	return len(infoOrder)
}

func debugOnly(key string) bool {
	switch key {
	case FieldRunID, "pid", "args", "filter", "style_line", "words", "duration_seconds":
		return true
	}
	return strings.HasSuffix(key, "_id") ||
		strings.HasPrefix(key, "ffprobe.") ||
		strings.Contains(key, "_path") ||
		strings.Contains(key, "_dir")
}

func alwaysFull(key string) bool {
	switch key {
	case "error", "error_message", "command", "decision_reason":
		return true
	}
	return false
}

var titleCaser = cases.Title(language.Und)

func labelFor(key string) string {
	if label, ok := fieldLabels[key]; ok {
		return label
	}
	return titleizeKey(key)
}

func titleizeKey(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == '.' })
	return titleCaser.String(strings.Join(words, " "))
}

// formatForKey renders values for people: sizes in binary units,
// rounded durations, one-decimal percents and yes/no booleans.
func formatForKey(key string, v slog.Value) string {
	switch {
	case v.Kind() == slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	case strings.HasSuffix(key, "_bytes") && v.Kind() == slog.KindInt64:
		return formatBytes(v.Int64())
	case strings.HasSuffix(key, "_bytes") && v.Kind() == slog.KindUint64:
		return formatBytes(int64(v.Uint64()))
	case v.Kind() == slog.KindDuration:
		return formatDurationHuman(v.Duration())
	case strings.HasSuffix(key, "_percent") && v.Kind() == slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', 1, 64) + "%"
	}
	value := formatValue(v)
	if key == "error" || key == "error_message" {
		value = truncate(strings.TrimSpace(value), 200)
	}
	return value
}

// plainValue renders v without quoting.
func plainValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	}
	return formatValue(v)
}

// formatValue renders v in logfmt style, quoting strings that contain
// spaces, quotes or equals signs.
func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(err.Error())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	}
	return quoteIfNeeded(v.String())
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatDurationHuman(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
