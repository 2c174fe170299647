package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders records for a human watching a build:
//
//	2026-03-04 05:06:07 INFO [workflow] Job 1a2b3c4d (captions_burning) – stage complete
//	    - Event: stage_complete
//	    - Duration: 1.5s
//
// Info records show a curated, labelled field list and skip fields whose
// value has not changed since the previous record for the same job or
// video. Debug records list every raw key.
type consoleHandler struct {
	out       *consoleOutput
	level     slog.Leveler
	addSource bool
	prefix    string
	fields    []field
}

// consoleOutput is shared by every handler derived through WithAttrs or
// WithGroup so writes and the repeat cache stay consistent.
type consoleOutput struct {
	mu   sync.Mutex
	w    io.Writer
	seen map[string]map[string]string
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{
		out:       &consoleOutput{w: w, seen: make(map[string]map[string]string)},
		level:     level,
		addSource: addSource,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = append([]field(nil), h.fields...)
	for _, a := range attrs {
		next.fields = appendField(next.fields, h.prefix, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	fields := append([]field(nil), h.fields...)
	record.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.prefix, a)
		return true
	})
	fields = lastWins(fields)

	component := lookup(fields, FieldComponent)
	jobID := lookup(fields, FieldJobID)
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(formatTimestamp(ts))
	b.WriteString(" " + levelLabel(record.Level))
	if component != "" {
		b.WriteString(" [" + component + "]")
	}
	if subject := composeSubject(jobID, lookup(fields, FieldStage)); subject != "" {
		b.WriteString(" " + subject)
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}
	b.WriteString(" – " + message)
	if src := record.Source(); h.addSource && src != nil {
		b.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
	}
	b.WriteByte('\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	if record.Level < slog.LevelInfo {
		for _, f := range fields {
			b.WriteString("    " + f.key + ": " + formatValue(f.value) + "\n")
		}
	} else {
		labelled, hidden := selectInfoFields(fields)
		labelled = h.out.dropRepeats(subjectKey(component, jobID, fields), labelled, record.Level)
		for _, l := range labelled {
			b.WriteString("    - " + l.label + ": " + l.value + "\n")
		}
		if hidden > 0 {
			b.WriteString("    + " + plural(hidden, "more field") + " hidden\n")
		}
	}
	_, err := io.WriteString(h.out.w, b.String())
	return err
}

// dropRepeats removes info fields whose value matches the last one shown
// for key. Warnings and errors always show everything and refresh the
// cache. Callers hold mu.
func (o *consoleOutput) dropRepeats(key string, fields []labelledField, level slog.Level) []labelledField {
	if key == "" {
		return fields
	}
	last := o.seen[key]
	if last == nil {
		last = make(map[string]string)
		o.seen[key] = last
	}
	kept := fields[:0:0]
	for _, f := range fields {
		if prev, ok := last[f.label]; ok && prev == f.value && level <= slog.LevelInfo {
			continue
		}
		last[f.label] = f.value
		kept = append(kept, f)
	}
	return kept
}

func appendField(dst []field, prefix string, a slog.Attr) []field {
	if a.Equal(slog.Attr{}) {
		return dst
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, g := range v.Group() {
			dst = appendField(dst, inner, g)
		}
		return dst
	}
	key := prefix + a.Key
	if a.Key == "" {
		key = strings.TrimSuffix(prefix, ".")
	}
	if key == "" {
		return dst
	}
	return append(dst, field{key: key, value: v})
}

// lastWins keeps the first position of each key with its latest value.
func lastWins(fields []field) []field {
	index := make(map[string]int, len(fields))
	out := fields[:0:0]
	for _, f := range fields {
		if i, ok := index[f.key]; ok {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func lookup(fields []field, key string) string {
	for _, f := range fields {
		if f.key == key {
			return plainValue(f.value)
		}
	}
	return ""
}

// composeSubject renders "Job 1a2b3c4d (stage)". Job IDs are UUIDs and
// their first block is enough to tell jobs apart.
func composeSubject(jobID, stage string) string {
	jobID = strings.TrimSpace(jobID)
	stage = strings.TrimSpace(stage)
	if short, _, ok := strings.Cut(jobID, "-"); ok {
		jobID = short
	}
	switch {
	case jobID != "" && stage != "":
		return "Job " + jobID + " (" + stage + ")"
	case jobID != "":
		return "Job " + jobID
	default:
		return stage
	}
}

func subjectKey(component, jobID string, fields []field) string {
	if jobID != "" {
		return jobID
	}
	if video := lookup(fields, FieldVideo); video != "" {
		return "video:" + video
	}
	return component
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func plural(n int, noun string) string {
	s := strconv.Itoa(n) + " " + noun
	if n != 1 {
		s += "s"
	}
	return s
}
