package encoding

import (
	"testing"
	"time"
)

func TestProgressParserBlocks(t *testing.T) {
	var p progressParser
	lines := []string{
		"frame=10",
		"out_time_us=2500000",
		"speed=1.5x",
		"progress=continue",
		"out_time=00:00:05.000000",
		"progress=end",
	}
	var updates []progressUpdate
	for _, line := range lines {
		if u, ok := p.Feed(line); ok {
			updates = append(updates, u)
		}
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[0].OutTime != 2500*time.Millisecond || updates[0].Speed != 1.5 || updates[0].Done {
		t.Fatalf("unexpected first update %+v", updates[0])
	}
	if updates[1].OutTime != 5*time.Second || !updates[1].Done {
		t.Fatalf("unexpected final update %+v", updates[1])
	}
}

func TestProgressParserIgnoresGarbage(t *testing.T) {
	var p progressParser
	for _, line := range []string{"", "noise", "out_time_us=N/A", "out_time=bad"} {
		if _, ok := p.Feed(line); ok {
			t.Fatalf("line %q should not complete a block", line)
		}
	}
	u, ok := p.Feed("progress=continue")
	if !ok || u.OutTime != 0 {
		t.Fatalf("unexpected update %+v", u)
	}
}

func TestProgressFraction(t *testing.T) {
	tests := []struct {
		name   string
		update progressUpdate
		total  float64
		want   float64
	}{
		{"half", progressUpdate{OutTime: 5 * time.Second}, 10, 0.5},
		{"clamped", progressUpdate{OutTime: 12 * time.Second}, 10, 1},
		{"unknown total", progressUpdate{OutTime: time.Second}, 0, -1},
		{"done", progressUpdate{Done: true}, 0, 1},
	}
	for _, tt := range tests {
		if got := tt.update.fraction(tt.total); got != tt.want {
			t.Fatalf("%s: fraction = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestProgressMessageText(t *testing.T) {
	u := progressUpdate{OutTime: 30 * time.Second, Speed: 2}
	got := progressMessageText("Captions burning", u, 150)
	want := "Captions burning 20.0% (ETA 1m, @ 2.0x)"
	if got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
	if got := progressMessageText("Mixing", progressUpdate{}, 0); got != "Mixing" {
		t.Fatalf("unknown total should return the label, got %q", got)
	}
}

func TestFormatETA(t *testing.T) {
	tests := map[time.Duration]string{
		0:                            "",
		45 * time.Second:             "45s",
		61 * time.Second:             "1m1s",
		time.Hour + 2*time.Second:    "1h0m2s",
		2*time.Hour + 30*time.Minute: "2h30m",
		1500 * time.Millisecond:      "2s",
	}
	for in, want := range tests {
		if got := formatETA(in); got != want {
			t.Fatalf("formatETA(%s) = %q, want %q", in, got, want)
		}
	}
}
