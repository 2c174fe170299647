package organizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"trueedits/internal/buildjob"
	"trueedits/internal/config"
	"trueedits/internal/logging"
	"trueedits/internal/services"
	"trueedits/internal/testsupport"
)

func newJob(t *testing.T, cfg *config.Config) *buildjob.Job {
	t.Helper()
	src := filepath.Join(testsupport.BaseDir(cfg), "input", "clip.mov")
	testsupport.WriteFile(t, src, 128)
	job, err := buildjob.New("job-1", src, cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := job.EnsureTempDir(); err != nil {
		t.Fatalf("EnsureTempDir: %v", err)
	}
	job.Current = src
	return job
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("/out", "/videos/talk.mov"); got != "/out/talk_Edited.mp4" {
		t.Fatalf("OutputPath = %s", got)
	}
	if got := OutputPath("", "/videos/talk.mov"); got != "/videos/talk_Edited.mp4" {
		t.Fatalf("OutputPath next to source = %s", got)
	}
}

func TestOrganizerMovesArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	job := newJob(t, cfg)
	artifact := job.Path(buildjob.SuffixMixed)
	testsupport.WriteFile(t, artifact, 256)
	job.Advance(artifact)

	o := NewOrganizer(cfg, logging.NewNop())
	if err := o.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := filepath.Join(cfg.Paths.OutputDir, "clip_Edited.mp4")
	if job.Output != want || job.CurrentState() != buildjob.StateFinalizing {
		t.Fatalf("unexpected job output %q state %s", job.Output, job.CurrentState())
	}
	info, err := os.Stat(want)
	if err != nil || info.Size() != 256 {
		t.Fatalf("expected delivered artifact, got %v %v", info, err)
	}
	if _, err := os.Stat(artifact); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("artifact should have been moved, stat err %v", err)
	}
}

func TestOrganizerCopiesUntouchedSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.OutputDir = ""
	job := newJob(t, cfg)

	if err := NewOrganizer(cfg, logging.NewNop()).Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := filepath.Join(filepath.Dir(job.VideoPath), "clip_Edited.mp4")
	if job.Output != want {
		t.Fatalf("unexpected output %q", job.Output)
	}
	if _, err := os.Stat(job.VideoPath); err != nil {
		t.Fatalf("source must survive passthrough delivery: %v", err)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected copy next to source: %v", err)
	}
}

func TestOrganizerMissingArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	job := newJob(t, cfg)
	job.Advance(job.Path(buildjob.SuffixMixed))
	err := NewOrganizer(cfg, logging.NewNop()).Execute(context.Background(), job)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected delivery failure, got %v", err)
	}
}

func TestOrganizerCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewOrganizer(cfg, logging.NewNop()).Execute(ctx, newJob(t, cfg)); !services.IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		name   string
		target string
		source string
		ok     bool
	}{
		{"valid", "/out/a_Edited.mp4", "/in/a.mov", true},
		{"empty", "", "/in/a.mov", false},
		{"overwrites source", "/in/a_Edited.mp4", "/in/a_Edited.mp4", false},
		{"missing suffix", "/out/a.mp4", "/in/a.mov", false},
	}
	for _, tt := range tests {
		err := ValidateTarget(tt.target, tt.source, logging.NewNop())
		if tt.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tt.name, err)
		}
	}
}

func TestOrganizerHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if h := NewOrganizer(cfg, logging.NewNop()).HealthCheck(context.Background()); !h.Ready {
		t.Fatalf("expected ready, got %+v", h)
	}
	cfg.Paths.OutputDir = filepath.Join(testsupport.BaseDir(cfg), "missing")
	if h := NewOrganizer(cfg, logging.NewNop()).HealthCheck(context.Background()); h.Ready {
		t.Fatal("expected unhealthy for missing output dir")
	}
}
