package stageexec_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"trueedits/internal/buildjob"
	"trueedits/internal/logging"
	"trueedits/internal/queue"
	"trueedits/internal/services"
	"trueedits/internal/stage"
	"trueedits/internal/stageexec"
	"trueedits/internal/testsupport"
)

type fakeStage struct {
	name     string
	skip     string
	err      error
	executed bool
	logger   bool
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Skip(*buildjob.Job) (bool, string) { return f.skip != "", f.skip }

func (f *fakeStage) Execute(context.Context, *buildjob.Job) error {
	f.executed = true
	return f.err
}

func (f *fakeStage) HealthCheck(context.Context) stage.Health { return stage.Healthy(f.name) }

func (f *fakeStage) SetLogger(*slog.Logger) { f.logger = true }

func newJob(t *testing.T) *buildjob.Job {
	t.Helper()
	dir := t.TempDir()
	job, err := buildjob.New("job-1", filepath.Join(dir, "clip.mp4"), dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return job
}

func TestRunRecordsStageStatus(t *testing.T) {
	tests := []struct {
		name    string
		stage   *fakeStage
		want    buildjob.StageStatus
		skipped bool
		wantErr error
	}{
		{"done", &fakeStage{name: "burn"}, buildjob.StageDone, false, nil},
		{"skipped", &fakeStage{name: "burn", skip: "captions disabled"}, buildjob.StageSkipped, true, nil},
		{"failed", &fakeStage{name: "burn", err: services.Wrap(services.ErrExternalTool, "burn", "run", "boom", nil)}, buildjob.StageFailed, false, services.ErrExternalTool},
		{"cancelled", &fakeStage{name: "burn", err: services.Cancelled("burn", nil)}, buildjob.StageCancelled, false, services.ErrCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := newJob(t)
			out, err := stageexec.Run(context.Background(), stageexec.Options{
				Logger:  logging.NewNop(),
				Handler: tt.stage,
				Job:     job,
			})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Run: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if out.Skipped != tt.skipped {
				t.Fatalf("skipped = %v, want %v", out.Skipped, tt.skipped)
			}
			if tt.stage.executed == tt.skipped {
				t.Fatalf("executed = %v for skipped = %v", tt.stage.executed, tt.skipped)
			}
			if !tt.stage.logger {
				t.Fatal("expected SetLogger before execution")
			}
			if got, _ := job.StageResult("burn"); got != tt.want {
				t.Fatalf("stage status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRunPersistsProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	records := testsupport.NewRunWithJobs(t, store, "run-1", "/videos/clip.mp4")

	_, err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:  logging.NewNop(),
		Store:   store,
		Handler: &fakeStage{name: "end_card", skip: "no end card for en"},
		Job:     newJob(t),
		Record:  records[0],
		Percent: 50,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := store.GetJob(context.Background(), records[0].ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != queue.StatusRunning || got.Stage != "End Card" || got.ProgressPercent != 50 {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.ProgressMessage != "Skipped: no end card for en" {
		t.Fatalf("unexpected message %q", got.ProgressMessage)
	}
}

func TestDeriveStageLabel(t *testing.T) {
	for in, want := range map[string]string{
		"captions": "Captions",
		"end_card": "End Card",
		"":         "",
	} {
		if got := stageexec.DeriveStageLabel(in); got != want {
			t.Fatalf("DeriveStageLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
