package testsupport

import (
	"context"
	"fmt"
	"testing"

	"trueedits/internal/config"
	"trueedits/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRunWithJobs records a run with one pending job per video path.
func NewRunWithJobs(t testing.TB, store *queue.Store, runID string, videos ...string) []*queue.Job {
	t.Helper()

	ctx := context.Background()
	if _, err := store.CreateRun(ctx, runID, len(videos)); err != nil {
		t.Fatalf("store.CreateRun: %v", err)
	}
	jobs := make([]*queue.Job, 0, len(videos))
	for i, video := range videos {
		job, err := store.CreateJob(ctx, fmt.Sprintf("%s-job-%d", runID, i), runID, i, video, fmt.Sprintf("video%d", i))
		if err != nil {
			t.Fatalf("store.CreateJob: %v", err)
		}
		jobs = append(jobs, job)
	}
	return jobs
}
