package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"trueedits/internal/captions"
	"trueedits/internal/config"
	"trueedits/internal/encoding"
	"trueedits/internal/logging"
	"trueedits/internal/process"
	"trueedits/internal/queue"
	"trueedits/internal/services"
	"trueedits/internal/services/whisperx"
	"trueedits/internal/testsupport"
	"trueedits/internal/workflow"
)

type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTranscriber) ExtractAudio(_ context.Context, _, dest string) error {
	return os.WriteFile(dest, []byte("RIFF"), 0o644)
}

func (f *fakeTranscriber) Transcribe(context.Context, string, string, string) (whisperx.Transcript, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	start, end := 0.2, 1.4
	return whisperx.Transcript{
		Language: "en",
		Utterances: []captions.Utterance{{
			Text:  "hello world",
			Start: &start,
			End:   &end,
			Words: []captions.Word{
				{Text: "hello", Start: 0.2, End: 0.7},
				{Text: "world", Start: 0.8, End: 1.4},
			},
		}},
	}, nil
}

func (f *fakeTranscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubNotifier struct {
	mu        sync.Mutex
	started   []int
	completed []string
	batches   [][3]int
	errors    []string
}

func (s *stubNotifier) NotifyBatchStarted(_ context.Context, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, count)
	return nil
}

func (s *stubNotifier) NotifyVideoCompleted(_ context.Context, source, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, filepath.Base(source))
	return nil
}

func (s *stubNotifier) NotifyBatchCompleted(_ context.Context, processed, failed, cancelled int, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, [3]int{processed, failed, cancelled})
	return nil
}

func (s *stubNotifier) NotifyError(_ context.Context, _ error, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, label)
	return nil
}

func (s *stubNotifier) TestNotification(context.Context) error { return nil }

type harness struct {
	cfg         *config.Config
	store       *queue.Store
	exec        *testsupport.FakeExecutor
	transcriber *fakeTranscriber
	notifier    *stubNotifier
	manager     *workflow.Manager
	sourceDir   string
}

func newHarness(t *testing.T, exec *testsupport.FakeExecutor, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	if exec == nil {
		exec = &testsupport.FakeExecutor{}
	}
	probe := testsupport.StaticProbe(testsupport.ProbeResult(1080, 1920, 10, true))
	t.Cleanup(encoding.SetProbeForTests(probe))

	h := &harness{
		cfg:         cfg,
		store:       store,
		exec:        exec,
		transcriber: &fakeTranscriber{},
		notifier:    &stubNotifier{},
		sourceDir:   filepath.Join(testsupport.BaseDir(cfg), "sources"),
	}
	h.manager = workflow.NewManager(cfg, store, logging.NewNop(),
		workflow.WithExecutor(exec),
		workflow.WithProbe(probe),
		workflow.WithTranscriber(h.transcriber),
		workflow.WithNotifier(h.notifier),
	)
	return h
}

func (h *harness) videos(t *testing.T, names ...string) []string {
	t.Helper()
	return testsupport.WriteVideos(t, h.sourceDir, names...)
}

func (h *harness) output(stem string) string {
	return filepath.Join(h.cfg.Paths.OutputDir, stem+"_Edited.mp4")
}

type progressLog struct {
	mu       sync.Mutex
	percents []int
	messages []string
}

func (p *progressLog) record(percent int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percents = append(p.percents, percent)
	p.messages = append(p.messages, message)
}

func TestRunBatchProcessesVideos(t *testing.T) {
	h := newHarness(t, nil)
	videos := h.videos(t, "intro.mp4", "outro.mp4")
	progress := &progressLog{}

	summary, err := h.manager.RunBatch(context.Background(), workflow.Request{Videos: videos}, progress.record)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if !summary.Success || summary.Processed != 2 || summary.Failed != 0 || len(summary.Errors) != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, stem := range []string{"intro", "outro"} {
		if _, err := os.Stat(h.output(stem)); err != nil {
			t.Fatalf("expected deliverable for %s: %v", stem, err)
		}
		if _, err := os.Stat(filepath.Join(h.cfg.Paths.WorkDir, stem)); !os.IsNotExist(err) {
			t.Fatalf("expected temp dir for %s removed, got %v", stem, err)
		}
		if _, err := os.Stat(filepath.Join(h.cfg.Paths.TranscriptsDir, stem+".ass")); err != nil {
			t.Fatalf("expected cached captions for %s: %v", stem, err)
		}
	}
	if h.transcriber.Calls() != 2 {
		t.Fatalf("expected two transcriptions, got %d", h.transcriber.Calls())
	}

	var burned bool
	for i := range h.exec.Commands() {
		if strings.Contains(h.exec.Joined(i), "subtitles=") {
			burned = true
		}
	}
	if !burned {
		t.Fatal("expected a burn-in command")
	}

	last := -1
	for i, pct := range progress.percents {
		if pct < last {
			t.Fatalf("progress went backwards at %d: %v", i, progress.percents)
		}
		last = pct
	}
	if progress.percents[0] != 5 || last != 100 {
		t.Fatalf("unexpected progress range %v", progress.percents)
	}
	if got := progress.messages[len(progress.messages)-1]; got != "Batch complete! All videos processed successfully." {
		t.Fatalf("unexpected final message %q", got)
	}

	runs, err := h.store.ListRuns(context.Background(), 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns: %v (%d runs)", err, len(runs))
	}
	if runs[0].Status != queue.StatusCompleted || runs[0].Processed != 2 {
		t.Fatalf("unexpected run record %+v", runs[0])
	}
	jobs, err := h.store.JobsForRun(context.Background(), runs[0].ID)
	if err != nil || len(jobs) != 2 {
		t.Fatalf("JobsForRun: %v (%d jobs)", err, len(jobs))
	}
	for _, job := range jobs {
		if job.Status != queue.StatusCompleted || job.OutputPath != h.output(job.Stem) {
			t.Fatalf("unexpected job record %+v", job)
		}
	}
	if len(h.notifier.started) != 1 || len(h.notifier.completed) != 2 || h.notifier.batches[0] != [3]int{2, 0, 0} {
		t.Fatalf("unexpected notifications %+v", h.notifier)
	}
}

func TestRunBatchContinuesAfterFailures(t *testing.T) {
	exec := &testsupport.FakeExecutor{
		Fail: func(cmd process.Command) error {
			if strings.Contains(strings.Join(cmd.Args, " "), "broken_captioned.mp4") {
				return testsupport.ExitFailure(cmd, "Invalid data found when processing input")
			}
			return nil
		},
	}
	h := newHarness(t, exec)
	videos := h.videos(t, "broken.mp4", "fine.mp4")
	videos = append([]string{filepath.Join(h.sourceDir, "missing.mp4")}, videos...)

	summary, err := h.manager.RunBatch(context.Background(), workflow.Request{Videos: videos}, nil)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.Success || summary.Processed != 1 || summary.Failed != 2 || summary.Cancelled != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.Errors) != 2 {
		t.Fatalf("expected two error entries, got %v", summary.Errors)
	}
	if !strings.HasPrefix(summary.Errors[0], "missing.mp4: ") || !strings.Contains(summary.Errors[0], "Video not found") {
		t.Fatalf("unexpected missing input entry %q", summary.Errors[0])
	}
	if !strings.HasPrefix(summary.Errors[1], "broken.mp4: ") || !strings.Contains(summary.Errors[1], "ffmpeg") {
		t.Fatalf("unexpected tool failure entry %q", summary.Errors[1])
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.WorkDir, "broken")); !os.IsNotExist(err) {
		t.Fatalf("expected failed job temp dir removed, got %v", err)
	}
	if _, err := os.Stat(h.output("fine")); err != nil {
		t.Fatalf("expected the later video to finish: %v", err)
	}

	failed, err := h.store.JobsByStatus(context.Background(), queue.StatusFailed)
	if err != nil || len(failed) != 2 {
		t.Fatalf("JobsByStatus: %v (%d failed)", err, len(failed))
	}

	h.notifier.mu.Lock()
	errs := append([]string(nil), h.notifier.errors...)
	h.notifier.mu.Unlock()
	if len(errs) != 2 || errs[0] != "missing.mp4" || !strings.HasPrefix(errs[1], "broken (") {
		t.Fatalf("expected one failure notification per failed video, got %v", errs)
	}
}

func TestRunBatchStopsBetweenVideos(t *testing.T) {
	h := newHarness(t, nil)
	videos := h.videos(t, "one.mp4", "two.mp4", "three.mp4")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progress := &progressLog{}
	summary, err := h.manager.RunBatch(ctx, workflow.Request{Videos: videos}, func(percent int, message string) {
		progress.record(percent, message)
		if strings.Contains(message, "one.mp4 complete") {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 0 || summary.Cancelled != 0 || summary.Success {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.Errors) != 1 || summary.Errors[0] != queue.UserStopReason {
		t.Fatalf("expected one stop message, got %v", summary.Errors)
	}
	if h.transcriber.Calls() != 1 {
		t.Fatalf("later videos must not start, transcriptions=%d", h.transcriber.Calls())
	}
	for _, stem := range []string{"two", "three"} {
		if _, err := os.Stat(h.output(stem)); !os.IsNotExist(err) {
			t.Fatalf("unexpected output for %s", stem)
		}
	}
	runs, err := h.store.ListRuns(context.Background(), 1)
	if err != nil || len(runs) != 1 || runs[0].Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled run record, got %+v (%v)", runs, err)
	}
	jobs, err := h.store.JobsForRun(context.Background(), runs[0].ID)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("expected only the first job recorded, got %d (%v)", len(jobs), err)
	}
}

func TestRunBatchCancelsInFlightVideo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec := &testsupport.FakeExecutor{
		Before: func(cmd process.Command) {
			if strings.Contains(strings.Join(cmd.Args, " "), "_captioned.mp4") {
				cancel()
			}
		},
	}
	h := newHarness(t, exec)
	videos := h.videos(t, "live.mp4", "next.mp4")

	summary, err := h.manager.RunBatch(ctx, workflow.Request{Videos: videos}, nil)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.Processed != 0 || summary.Failed != 0 || summary.Cancelled != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.Errors) != 1 || summary.Errors[0] != queue.UserStopReason {
		t.Fatalf("cancellation must not be reported as failure, got %v", summary.Errors)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.WorkDir, "live")); !os.IsNotExist(err) {
		t.Fatalf("expected cancelled job temp dir removed, got %v", err)
	}
	cancelled, err := h.store.JobsByStatus(context.Background(), queue.StatusCancelled)
	if err != nil || len(cancelled) != 1 || cancelled[0].ErrorMessage != queue.UserStopReason {
		t.Fatalf("expected one cancelled job record, got %+v (%v)", cancelled, err)
	}
}

func TestRunBatchWithoutCaptions(t *testing.T) {
	h := newHarness(t, nil)
	videos := h.videos(t, "plain.mp4")
	off := false

	summary, err := h.manager.RunBatch(context.Background(), workflow.Request{Videos: videos, Captions: &off}, nil)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if !summary.Success || summary.Processed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if h.transcriber.Calls() != 0 {
		t.Fatalf("captions disabled must not transcribe, calls=%d", h.transcriber.Calls())
	}
	for i := range h.exec.Commands() {
		if strings.Contains(h.exec.Joined(i), "subtitles=") {
			t.Fatalf("unexpected burn-in command %s", h.exec.Joined(i))
		}
	}
	if _, err := os.Stat(h.output("plain")); err != nil {
		t.Fatalf("expected deliverable: %v", err)
	}
	if !h.cfg.Captions.Enabled {
		t.Fatal("request overrides must not modify the loaded config")
	}
}

func TestRunBatchRejectsConcurrentBatch(t *testing.T) {
	h := newHarness(t, nil)
	lock := flock.New(filepath.Join(h.cfg.Paths.WorkDir, workflow.LockFileName))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: %v %v", locked, err)
	}
	defer lock.Unlock()

	_, err = h.manager.RunBatch(context.Background(), workflow.Request{Videos: h.videos(t, "a.mp4")}, nil)
	if !errors.Is(err, workflow.ErrBatchRunning) {
		t.Fatalf("expected ErrBatchRunning, got %v", err)
	}
	if h.transcriber.Calls() != 0 {
		t.Fatal("no video may start while another batch holds the lock")
	}
}

func TestRunBatchRejectsBadRequests(t *testing.T) {
	h := newHarness(t, nil)
	tests := []struct {
		name   string
		req    workflow.Request
		marker error
	}{
		{"no videos", workflow.Request{}, services.ErrValidation},
		{"bad platform", workflow.Request{Videos: []string{"/tmp/x.mp4"}, Platform: "myspace"}, services.ErrConfiguration},
		{"bad length mode", workflow.Request{Videos: []string{"/tmp/x.mp4"}, LengthMode: "paragraph"}, services.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var messages []string
			summary, err := h.manager.RunBatch(context.Background(), tt.req, func(_ int, msg string) {
				messages = append(messages, msg)
			})
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
			if summary.Success || len(summary.Errors) != 1 || len(messages) != 1 {
				t.Fatalf("unexpected summary %+v / progress %v", summary, messages)
			}
		})
	}
}
