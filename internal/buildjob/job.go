package buildjob

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"trueedits/internal/logging"
	"trueedits/internal/media/ffprobe"
)

// Stem-qualified artifact suffixes inside the job temp directory.
const (
	SuffixSpeechWAV   = "_speech16k.wav"
	SuffixSubtitles   = ".ass"
	SuffixCaptioned   = "_captioned.mp4"
	SuffixEndCard     = "_endcard.mp4"
	SuffixWithEndCard = "_with_endcard.mp4"
	SuffixVoiceWAV    = "_voice48k.wav"
	SuffixVoiceNorm   = "_voice_norm.wav"
	SuffixMixed       = "_mixed.mp4"
)

// ProgressFunc receives stage-local progress in [0,1].
type ProgressFunc func(state State, fraction float64, message string)

// Media caches what was probed about the source video.
type Media struct {
	Video    ffprobe.VideoInfo
	HasAudio bool
	Duration float64
}

// Job is one video's trip through the pipeline.
type Job struct {
	ID        string
	VideoPath string
	Stem      string
	TempDir   string

	// Current is the newest video artifact; the next stage reads it.
	Current string
	// Subtitles is the .ass file burned into the video, cached or generated.
	Subtitles string
	// Language is the transcript language, used for end card selection.
	Language string
	// Voice is the audio source the mix stage uses instead of the video's
	// own track. Empty means the raw voice from the video.
	Voice string
	// Output is the final deliverable path once finalized.
	Output string
	Media  Media

	State  State
	Stages map[string]StageStatus

	OnProgress ProgressFunc

	mu          sync.Mutex
	cleanupOnce sync.Once
	cleanupErr  error
	cleaned     bool
}

// New creates a pending job for videoPath with its temp directory at
// <workDir>/<stem>. The directory is not created until EnsureTempDir.
func New(id, videoPath, workDir string) (*Job, error) {
	videoPath = strings.TrimSpace(videoPath)
	if videoPath == "" {
		return nil, errors.New("video path is required")
	}
	if strings.TrimSpace(workDir) == "" {
		return nil, errors.New("work directory is required")
	}
	stem := Stem(videoPath)
	if stem == "" {
		return nil, fmt.Errorf("cannot derive a name from %q", videoPath)
	}
	return &Job{
		ID:        id,
		VideoPath: videoPath,
		Stem:      stem,
		TempDir:   filepath.Join(workDir, stem),
		Current:   videoPath,
		State:     StatePending,
		Stages:    make(map[string]StageStatus),
	}, nil
}

// Stem returns the file's base name without its extension.
func Stem(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Path returns a stem-qualified path inside the temp directory.
func (j *Job) Path(suffix string) string {
	return filepath.Join(j.TempDir, j.Stem+suffix)
}

// EnsureTempDir creates the job temp directory.
func (j *Job) EnsureTempDir() error {
	if err := os.MkdirAll(j.TempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	return nil
}

// SetState moves the job to state.
func (j *Job) SetState(state State) {
	j.mu.Lock()
	j.State = state
	j.mu.Unlock()
}

// CurrentState returns the job's state.
func (j *Job) CurrentState() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.State
}

// MarkStage records the outcome of a named stage.
func (j *Job) MarkStage(name string, status StageStatus) {
	j.mu.Lock()
	j.Stages[name] = status
	j.mu.Unlock()
}

// StageResult returns the recorded status for a stage, if any.
func (j *Job) StageResult(name string) (StageStatus, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	status, ok := j.Stages[name]
	return status, ok
}

// Advance makes path the current artifact.
func (j *Job) Advance(path string) {
	j.Current = path
}

// Report forwards stage progress to OnProgress when set. Fractions are
// clamped to [0,1].
func (j *Job) Report(fraction float64, message string) {
	if j.OnProgress == nil {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	j.OnProgress(j.CurrentState(), fraction, message)
}

// CleanupOptions controls temp directory removal.
type CleanupOptions struct {
	// Retries is the number of extra attempts after the first failure.
	Retries int
	Delay   time.Duration
	// Keep leaves the temp directory in place for debugging.
	Keep   bool
	Logger *slog.Logger
}

// Cleanup removes the temp directory. Only the first call does any work;
// later calls return the first call's result. Removal failures are retried
// and then logged; the returned error is informational and callers
// continue regardless.
func (j *Job) Cleanup(opts CleanupOptions) error {
	j.cleanupOnce.Do(func() {
		j.cleanupErr = j.removeTemp(opts)
		j.mu.Lock()
		j.cleaned = true
		j.mu.Unlock()
	})
	return j.cleanupErr
}

// CleanedUp reports whether Cleanup has run.
func (j *Job) CleanedUp() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cleaned
}

func (j *Job) removeTemp(opts CleanupOptions) error {
	logger := logging.NewComponentLogger(opts.Logger, "cleanup")
	if opts.Keep {
		logger.Info("keeping temp directory",
			logging.String(logging.FieldEventType, "temp_kept"),
			logging.String("temp_dir", j.TempDir),
		)
		return nil
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}
	var err error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if err = os.RemoveAll(j.TempDir); err == nil {
			logger.Debug("temp directory removed",
				logging.String(logging.FieldEventType, "temp_removed"),
				logging.String("temp_dir", j.TempDir),
				logging.Int("attempts", attempt+1),
			)
			return nil
		}
		if attempt < opts.Retries {
			time.Sleep(delay)
		}
	}
	logger.Warn("temp directory cleanup failed; leaving files behind",
		logging.String(logging.FieldEventType, "temp_cleanup_failed"),
		logging.String("temp_dir", j.TempDir),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "remove the directory manually once no process holds it"),
		logging.String(logging.FieldImpact, "disk space is not reclaimed"),
	)
	return fmt.Errorf("remove %s: %w", j.TempDir, err)
}
