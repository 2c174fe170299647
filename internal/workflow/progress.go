package workflow

import (
	"fmt"
	"log/slog"
	"sync"

	"trueedits/internal/buildjob"
	"trueedits/internal/logging"
)

// Batch progress bands: 0-5 setup, 5-95 jobs, 95-100 summary.
const (
	progressJobsStart = 5
	progressJobsSpan  = 90
	progressSummary   = 95
	progressDone      = 100
)

// progressEmitter forwards progress to the caller's ProgressFunc. Delivery
// is best effort: a panicking callback is logged and ignored.
type progressEmitter struct {
	fn     ProgressFunc
	logger *slog.Logger

	mu          sync.Mutex
	lastPercent int
	lastMessage string
}

func newProgressEmitter(fn ProgressFunc, logger *slog.Logger) *progressEmitter {
	return &progressEmitter{fn: fn, logger: logger, lastPercent: -1}
}

func (e *progressEmitter) emit(percent int, message string) {
	if e == nil || e.fn == nil {
		return
	}
	percent = max(0, min(progressDone, percent))
	e.mu.Lock()
	if percent == e.lastPercent && message == e.lastMessage {
		e.mu.Unlock()
		return
	}
	e.lastPercent, e.lastMessage = percent, message
	e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logging.WarnWithContext(e.logger, "progress callback panicked", "progress_callback_failed",
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldImpact, "progress updates may be incomplete"),
			)
		}
	}()
	e.fn(percent, message)
}

// percent returns the last emitted percentage, or 0 before any emission.
func (e *progressEmitter) percent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return max(0, e.lastPercent)
}

// jobSlot locates one job inside the batch progress range.
type jobSlot struct {
	index  int
	total  int
	stages int
}

func (s jobSlot) label() string {
	return fmt.Sprintf("[%d/%d]", s.index+1, s.total)
}

func (s jobSlot) startPercent() int {
	return progressJobsStart + s.index*progressJobsSpan/s.total
}

func (s jobSlot) endPercent() int {
	return progressJobsStart + (s.index+1)*progressJobsSpan/s.total
}

// stagePercent maps a stage-local fraction onto the job's share of the
// batch range.
func (s jobSlot) stagePercent(stageIndex int, fraction float64) int {
	if s.stages <= 0 {
		return s.startPercent()
	}
	fraction = max(0, min(1, fraction))
	within := (float64(stageIndex) + fraction) / float64(s.stages)
	return progressJobsStart + int((float64(s.index)+within)*progressJobsSpan/float64(s.total))
}

// stageReporter turns job progress callbacks into batch progress, only
// emitting when the percentage or the state changes. Percentages never move
// backwards within a job.
type stageReporter struct {
	emitter *progressEmitter
	slot    jobSlot
	stage   int

	lastPercent int
	lastState   buildjob.State
}

func (r *stageReporter) report(state buildjob.State, fraction float64, message string) {
	percent := max(r.slot.stagePercent(r.stage, fraction), r.lastPercent)
	if percent == r.lastPercent && state == r.lastState {
		return
	}
	r.lastPercent, r.lastState = percent, state
	if message == "" {
		message = state.Label()
	}
	r.emitter.emit(percent, r.slot.label()+" "+message)
}
