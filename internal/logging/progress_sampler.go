package logging

import "strings"

// ProgressSampler thins ffmpeg progress logging down to one entry per
// percent step, plus one whenever the stage label changes. It is not
// safe for concurrent use; each ffmpeg invocation owns its sampler.
type ProgressSampler struct {
	step  int
	stage string
	next  int
}

// NewProgressSampler returns a sampler that logs every step percent.
// Steps outside 1..100 fall back to 5.
func NewProgressSampler(step int) *ProgressSampler {
	if step <= 0 || step > 100 {
		step = 5
	}
	return &ProgressSampler{step: step}
}

// Allow reports whether a progress update should be logged. A negative
// percent means the total is unknown; such updates only log on a stage
// change.
func (s *ProgressSampler) Allow(stage string, percent float64) bool {
	if s == nil {
		return true
	}
	changed := false
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.stage {
		s.stage = stage
		s.next = 0
		changed = true
	}
	if percent < 0 {
		return changed
	}
	p := min(int(percent), 100)
	if p < s.next {
		return changed
	}
	s.next = (p/s.step + 1) * s.step
	return true
}

// Reset forgets the current stage and step.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.stage = ""
	s.next = 0
}
