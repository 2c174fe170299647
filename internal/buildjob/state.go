package buildjob

import "strings"

// State is a job's position in the pipeline.
type State string

const (
	StatePending            State = "pending"
	StateCaptionsGenerating State = "captions_generating"
	StateCaptionsBurning    State = "captions_burning"
	StateEndCardAppending   State = "end_card_appending"
	StateVoiceIsolating     State = "voice_isolating"
	StateNormalizing        State = "normalizing"
	StateDuckingMixing      State = "ducking_mixing"
	StateFinalizing         State = "finalizing"
	StateComplete           State = "complete"
	StateCancelled          State = "cancelled"
	StateFailed             State = "failed"
)

// Terminal reports whether the job has stopped moving.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateCancelled || s == StateFailed
}

// Label renders the state for progress messages, e.g. "Captions burning".
func (s State) Label() string {
	text := strings.ReplaceAll(string(s), "_", " ")
	if text == "" {
		return ""
	}
	return strings.ToUpper(text[:1]) + text[1:]
}

// StageStatus records what happened to one stage of a job.
type StageStatus string

const (
	StageRunning   StageStatus = "running"
	StageDone      StageStatus = "done"
	StageSkipped   StageStatus = "skipped"
	StageFailed    StageStatus = "failed"
	StageCancelled StageStatus = "cancelled"
)
