package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a run or a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// UserStopReason is the message recorded when a user stops a batch.
const UserStopReason = "Pipeline stopped by user"

// InterruptedReason is recorded for rows a previous process left running.
const InterruptedReason = "Interrupted: process exited before the job finished"

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Run is one batch invocation.
type Run struct {
	ID         string
	Status     Status
	Total      int
	Processed  int
	Failed     int
	Cancelled  int
	Message    string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Duration reports how long the run took, or has taken so far.
func (r Run) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// Job is the persisted view of one video's build.
type Job struct {
	ID              string
	RunID           string
	Position        int
	VideoPath       string
	Stem            string
	Status          Status
	Stage           string
	ProgressPercent float64
	ProgressMessage string
	OutputPath      string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	FinishedAt      *time.Time
}

// SetProgress updates the stage and progress fields together.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.Stage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// Finish moves the job to a terminal status and stamps the finish time.
// A non-empty message is recorded as the error message.
func (j *Job) Finish(status Status, message string) {
	now := time.Now().UTC()
	j.Status = status
	j.FinishedAt = &now
	if message != "" {
		j.ErrorMessage = message
	}
	if status == StatusCompleted {
		j.ProgressPercent = 100
	}
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
	Cancelled int
}

// DatabaseHealth captures diagnostic information about the history database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}
