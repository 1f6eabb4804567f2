package job

import (
	"strings"
	"time"
)

// Type identifies the kind of generation work a job performs.
type Type string

const (
	TypeReport  Type = "report"
	TypePodcast Type = "podcast"
)

var allTypes = []Type{TypeReport, TypePodcast}

// Status represents the lifecycle of a job record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

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

var terminalStatuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// Record is the canonical mutable state of one job.
type Record struct {
	ID              string
	TargetID        string
	Type            Type
	Status          Status
	Progress        float64
	Message         string
	ErrorMessage    string
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

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

// ParseType converts a string into a known job Type.
func ParseType(value string) (Type, bool) {
	normalized := Type(strings.ToLower(strings.TrimSpace(value)))
	for _, t := range allTypes {
		if normalized == t {
			return t, true
		}
	}
	return "", false
}

// IsTerminal reports whether a status permits no further transitions.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// IsTerminal reports whether the record has reached its final state.
func (r *Record) IsTerminal() bool {
	return r != nil && r.Status.IsTerminal()
}

// CanTransition reports whether moving from one status to another preserves
// lifecycle monotonicity. Self-transitions are allowed for non-terminal
// statuses so progress-only updates stay valid.
func CanTransition(from, to Status) bool {
	if _, known := statusSet[to]; !known {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusPending || to == StatusRunning || to.IsTerminal()
	case StatusRunning:
		return to == StatusRunning || to.IsTerminal()
	default:
		return false
	}
}

// SetProgress updates the progress fields together. Progress is clamped to
// [0, 100] and never decreases while the job is running.
func (r *Record) SetProgress(message string, percent float64) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if r.Status == StatusRunning && percent < r.Progress {
		percent = r.Progress
	}
	r.Progress = percent
	r.Message = message
}

// SetFailed marks the record as failed with the given error message.
func (r *Record) SetFailed(message string) {
	r.Status = StatusFailed
	r.ErrorMessage = message
	r.Message = message
}

// SetCompleted marks the record as completed and pins progress to 100.
func (r *Record) SetCompleted(message string) {
	r.Status = StatusCompleted
	r.Progress = 100
	if message != "" {
		r.Message = message
	}
}
