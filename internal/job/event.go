package job

import (
	"strings"
	"time"
)

// EventKind classifies a progress event on the wire.
type EventKind string

const (
	EventStatus    EventKind = "status"
	EventMilestone EventKind = "milestone"
	EventPartial   EventKind = "partial-content"
	EventComplete  EventKind = "complete"
	EventError     EventKind = "error"

	// EventNoJob is the terminal "nothing to stream" indicator sent when a
	// stream is opened for a target with no current job.
	EventNoJob EventKind = "no-job"
)

var eventKindSet = map[EventKind]struct{}{
	EventStatus:    {},
	EventMilestone: {},
	EventPartial:   {},
	EventComplete:  {},
	EventError:     {},
	EventNoJob:     {},
}

// Event is one progress event emitted by the worker for a job.
type Event struct {
	JobID     string    `json:"job_id"`
	Timestamp time.Time `json:"ts"`
	Kind      EventKind `json:"kind"`
	Message   string    `json:"message,omitempty"`
	Progress  float64   `json:"progress,omitempty"`
	Text      string    `json:"text,omitempty"`
}

// ParseEventKind converts a string into a known EventKind.
func ParseEventKind(value string) (EventKind, bool) {
	normalized := EventKind(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := eventKindSet[normalized]
	return normalized, ok
}

// Terminal reports whether the event ends the stream for its job.
func (k EventKind) Terminal() bool {
	switch k {
	case EventComplete, EventError, EventNoJob:
		return true
	default:
		return false
	}
}
