package api

import (
	"time"

	"ledgercast/internal/job"
)

// JobRecord is the wire form of a job record snapshot.
type JobRecord struct {
	ID              string    `json:"id"`
	TargetID        string    `json:"target_id"`
	JobType         string    `json:"job_type"`
	Status          string    `json:"status"`
	Progress        float64   `json:"progress"`
	Message         string    `json:"message,omitempty"`
	Error           string    `json:"error,omitempty"`
	CancelRequested bool      `json:"cancel_requested,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StatusResponse is returned by the status endpoint.
type StatusResponse struct {
	HasJob bool       `json:"has_job"`
	Job    *JobRecord `json:"job,omitempty"`
}

// StartResponse is returned by the start endpoint. Created distinguishes a
// freshly created job from an existing non-terminal one being reused.
type StartResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Created bool   `json:"created"`
}

// CancelResponse is returned by the cancel endpoint. Cancellation is a
// request; the record reflects cancelled only once the worker stops.
type CancelResponse struct {
	JobID           string `json:"job_id"`
	Status          string `json:"status"`
	CancelRequested bool   `json:"cancel_requested"`
}

// ListResponse is returned by the jobs listing endpoint.
type ListResponse struct {
	Jobs []JobRecord `json:"jobs"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StreamEvent is the SSE data payload for one progress event.
type StreamEvent struct {
	JobID     string    `json:"job_id,omitempty"`
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message,omitempty"`
	Progress  float64   `json:"progress,omitempty"`
	Text      string    `json:"text,omitempty"`
}

// FromRecord converts a store record into its wire form.
func FromRecord(rec *job.Record) JobRecord {
	return JobRecord{
		ID:              rec.ID,
		TargetID:        rec.TargetID,
		JobType:         string(rec.Type),
		Status:          string(rec.Status),
		Progress:        rec.Progress,
		Message:         rec.Message,
		Error:           rec.ErrorMessage,
		CancelRequested: rec.CancelRequested,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

// ToRecord converts a wire snapshot back into the shared model.
func (j JobRecord) ToRecord() *job.Record {
	return &job.Record{
		ID:              j.ID,
		TargetID:        j.TargetID,
		Type:            job.Type(j.JobType),
		Status:          job.Status(j.Status),
		Progress:        j.Progress,
		Message:         j.Message,
		ErrorMessage:    j.Error,
		CancelRequested: j.CancelRequested,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
}

// FromEvent converts a progress event into its wire form.
func FromEvent(evt job.Event) StreamEvent {
	return StreamEvent{
		JobID:     evt.JobID,
		Timestamp: evt.Timestamp,
		Kind:      string(evt.Kind),
		Message:   evt.Message,
		Progress:  evt.Progress,
		Text:      evt.Text,
	}
}

// ToEvent converts a wire event back into the shared model.
func (e StreamEvent) ToEvent() job.Event {
	kind, _ := job.ParseEventKind(e.Kind)
	return job.Event{
		JobID:     e.JobID,
		Timestamp: e.Timestamp,
		Kind:      kind,
		Message:   e.Message,
		Progress:  e.Progress,
		Text:      e.Text,
	}
}
