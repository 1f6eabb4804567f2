package progress

import (
	"context"
	"log/slog"

	"ledgercast/internal/broadcast"
	"ledgercast/internal/job"
	"ledgercast/internal/jobstore"
	"ledgercast/internal/logging"
)

// Reporter records job progress in the store and relays it to subscribers.
type Reporter struct {
	store  *jobstore.Store
	hub    *broadcast.Hub
	logger *slog.Logger
}

// NewReporter constructs a reporter over the given store and broadcaster.
func NewReporter(store *jobstore.Store, hub *broadcast.Hub, logger *slog.Logger) *Reporter {
	return &Reporter{
		store:  store,
		hub:    hub,
		logger: logging.NewComponentLogger(logger, "progress"),
	}
}

// Status reports a progress step: message and percentage.
func (r *Reporter) Status(ctx context.Context, jobID, message string, percent float64) error {
	updated, err := r.store.Update(ctx, jobID, jobstore.Mutation{
		Message:  &message,
		Progress: &percent,
	})
	if err != nil {
		return err
	}
	r.hub.Publish(job.Event{
		JobID:     jobID,
		Timestamp: updated.UpdatedAt,
		Kind:      job.EventStatus,
		Message:   updated.Message,
		Progress:  updated.Progress,
	})
	return nil
}

// Milestone reports a named checkpoint without changing the percentage.
func (r *Reporter) Milestone(ctx context.Context, jobID, message string) error {
	updated, err := r.store.Update(ctx, jobID, jobstore.Mutation{Message: &message})
	if err != nil {
		return err
	}
	r.hub.Publish(job.Event{
		JobID:     jobID,
		Timestamp: updated.UpdatedAt,
		Kind:      job.EventMilestone,
		Message:   updated.Message,
		Progress:  updated.Progress,
	})
	return nil
}

// Partial relays a fragment of generated content to live subscribers. The
// record digest is untouched; pollers pick the fragment up only if a later
// status report mentions it.
func (r *Reporter) Partial(_ context.Context, jobID, text string) {
	r.hub.Publish(job.Event{
		JobID: jobID,
		Kind:  job.EventPartial,
		Text:  text,
	})
}

// Complete drives the record to completed and emits the terminal event.
func (r *Reporter) Complete(ctx context.Context, jobID, message string) error {
	status := job.StatusCompleted
	updated, err := r.store.Update(ctx, jobID, jobstore.Mutation{
		Status:  &status,
		Message: &message,
	})
	if err != nil {
		return err
	}
	r.hub.Publish(job.Event{
		JobID:     jobID,
		Timestamp: updated.UpdatedAt,
		Kind:      job.EventComplete,
		Message:   updated.Message,
		Progress:  updated.Progress,
	})
	r.logger.Info("job completed",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldEventType, "job_completed"))
	return nil
}

// Fail drives the record to failed and emits the terminal error event.
func (r *Reporter) Fail(ctx context.Context, jobID, message string) error {
	status := job.StatusFailed
	updated, err := r.store.Update(ctx, jobID, jobstore.Mutation{
		Status:       &status,
		Message:      &message,
		ErrorMessage: &message,
	})
	if err != nil {
		return err
	}
	r.hub.Publish(job.Event{
		JobID:     jobID,
		Timestamp: updated.UpdatedAt,
		Kind:      job.EventError,
		Message:   updated.Message,
	})
	r.logger.Warn("job failed",
		logging.String(logging.FieldJobID, jobID),
		logging.String("reason", message),
		logging.String(logging.FieldEventType, "job_failed"))
	return nil
}

// Cancelled drives the record to cancelled and emits the terminal error
// event carrying the cancellation message.
func (r *Reporter) Cancelled(ctx context.Context, jobID, message string) error {
	status := job.StatusCancelled
	updated, err := r.store.Update(ctx, jobID, jobstore.Mutation{
		Status:  &status,
		Message: &message,
	})
	if err != nil {
		return err
	}
	r.hub.Publish(job.Event{
		JobID:     jobID,
		Timestamp: updated.UpdatedAt,
		Kind:      job.EventError,
		Message:   updated.Message,
	})
	r.logger.Info("job cancelled",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldEventType, "job_cancelled"))
	return nil
}
