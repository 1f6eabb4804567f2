package worker

import (
	"context"
	"errors"

	"ledgercast/internal/jobstore"
	"ledgercast/internal/progress"
)

// ErrCancelled is returned by a synthesizer that stopped because cancellation
// was requested. The manager converts it into a cancelled record rather than
// a failure.
var ErrCancelled = errors.New("generation cancelled")

// Session is the reporting surface handed to a synthesizer for one job run.
type Session struct {
	jobID    string
	store    *jobstore.Store
	reporter *progress.Reporter
}

// JobID returns the identifier of the job being synthesized.
func (s *Session) JobID() string { return s.jobID }

// Status reports a progress step with a message and percentage.
func (s *Session) Status(ctx context.Context, message string, percent float64) error {
	if err := s.checkCancelled(ctx); err != nil {
		return err
	}
	return s.reporter.Status(ctx, s.jobID, message, percent)
}

// Milestone reports a named checkpoint.
func (s *Session) Milestone(ctx context.Context, message string) error {
	if err := s.checkCancelled(ctx); err != nil {
		return err
	}
	return s.reporter.Milestone(ctx, s.jobID, message)
}

// Partial relays a fragment of generated content to live subscribers.
func (s *Session) Partial(ctx context.Context, text string) error {
	if err := s.checkCancelled(ctx); err != nil {
		return err
	}
	s.reporter.Partial(ctx, s.jobID, text)
	return nil
}

// checkCancelled consults the record between reports so a cancellation
// request is honored at the next step boundary.
func (s *Session) checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := s.store.GetByID(ctx, s.jobID)
	if err != nil {
		return err
	}
	if rec.CancelRequested {
		return ErrCancelled
	}
	return nil
}
