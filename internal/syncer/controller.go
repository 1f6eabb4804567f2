package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledgercast/internal/api"
	"ledgercast/internal/config"
	"ledgercast/internal/job"
	"ledgercast/internal/logging"
)

// ErrBusy is returned when a follow or resume is requested while the
// controller is already tracking a job.
var ErrBusy = errors.New("controller already tracking a job")

// Options tunes the controller's fallback behavior.
type Options struct {
	// PollInterval is the steady polling cadence.
	PollInterval time.Duration
	// PollFailureThreshold is the consecutive failed polls after which the
	// view is reported as stale.
	PollFailureThreshold int
	// PollBackoffMax caps the growing delay between failed polls.
	PollBackoffMax time.Duration
	// LogSink, when set, receives each accepted log entry as it lands.
	LogSink func(Entry)
}

// OptionsFromConfig maps the sync section of the configuration onto options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PollInterval:         time.Duration(cfg.Sync.PollInterval) * time.Second,
		PollFailureThreshold: cfg.Sync.PollFailureThreshold,
		PollBackoffMax:       time.Duration(cfg.Sync.PollBackoffMax) * time.Second,
	}
}

func (o *Options) normalize() {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.PollFailureThreshold <= 0 {
		o.PollFailureThreshold = 3
	}
	if o.PollBackoffMax < o.PollInterval {
		o.PollBackoffMax = 30 * time.Second
	}
}

// Snapshot is a point-in-time copy of the controller's reconciled view.
type Snapshot struct {
	State     State
	JobID     string
	Status    job.Status
	Progress  float64
	Message   string
	Error     string
	UpdatedAt time.Time
}

// Controller follows one (target, type) pair's job through the stream and
// polling channels and reconciles both into a single view.
type Controller struct {
	target    string
	jobType   job.Type
	transport Transport
	logger    *slog.Logger
	opts      Options

	mu    sync.Mutex
	state State
	view  Snapshot
	log   *Log

	cancel context.CancelFunc
	done   chan struct{}
}

// NewController builds an idle controller for the pair.
func NewController(transport Transport, target string, jobType job.Type, logger *slog.Logger, opts Options) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	opts.normalize()

	closed := make(chan struct{})
	close(closed)
	return &Controller{
		target:    target,
		jobType:   jobType,
		transport: transport,
		logger: logging.NewComponentLogger(logger, "syncer").With(
			logging.String(logging.FieldTarget, target),
			logging.String(logging.FieldJobType, string(jobType))),
		opts:  opts,
		state: StateIdle,
		log:   NewLog(opts.LogSink),
		done:  closed,
	}
}

// Target returns the pair this controller follows.
func (c *Controller) Target() (string, job.Type) { return c.target, c.jobType }

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the reconciled view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.view
	snap.State = c.state
	return snap
}

// Entries returns the accumulated log lines in arrival order.
func (c *Controller) Entries() []Entry {
	c.mu.Lock()
	log := c.log
	c.mu.Unlock()
	return log.Entries()
}

// Done reports when the current tracking run has ended. It returns a closed
// channel while the controller is idle or terminal.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Close tears down any in-flight stream or poll timer and waits for the run
// goroutine to exit.
func (c *Controller) Close() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-done
}

// Follow starts a new job for the pair and tracks it to completion. The
// stream is tried first; any stream failure downgrades to polling for the
// rest of the job. ctx bounds only the start request; tracking runs on the
// controller's own context until the job ends or Close is called.
func (c *Controller) Follow(ctx context.Context, force bool) error {
	c.mu.Lock()
	if c.state.Active() {
		c.mu.Unlock()
		return ErrBusy
	}
	c.mu.Unlock()

	resp, err := c.transport.Start(ctx, c.target, c.jobType, force)
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}

	c.mu.Lock()
	c.resetLocked()
	c.view.JobID = resp.JobID
	if status, ok := job.ParseStatus(resp.Status); ok {
		c.view.Status = status
	}
	c.state = StateStarting
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	c.logger.Info("tracking job",
		logging.String(logging.FieldJobID, resp.JobID),
		logging.Bool("created", resp.Created))

	go func() {
		defer close(done)
		c.run(runCtx, true)
	}()
	return nil
}

// Resume picks up tracking after a restart. One status call decides: no job
// or a terminal job resolves immediately, and a job still in flight is
// followed by polling alone. The stream is never reopened on resume.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Active() {
		c.mu.Unlock()
		return ErrBusy
	}
	c.mu.Unlock()

	resp, err := c.transport.Status(ctx, c.target, c.jobType)
	if err != nil {
		return fmt.Errorf("resume status: %w", err)
	}

	c.mu.Lock()
	c.resetLocked()
	if !resp.HasJob {
		c.state = StateIdle
		c.mu.Unlock()
		return nil
	}

	rec := resp.Job
	c.adoptRecordLocked(rec)
	if status := job.Status(rec.Status); status.IsTerminal() {
		c.state = terminalStateFor(status)
		c.log.Append(Entry{Timestamp: rec.UpdatedAt, Message: rec.Message, Level: "info"})
		c.mu.Unlock()
		return nil
	}

	c.state = StatePolling
	c.log.Append(Entry{
		Timestamp: time.Now().UTC(),
		Message:   fmt.Sprintf("Resuming: %s", rec.Message),
		Level:     "info",
	})
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	c.logger.Info("resumed tracking job", logging.String(logging.FieldJobID, rec.ID))

	go func() {
		defer close(done)
		c.run(runCtx, false)
	}()
	return nil
}

// Cancel asks the daemon to stop the pair's job. The view keeps reflecting
// the record; the cancelled outcome arrives over whichever channel is active.
func (c *Controller) Cancel(ctx context.Context) error {
	resp, err := c.transport.Cancel(ctx, c.target, c.jobType)
	if err != nil {
		return err
	}

	c.mu.Lock()
	log := c.log
	c.mu.Unlock()
	log.Append(Entry{
		Timestamp: time.Now().UTC(),
		Message:   "Cancellation requested",
		Level:     "info",
	})
	c.logger.Info("cancellation requested", logging.String(logging.FieldJobID, resp.JobID))
	return nil
}

func (c *Controller) resetLocked() {
	c.view = Snapshot{}
	c.log = NewLog(c.opts.LogSink)
	c.cancel = nil
}

func (c *Controller) adoptRecordLocked(rec *api.JobRecord) {
	c.view.JobID = rec.ID
	c.view.Status = job.Status(rec.Status)
	c.view.Progress = rec.Progress
	c.view.Message = rec.Message
	c.view.Error = rec.Error
	c.view.UpdatedAt = rec.UpdatedAt
}

func (c *Controller) setState(next State) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()

	if prev != next {
		c.logger.Debug("state transition",
			logging.String("from", string(prev)),
			logging.String("to", string(next)))
	}
}

type streamOutcome int

const (
	streamFinished streamOutcome = iota
	streamDropped
	streamTornDown
)

func (c *Controller) run(ctx context.Context, streamFirst bool) {
	if streamFirst {
		switch c.runStream(ctx) {
		case streamFinished, streamTornDown:
			return
		case streamDropped:
			c.noteFallback()
		}
		c.setState(StatePolling)
		c.pollLoop(ctx, 0)
		return
	}
	c.pollLoop(ctx, c.opts.PollInterval)
}

func (c *Controller) runStream(ctx context.Context) streamOutcome {
	stream, err := c.transport.OpenStream(ctx, c.target, c.jobType)
	if err != nil {
		if ctx.Err() != nil {
			return streamTornDown
		}
		c.logger.Warn("stream unavailable", logging.Error(err))
		return streamDropped
	}
	defer stream.Close()

	c.setState(StateStreaming)

	for {
		select {
		case <-ctx.Done():
			return streamTornDown
		case evt, open := <-stream.Events():
			if !open {
				if err := stream.Err(); err != nil {
					c.logger.Warn("stream dropped", logging.Error(err))
				}
				// A clean close without a terminal event still needs the
				// poller to confirm the outcome.
				return streamDropped
			}
			if c.applyEvent(ctx, evt) {
				return streamFinished
			}
		}
	}
}

// applyEvent folds one stream event into the view. It returns true once the
// job has reached a terminal state.
func (c *Controller) applyEvent(ctx context.Context, evt job.Event) bool {
	c.mu.Lock()

	switch evt.Kind {
	case job.EventNoJob:
		c.state = StateIdle
		c.mu.Unlock()
		return true

	case job.EventPartial:
		log := c.log
		c.mu.Unlock()
		log.Append(Entry{Timestamp: evt.Timestamp, Message: evt.Text, Level: "info"})
		return false

	case job.EventComplete:
		c.view.Status = job.StatusCompleted
		c.view.Progress = 100
		if evt.Message != "" {
			c.view.Message = evt.Message
		}
		c.view.UpdatedAt = evt.Timestamp
		c.state = StateCompleted
		jobID := c.view.JobID
		log := c.log
		c.mu.Unlock()
		log.Append(Entry{Timestamp: evt.Timestamp, Message: evt.Message, Level: "info"})
		c.logger.Info("job completed", logging.String(logging.FieldJobID, jobID))
		return true

	case job.EventError:
		c.view.Error = evt.Message
		c.view.Message = evt.Message
		c.view.UpdatedAt = evt.Timestamp
		log := c.log
		c.mu.Unlock()
		log.Append(Entry{Timestamp: evt.Timestamp, Message: evt.Message, Level: "error"})
		c.confirmTerminal(ctx)
		return true

	default: // status, milestone
		if evt.Timestamp.Before(c.view.UpdatedAt) {
			c.mu.Unlock()
			return false
		}
		if evt.Progress > c.view.Progress {
			c.view.Progress = evt.Progress
		}
		if evt.Message != "" {
			c.view.Message = evt.Message
		}
		if c.view.Status == job.StatusPending || c.view.Status == "" {
			c.view.Status = job.StatusRunning
		}
		c.view.UpdatedAt = evt.Timestamp
		log := c.log
		c.mu.Unlock()
		log.Append(Entry{Timestamp: evt.Timestamp, Message: evt.Message, Level: "info"})
		return false
	}
}

// confirmTerminal resolves an error event into failed or cancelled by asking
// for the final record. Without an answer the job is treated as failed.
func (c *Controller) confirmTerminal(ctx context.Context) {
	final := job.StatusFailed

	confirmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if resp, err := c.transport.Status(confirmCtx, c.target, c.jobType); err == nil && resp.HasJob {
		if status := job.Status(resp.Job.Status); status.IsTerminal() {
			final = status
		}
	}

	c.mu.Lock()
	c.view.Status = final
	c.state = terminalStateFor(final)
	c.mu.Unlock()
}

func (c *Controller) noteFallback() {
	c.mu.Lock()
	log := c.log
	c.mu.Unlock()
	log.Append(Entry{
		Timestamp: time.Now().UTC(),
		Message:   "Live updates unavailable, checking status periodically",
		Level:     "warn",
	})
}

func (c *Controller) pollLoop(ctx context.Context, initialDelay time.Duration) {
	failures := 0
	wait := c.opts.PollInterval

	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		resp, err := c.transport.Status(ctx, c.target, c.jobType)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			wait *= 2
			if wait > c.opts.PollBackoffMax {
				wait = c.opts.PollBackoffMax
			}
			c.logger.Warn("poll failed",
				logging.Int("consecutive", failures),
				logging.Error(err))
			if failures >= c.opts.PollFailureThreshold && c.State() != StateStale {
				c.setState(StateStale)
				c.mu.Lock()
				log := c.log
				c.mu.Unlock()
				log.Append(Entry{
					Timestamp: time.Now().UTC(),
					Message:   "Lost contact with daemon, status may be out of date",
					Level:     "warn",
				})
			}
			timer.Reset(wait)
			continue
		}

		failures = 0
		wait = c.opts.PollInterval
		if c.State() == StateStale {
			c.setState(StatePolling)
		}

		if c.applySnapshot(resp) {
			return
		}
		timer.Reset(wait)
	}
}

// applySnapshot folds one poll result into the view. Snapshots older than
// what the view already reflects are discarded. It returns true once the job
// has reached a terminal state.
func (c *Controller) applySnapshot(resp api.StatusResponse) bool {
	c.mu.Lock()

	if !resp.HasJob {
		// The record vanished out from under us, which only happens if the
		// daemon's state was wiped. Stop tracking rather than poll forever.
		c.state = StateIdle
		log := c.log
		c.mu.Unlock()
		log.Append(Entry{
			Timestamp: time.Now().UTC(),
			Message:   "Job no longer present on daemon",
			Level:     "warn",
		})
		return true
	}

	rec := resp.Job
	if rec.ID == c.view.JobID && rec.UpdatedAt.Before(c.view.UpdatedAt) {
		c.mu.Unlock()
		return false
	}

	c.adoptRecordLocked(rec)
	status := job.Status(rec.Status)
	if status.IsTerminal() {
		c.state = terminalStateFor(status)
	}
	log := c.log
	c.mu.Unlock()

	level := "info"
	message := rec.Message
	if status == job.StatusFailed {
		level = "error"
		if rec.Error != "" {
			message = rec.Error
		}
	}
	log.Append(Entry{Timestamp: rec.UpdatedAt, Message: message, Level: level})

	return status.IsTerminal()
}

func terminalStateFor(status job.Status) State {
	switch status {
	case job.StatusCompleted:
		return StateCompleted
	case job.StatusCancelled:
		return StateCancelled
	default:
		return StateFailed
	}
}
