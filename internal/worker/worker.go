package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledgercast/internal/config"
	"ledgercast/internal/job"
	"ledgercast/internal/jobstore"
	"ledgercast/internal/logging"
	"ledgercast/internal/progress"
)

// Synthesizer performs the generation work for one job type.
type Synthesizer interface {
	Synthesize(ctx context.Context, rec *job.Record, session *Session) error
}

// Manager claims pending jobs and runs them to a terminal state in the
// background. Progress continues whether or not any client is attached.
type Manager struct {
	cfg      *config.Config
	store    *jobstore.Store
	reporter *progress.Reporter
	logger   *slog.Logger

	synthesizers map[job.Type]Synthesizer

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a worker manager. Synthesizers are registered per
// job type before Start.
func NewManager(cfg *config.Config, store *jobstore.Store, reporter *progress.Reporter, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:          cfg,
		store:        store,
		reporter:     reporter,
		logger:       logging.NewComponentLogger(logger, "worker"),
		synthesizers: make(map[job.Type]Synthesizer),
	}
}

// Register wires a synthesizer for a job type.
func (m *Manager) Register(jobType job.Type, s Synthesizer) {
	m.synthesizers[jobType] = s
}

// Start launches the claim loop until the context is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("worker manager already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.claimLoop(runCtx)
	}()
	m.logger.Info("worker manager started")
	return nil
}

// Stop halts claiming and waits for in-flight runs to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("worker manager stopped")
}

func (m *Manager) claimLoop(ctx context.Context) {
	interval := time.Duration(m.cfg.Worker.ClaimInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		rec, err := m.store.ClaimNextPending(ctx)
		if err != nil {
			if ctx.Err() == nil {
				m.logger.Warn("claim pending job", logging.Error(err))
			}
			continue
		}
		if rec == nil {
			continue
		}

		m.wg.Add(1)
		go func(rec *job.Record) {
			defer m.wg.Done()
			m.run(ctx, rec)
		}(rec)
	}
}

func (m *Manager) run(ctx context.Context, rec *job.Record) {
	logger := m.logger.With(
		logging.String(logging.FieldJobID, rec.ID),
		logging.String(logging.FieldTarget, rec.TargetID),
		logging.String(logging.FieldJobType, string(rec.Type)),
	)

	defer func() {
		if panicked := recover(); panicked != nil {
			message := fmt.Sprintf("generation worker crashed: %v", panicked)
			logger.Error("synthesizer panic", logging.String("panic", fmt.Sprint(panicked)))
			if err := m.reporter.Fail(context.WithoutCancel(ctx), rec.ID, message); err != nil {
				logger.Error("record panic failure", logging.Error(err))
			}
		}
	}()

	synth, ok := m.synthesizers[rec.Type]
	if !ok {
		_ = m.reporter.Fail(ctx, rec.ID, fmt.Sprintf("no synthesizer registered for job type %q", rec.Type))
		return
	}

	logger.Info("job started", logging.String(logging.FieldEventType, "job_started"))
	session := &Session{jobID: rec.ID, store: m.store, reporter: m.reporter}

	err := synth.Synthesize(ctx, rec, session)
	switch {
	case err == nil:
		if reportErr := m.reporter.Complete(ctx, rec.ID, completionMessage(rec.Type)); reportErr != nil {
			logger.Error("record completion", logging.Error(reportErr))
		}
	case errors.Is(err, ErrCancelled):
		if reportErr := m.reporter.Cancelled(ctx, rec.ID, "Generation cancelled"); reportErr != nil {
			logger.Error("record cancellation", logging.Error(reportErr))
		}
	case errors.Is(err, context.Canceled):
		// Daemon shutdown; the store sweep marks the record failed.
		logger.Info("job interrupted by shutdown")
	default:
		if reportErr := m.reporter.Fail(ctx, rec.ID, err.Error()); reportErr != nil {
			logger.Error("record failure", logging.Error(reportErr))
		}
	}
}

func completionMessage(jobType job.Type) string {
	switch jobType {
	case job.TypePodcast:
		return "Podcast ready"
	default:
		return "Report ready"
	}
}
