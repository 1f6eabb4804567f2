package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"ledgercast/internal/broadcast"
	"ledgercast/internal/config"
	"ledgercast/internal/job"
	"ledgercast/internal/jobstore"
	"ledgercast/internal/logging"
	"ledgercast/internal/progress"
	"ledgercast/internal/worker"
)

// ShutdownReason is the error message set on running jobs when the daemon stops.
const ShutdownReason = "Daemon stopped"

// Daemon wires the store, broadcaster, worker manager, and API server.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobstore.Store
	hub      *broadcast.Hub
	reporter *progress.Reporter
	workers  *worker.Manager
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobstore.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	hub := broadcast.NewHub()
	reporter := progress.NewReporter(store, hub, logger)

	workers := worker.NewManager(cfg, store, reporter, logger)
	workers.Register(job.TypeReport, worker.NewReportSynthesizer(cfg))
	workers.Register(job.TypePodcast, worker.NewPodcastSynthesizer(cfg))

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		hub:      hub,
		reporter: reporter,
		workers:  workers,
		lockPath: filepath.Join(cfg.Paths.DataDir, "ledgercastd.lock"),
	}
	d.lock = flock.New(d.lockPath)
	d.api = newAPIServer(cfg, store, hub, logger)
	return d, nil
}

// Store exposes the job store for tests and CLI tooling.
func (d *Daemon) Store() *jobstore.Store { return d.store }

// Hub exposes the broadcaster for tests.
func (d *Daemon) Hub() *broadcast.Hub { return d.hub }

// APIAddr reports the bound API address once Start has succeeded.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Start acquires the instance lock and launches the worker manager and API
// server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another ledgercast daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.workers.Start(runCtx); err != nil {
		d.releaseLock()
		cancel()
		return fmt.Errorf("start workers: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.workers.Stop()
		d.releaseLock()
		cancel()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("ledgercast daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.addr()))
	return nil
}

// Stop halts the API server and workers and fails any job left running so
// clients never wait on work no worker owns.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.running.Store(false)

	d.api.stop()
	d.workers.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	swept, err := d.store.FailRunning(context.Background(), ShutdownReason)
	if err != nil {
		d.logger.Warn("sweep running jobs", logging.Error(err))
	} else if swept > 0 {
		d.logger.Info("failed running jobs on shutdown", logging.Int64("count", swept))
	}

	d.releaseLock()
	d.logger.Info("ledgercast daemon stopped")
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() {
	d.Stop()
	if err := d.store.Close(); err != nil {
		d.logger.Warn("close store", logging.Error(err))
	}
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release lock",
			logging.String("lock", d.lockPath),
			logging.Error(err))
	}
}
