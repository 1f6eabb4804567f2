package syncer

import (
	"log/slog"
	"sync"

	"ledgercast/internal/job"
)

type pairKey struct {
	target  string
	jobType job.Type
}

// Registry hands out one controller per (target, type) pair so concurrent
// jobs for different targets stay isolated.
type Registry struct {
	transport Transport
	logger    *slog.Logger
	opts      Options

	mu          sync.Mutex
	controllers map[pairKey]*Controller
}

// NewRegistry builds a registry whose controllers share a transport and
// options.
func NewRegistry(transport Transport, logger *slog.Logger, opts Options) *Registry {
	return &Registry{
		transport:   transport,
		logger:      logger,
		opts:        opts,
		controllers: make(map[pairKey]*Controller),
	}
}

// Controller returns the pair's controller, creating it on first use.
func (r *Registry) Controller(target string, jobType job.Type) *Controller {
	key := pairKey{target: target, jobType: jobType}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ctrl, ok := r.controllers[key]; ok {
		return ctrl
	}
	ctrl := NewController(r.transport, target, jobType, r.logger, r.opts)
	r.controllers[key] = ctrl
	return ctrl
}

// Release tears down and forgets the pair's controller, if any.
func (r *Registry) Release(target string, jobType job.Type) {
	key := pairKey{target: target, jobType: jobType}

	r.mu.Lock()
	ctrl, ok := r.controllers[key]
	delete(r.controllers, key)
	r.mu.Unlock()

	if ok {
		ctrl.Close()
	}
}

// CloseAll tears down every controller.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	controllers := make([]*Controller, 0, len(r.controllers))
	for _, ctrl := range r.controllers {
		controllers = append(controllers, ctrl)
	}
	r.controllers = make(map[pairKey]*Controller)
	r.mu.Unlock()

	for _, ctrl := range controllers {
		ctrl.Close()
	}
}
