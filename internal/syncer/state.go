package syncer

// State is the controller's position in the synchronization lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateStarting  State = "starting"
	StateStreaming State = "streaming"
	StatePolling   State = "polling"
	// StateStale marks repeated poll failures: the last known view is shown
	// as possibly outdated, but the job is never marked failed on the
	// client's initiative.
	StateStale     State = "stale"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the controller has finished following its job.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Active reports whether the controller is following a job over some channel.
func (s State) Active() bool {
	switch s {
	case StateStarting, StateStreaming, StatePolling, StateStale:
		return true
	default:
		return false
	}
}
