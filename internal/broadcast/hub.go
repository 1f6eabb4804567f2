package broadcast

import (
	"sync"
	"time"

	"ledgercast/internal/job"
)

const subscriberBuffer = 64

// Hub relays job progress events to any number of concurrent subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]*Subscription
}

// NewHub constructs an empty broadcaster.
func NewHub() *Hub {
	return &Hub{subs: make(map[string][]*Subscription)}
}

// Subscription is one client's live event feed for a single job.
type Subscription struct {
	hub    *Hub
	jobID  string
	ch     chan job.Event
	closed bool // guarded by hub.mu
}

// Events returns the subscriber's event channel. The channel is closed when
// the job reaches a terminal event, the subscription is closed, or the
// subscriber falls too far behind.
func (s *Subscription) Events() <-chan job.Event {
	return s.ch
}

// Close detaches the subscription. Other subscribers and the publisher are
// unaffected. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.closeLocked(s)
}

// Subscribe registers a new live feed for the given job.
func (h *Hub) Subscribe(jobID string) *Subscription {
	sub := &Subscription{
		hub:   h,
		jobID: jobID,
		ch:    make(chan job.Event, subscriberBuffer),
	}
	h.mu.Lock()
	h.subs[jobID] = append(h.subs[jobID], sub)
	h.mu.Unlock()
	return sub
}

// Publish delivers an event to every live subscriber of its job. A zero
// timestamp is stamped with the current time. Terminal events end every
// subscription for the job after delivery. Sends never block: a subscriber
// whose buffer is full is detached instead of stalling the worker.
func (h *Hub) Publish(evt job.Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range append([]*Subscription(nil), h.subs[evt.JobID]...) {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- evt:
			if evt.Kind.Terminal() {
				h.closeLocked(sub)
			}
		default:
			h.closeLocked(sub)
		}
	}
}

// SubscriberCount reports live subscriptions for a job.
func (h *Hub) SubscriberCount(jobID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[jobID])
}

func (h *Hub) closeLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	current := h.subs[sub.jobID]
	for i, candidate := range current {
		if candidate == sub {
			h.subs[sub.jobID] = append(current[:i], current[i+1:]...)
			break
		}
	}
	if len(h.subs[sub.jobID]) == 0 {
		delete(h.subs, sub.jobID)
	}
	close(sub.ch)
}
