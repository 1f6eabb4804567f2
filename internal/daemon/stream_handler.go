package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ledgercast/internal/api"
	"ledgercast/internal/job"
	"ledgercast/internal/logging"
)

// streamHeartbeat is the cadence of SSE keepalive comments while no events
// flow.
const streamHeartbeat = 15 * time.Second

// handleStream serves the live server-sent event feed for the current job of
// a (target, type) pair. The connection closes after a terminal event.
func (s *apiServer) handleStream(w http.ResponseWriter, r *http.Request) {
	target, jobType, err := pairFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	rec, err := s.store.GetCurrent(r.Context(), target, jobType)
	if errors.Is(err, job.ErrNotFound) {
		// Nothing to stream is a terminal indicator, not an error.
		s.writeStreamEvent(w, flusher, job.Event{
			Timestamp: time.Now().UTC(),
			Kind:      job.EventNoJob,
			Message:   "no job for target",
		})
		return
	}
	if err != nil {
		s.writeStreamEvent(w, flusher, job.Event{
			Timestamp: time.Now().UTC(),
			Kind:      job.EventError,
			Message:   err.Error(),
		})
		return
	}

	// Subscribe before re-reading the record so no event can fall between
	// the snapshot and the subscription.
	sub := s.hub.Subscribe(rec.ID)
	defer sub.Close()

	current, err := s.store.GetByID(r.Context(), rec.ID)
	if err == nil && current.IsTerminal() {
		s.writeStreamEvent(w, flusher, terminalEventFor(current))
		return
	}

	logger := s.logger.With(
		logging.String(logging.FieldJobID, rec.ID),
		logging.String(logging.FieldTarget, target),
	)
	logger.Debug("stream subscriber attached")

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug("stream subscriber disconnected")
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt, open := <-sub.Events():
			if !open {
				return
			}
			if !s.writeStreamEvent(w, flusher, evt) {
				return
			}
			if evt.Kind.Terminal() {
				logger.Debug("stream closed after terminal event",
					logging.String("kind", string(evt.Kind)))
				return
			}
		}
	}
}

func (s *apiServer) writeStreamEvent(w http.ResponseWriter, flusher http.Flusher, evt job.Event) bool {
	payload, err := json.Marshal(api.FromEvent(evt))
	if err != nil {
		s.logger.Error("encode stream event", logging.Error(err))
		return false
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, payload); err != nil {
		return false
	}
	flusher.Flush()
	return true
}

// terminalEventFor maps a terminal record to the event that ends its stream.
func terminalEventFor(rec *job.Record) job.Event {
	evt := job.Event{
		JobID:     rec.ID,
		Timestamp: rec.UpdatedAt,
		Message:   rec.Message,
		Progress:  rec.Progress,
	}
	if rec.Status == job.StatusCompleted {
		evt.Kind = job.EventComplete
	} else {
		evt.Kind = job.EventError
		if rec.ErrorMessage != "" {
			evt.Message = rec.ErrorMessage
		}
	}
	return evt
}
