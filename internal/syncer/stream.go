package syncer

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"ledgercast/internal/api"
	"ledgercast/internal/job"
)

// sseStream parses a server-sent event body into job events. One goroutine
// reads the body; Close unblocks it by closing the underlying connection.
type sseStream struct {
	body   io.ReadCloser
	events chan job.Event

	mu     sync.Mutex
	err    error
	closed bool
}

func newSSEStream(body io.ReadCloser) *sseStream {
	s := &sseStream{
		body:   body,
		events: make(chan job.Event, 16),
	}
	go s.readLoop()
	return s
}

func (s *sseStream) Events() <-chan job.Event { return s.events }

// Err reports why the stream ended. A clean server-side close returns nil.
func (s *sseStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *sseStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.body.Close()
}

func (s *sseStream) readLoop() {
	defer close(s.events)
	defer s.body.Close()

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 4096), 256*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				s.dispatch(data.String())
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
			// Keepalive comment.
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// The event: field is redundant with the kind inside the data
			// payload, and other fields are not used.
		}
	}
	if data.Len() > 0 {
		s.dispatch(data.String())
	}

	err := scanner.Err()
	s.mu.Lock()
	if err != nil && !s.closed {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *sseStream) dispatch(payload string) {
	var wire api.StreamEvent
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return
	}
	s.events <- wire.ToEvent()
}
