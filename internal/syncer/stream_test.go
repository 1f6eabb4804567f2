package syncer

import (
	"io"
	"strings"
	"testing"
	"time"

	"ledgercast/internal/job"
)

func TestSSEStreamParsesEvents(t *testing.T) {
	payload := strings.Join([]string{
		": keepalive",
		"",
		"event: status",
		`data: {"job_id":"job-1","ts":"2026-08-30T10:00:00Z","kind":"status","message":"working","progress":25}`,
		"",
		": keepalive",
		"",
		"event: partial-content",
		`data: {"job_id":"job-1","ts":"2026-08-30T10:00:01Z","kind":"partial-content","text":"a fragment"}`,
		"",
		"event: complete",
		`data: {"job_id":"job-1","ts":"2026-08-30T10:00:02Z","kind":"complete","message":"done","progress":100}`,
		"",
	}, "\n")

	stream := newSSEStream(io.NopCloser(strings.NewReader(payload)))

	var events []job.Event
	for {
		select {
		case evt, open := <-stream.Events():
			if !open {
				if len(events) != 3 {
					t.Fatalf("expected 3 events, got %d: %#v", len(events), events)
				}
				if events[0].Kind != job.EventStatus || events[0].Progress != 25 {
					t.Fatalf("unexpected first event: %#v", events[0])
				}
				if events[1].Kind != job.EventPartial || events[1].Text != "a fragment" {
					t.Fatalf("unexpected second event: %#v", events[1])
				}
				if events[2].Kind != job.EventComplete || events[2].Message != "done" {
					t.Fatalf("unexpected third event: %#v", events[2])
				}
				if err := stream.Err(); err != nil {
					t.Fatalf("clean end should report no error, got %v", err)
				}
				return
			}
			events = append(events, evt)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d events", len(events))
		}
	}
}

func TestSSEStreamSkipsMalformedPayloads(t *testing.T) {
	payload := strings.Join([]string{
		"event: status",
		"data: not json",
		"",
		"event: status",
		`data: {"job_id":"job-1","ts":"2026-08-30T10:00:00Z","kind":"status","message":"ok"}`,
		"",
	}, "\n")

	stream := newSSEStream(io.NopCloser(strings.NewReader(payload)))

	var events []job.Event
	for evt := range stream.Events() {
		events = append(events, evt)
	}
	if len(events) != 1 || events[0].Message != "ok" {
		t.Fatalf("expected the malformed payload skipped: %#v", events)
	}
}

func TestSSEStreamCloseUnblocksReader(t *testing.T) {
	reader, writer := io.Pipe()
	stream := newSSEStream(reader)

	go func() {
		time.Sleep(10 * time.Millisecond)
		stream.Close()
		writer.CloseWithError(io.ErrClosedPipe)
	}()

	select {
	case _, open := <-stream.Events():
		if open {
			t.Fatal("expected channel closed without events")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not unblock")
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("close is not an error condition, got %v", err)
	}
}
