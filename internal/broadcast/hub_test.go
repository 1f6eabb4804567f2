package broadcast_test

import (
	"testing"
	"time"

	"ledgercast/internal/broadcast"
	"ledgercast/internal/job"
)

func collect(ch <-chan job.Event, n int, t *testing.T) []job.Event {
	t.Helper()
	events := make([]job.Event, 0, n)
	for len(events) < n {
		select {
		case evt, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d of %d events", len(events), n)
			}
			events = append(events, evt)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d events", len(events), n)
		}
	}
	return events
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	hub := broadcast.NewHub()
	first := hub.Subscribe("job-1")
	second := hub.Subscribe("job-1")
	defer first.Close()
	defer second.Close()

	hub.Publish(job.Event{JobID: "job-1", Kind: job.EventStatus, Message: "working", Progress: 10})
	hub.Publish(job.Event{JobID: "job-1", Kind: job.EventMilestone, Message: "halfway"})

	for _, sub := range []*broadcast.Subscription{first, second} {
		events := collect(sub.Events(), 2, t)
		if events[0].Message != "working" || events[1].Message != "halfway" {
			t.Fatalf("unexpected event sequence: %#v", events)
		}
	}
}

func TestEventsPublishedBeforeSubscribeAreNotReplayed(t *testing.T) {
	hub := broadcast.NewHub()
	hub.Publish(job.Event{JobID: "job-1", Kind: job.EventStatus, Message: "missed"})

	sub := hub.Subscribe("job-1")
	defer sub.Close()

	hub.Publish(job.Event{JobID: "job-1", Kind: job.EventStatus, Message: "seen"})
	events := collect(sub.Events(), 1, t)
	if events[0].Message != "seen" {
		t.Fatalf("expected only the post-subscribe event, got %#v", events)
	}
	select {
	case evt := <-sub.Events():
		t.Fatalf("unexpected extra event: %#v", evt)
	default:
	}
}

func TestUnsubscribeDoesNotAffectOthers(t *testing.T) {
	hub := broadcast.NewHub()
	leaver := hub.Subscribe("job-1")
	stayer := hub.Subscribe("job-1")
	defer stayer.Close()

	leaver.Close()
	leaver.Close() // safe to repeat

	hub.Publish(job.Event{JobID: "job-1", Kind: job.EventStatus, Message: "still flowing"})

	events := collect(stayer.Events(), 1, t)
	if events[0].Message != "still flowing" {
		t.Fatalf("unexpected event: %#v", events)
	}
	if count := hub.SubscriberCount("job-1"); count != 1 {
		t.Fatalf("expected one remaining subscriber, got %d", count)
	}
}

func TestSubscribersAreIsolatedByJob(t *testing.T) {
	hub := broadcast.NewHub()
	mine := hub.Subscribe("job-1")
	theirs := hub.Subscribe("job-2")
	defer mine.Close()
	defer theirs.Close()

	hub.Publish(job.Event{JobID: "job-2", Kind: job.EventStatus, Message: "not for you"})

	select {
	case evt := <-mine.Events():
		t.Fatalf("received another job's event: %#v", evt)
	case <-time.After(50 * time.Millisecond):
	}
	collect(theirs.Events(), 1, t)
}

func TestTerminalEventClosesSubscriptions(t *testing.T) {
	hub := broadcast.NewHub()
	sub := hub.Subscribe("job-1")

	hub.Publish(job.Event{JobID: "job-1", Kind: job.EventComplete, Message: "done"})

	events := collect(sub.Events(), 1, t)
	if events[0].Kind != job.EventComplete {
		t.Fatalf("unexpected event: %#v", events)
	}
	if _, open := <-sub.Events(); open {
		t.Fatal("expected channel closed after terminal event")
	}
	if count := hub.SubscriberCount("job-1"); count != 0 {
		t.Fatalf("expected no subscribers left, got %d", count)
	}
}

func TestSlowSubscriberIsDetachedNotBlocked(t *testing.T) {
	hub := broadcast.NewHub()
	slow := hub.Subscribe("job-1")

	// Never read: fill the buffer and one more.
	for i := 0; i < 65; i++ {
		hub.Publish(job.Event{JobID: "job-1", Kind: job.EventStatus, Progress: float64(i)})
	}

	if count := hub.SubscriberCount("job-1"); count != 0 {
		t.Fatalf("expected laggard detached, got %d subscribers", count)
	}

	// Buffered events remain readable, then the channel closes.
	events := collect(slow.Events(), 64, t)
	if events[0].Progress != 0 || events[63].Progress != 63 {
		t.Fatalf("unexpected buffered events: first %v last %v", events[0].Progress, events[63].Progress)
	}
	if _, open := <-slow.Events(); open {
		t.Fatal("expected channel closed after detachment")
	}
}

func TestPublishStampsZeroTimestamps(t *testing.T) {
	hub := broadcast.NewHub()
	sub := hub.Subscribe("job-1")
	defer sub.Close()

	hub.Publish(job.Event{JobID: "job-1", Kind: job.EventPartial, Text: "fragment"})

	events := collect(sub.Events(), 1, t)
	if events[0].Timestamp.IsZero() {
		t.Fatal("expected publish to stamp a timestamp")
	}
}
