package job_test

import (
	"testing"

	"ledgercast/internal/job"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to job.Status
		allowed  bool
	}{
		{job.StatusPending, job.StatusRunning, true},
		{job.StatusPending, job.StatusPending, true},
		{job.StatusPending, job.StatusFailed, true},
		{job.StatusPending, job.StatusCancelled, true},
		{job.StatusRunning, job.StatusRunning, true},
		{job.StatusRunning, job.StatusCompleted, true},
		{job.StatusRunning, job.StatusFailed, true},
		{job.StatusRunning, job.StatusCancelled, true},
		{job.StatusRunning, job.StatusPending, false},
		{job.StatusCompleted, job.StatusRunning, false},
		{job.StatusCompleted, job.StatusCompleted, false},
		{job.StatusFailed, job.StatusPending, false},
		{job.StatusCancelled, job.StatusRunning, false},
		{job.StatusPending, job.Status("bogus"), false},
	}

	for _, tc := range cases {
		if got := job.CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestSetProgressClampsAndNeverRegresses(t *testing.T) {
	rec := &job.Record{Status: job.StatusRunning, Progress: 40}

	rec.SetProgress("halfway", 150)
	if rec.Progress != 100 {
		t.Fatalf("expected clamp to 100, got %v", rec.Progress)
	}

	rec.SetProgress("earlier report arrives late", 20)
	if rec.Progress != 100 {
		t.Fatalf("expected progress to hold at 100, got %v", rec.Progress)
	}
	if rec.Message != "earlier report arrives late" {
		t.Fatalf("message should still update, got %q", rec.Message)
	}

	pending := &job.Record{Status: job.StatusPending, Progress: 50}
	pending.SetProgress("reset", 10)
	if pending.Progress != 10 {
		t.Fatalf("non-running progress may move freely, got %v", pending.Progress)
	}
}

func TestSetCompletedPinsProgress(t *testing.T) {
	rec := &job.Record{Status: job.StatusRunning, Progress: 80, Message: "almost"}
	rec.SetCompleted("")
	if rec.Progress != 100 {
		t.Fatalf("expected progress 100, got %v", rec.Progress)
	}
	if rec.Message != "almost" {
		t.Fatalf("empty completion message should keep the last one, got %q", rec.Message)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := job.ParseStatus(" Running "); !ok || status != job.StatusRunning {
		t.Fatalf("ParseStatus normalization failed: %v %v", status, ok)
	}
	if _, ok := job.ParseStatus("finished"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestParseType(t *testing.T) {
	if jt, ok := job.ParseType("PODCAST"); !ok || jt != job.TypePodcast {
		t.Fatalf("ParseType normalization failed: %v %v", jt, ok)
	}
	if _, ok := job.ParseType("video"); ok {
		t.Fatal("expected unknown type to be rejected")
	}
}

func TestEventKindTerminal(t *testing.T) {
	terminal := []job.EventKind{job.EventComplete, job.EventError, job.EventNoJob}
	for _, kind := range terminal {
		if !kind.Terminal() {
			t.Errorf("expected %s to be terminal", kind)
		}
	}
	for _, kind := range []job.EventKind{job.EventStatus, job.EventMilestone, job.EventPartial} {
		if kind.Terminal() {
			t.Errorf("expected %s to be non-terminal", kind)
		}
	}
}
