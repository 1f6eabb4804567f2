package daemon_test

import (
	"context"
	"testing"
	"time"

	"ledgercast/internal/daemon"
	"ledgercast/internal/job"
	"ledgercast/internal/syncer"
	"ledgercast/internal/testsupport"
)

func startDaemon(t *testing.T) (*daemon.Daemon, *syncer.Client) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	return d, syncer.NewClient(d.APIAddr())
}

func TestStartStatusAndListEndpoints(t *testing.T) {
	_, client := startDaemon(t)
	ctx := context.Background()

	started, err := client.Start(ctx, "acme", job.TypeReport, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !started.Created || started.JobID == "" {
		t.Fatalf("unexpected start response: %#v", started)
	}

	again, err := client.Start(ctx, "acme", job.TypeReport, false)
	if err != nil {
		t.Fatalf("repeat start: %v", err)
	}
	if again.Created || again.JobID != started.JobID {
		t.Fatalf("expected the active job reused: %#v", again)
	}

	if _, err := client.Start(ctx, "acme", job.TypeReport, true); !syncer.IsConflict(err) {
		t.Fatalf("expected conflict on forced start, got %v", err)
	}

	status, err := client.Status(ctx, "acme", job.TypeReport)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.HasJob || status.Job.ID != started.JobID {
		t.Fatalf("unexpected status: %#v", status)
	}

	missing, err := client.Status(ctx, "nobody", job.TypeReport)
	if err != nil {
		t.Fatalf("status for unknown target: %v", err)
	}
	if missing.HasJob {
		t.Fatalf("expected no job for unknown target: %#v", missing)
	}

	list, err := client.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != started.JobID {
		t.Fatalf("unexpected listing: %#v", list)
	}
}

func TestStreamDeliversEventsToCompletion(t *testing.T) {
	_, client := startDaemon(t)
	ctx := context.Background()

	started, err := client.Start(ctx, "acme", job.TypeReport, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	stream, err := client.OpenStream(ctx, "acme", job.TypeReport)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Close()

	var sawStatus, sawPartial, sawComplete bool
	var lastProgress float64
	deadline := time.After(15 * time.Second)
	for !sawComplete {
		select {
		case evt, open := <-stream.Events():
			if !open {
				t.Fatalf("stream closed early (status=%v partial=%v)", sawStatus, sawPartial)
			}
			if evt.JobID != started.JobID {
				t.Fatalf("event for wrong job: %#v", evt)
			}
			switch evt.Kind {
			case job.EventStatus:
				sawStatus = true
				if evt.Progress < lastProgress {
					t.Fatalf("progress regressed from %v to %v", lastProgress, evt.Progress)
				}
				lastProgress = evt.Progress
			case job.EventPartial:
				sawPartial = true
			case job.EventComplete:
				sawComplete = true
				if evt.Progress != 100 {
					t.Fatalf("expected completion at 100, got %v", evt.Progress)
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for stream completion")
		}
	}
	if !sawStatus || !sawPartial {
		t.Fatalf("expected status and partial events (status=%v partial=%v)", sawStatus, sawPartial)
	}

	final, err := client.Status(ctx, "acme", job.TypeReport)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if final.Job.Status != string(job.StatusCompleted) || final.Job.Progress != 100 {
		t.Fatalf("unexpected final record: %#v", final.Job)
	}
}

func TestStreamForUnknownTargetSendsNoJob(t *testing.T) {
	_, client := startDaemon(t)

	stream, err := client.OpenStream(context.Background(), "nobody", job.TypePodcast)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Close()

	select {
	case evt, open := <-stream.Events():
		if !open {
			t.Fatal("stream closed without the no-job indicator")
		}
		if evt.Kind != job.EventNoJob {
			t.Fatalf("expected no-job event, got %#v", evt)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for no-job event")
	}
}

func TestCancelEndpoint(t *testing.T) {
	_, client := startDaemon(t)
	ctx := context.Background()

	if _, err := client.Cancel(ctx, "nobody", job.TypeReport); !syncer.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	started, err := client.Start(ctx, "acme", job.TypePodcast, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	resp, err := client.Cancel(ctx, "acme", job.TypePodcast)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if resp.JobID != started.JobID || !resp.CancelRequested {
		t.Fatalf("unexpected cancel response: %#v", resp)
	}

	deadline := time.Now().Add(15 * time.Second)
	for {
		status, err := client.Status(ctx, "acme", job.TypePodcast)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if status.Job.Status == string(job.StatusCancelled) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never reached cancelled: %#v", status.Job)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestBadRequestsAreRejected(t *testing.T) {
	_, client := startDaemon(t)

	if _, err := client.Start(context.Background(), "acme", job.Type("video"), false); err == nil {
		t.Fatal("expected unknown job type to be rejected")
	}
}

func TestStopFailsRunningJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStepInterval(5000))
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	client := syncer.NewClient(d.APIAddr())
	ctx := context.Background()
	started, err := client.Start(ctx, "acme", job.TypeReport, false)
	if err != nil {
		d.Stop()
		t.Fatalf("start: %v", err)
	}

	// Wait for the worker to claim the job, then stop mid-run.
	deadline := time.Now().Add(15 * time.Second)
	for {
		rec, err := store.GetByID(ctx, started.JobID)
		if err != nil {
			d.Stop()
			t.Fatalf("GetByID: %v", err)
		}
		if rec.Status == job.StatusRunning {
			break
		}
		if time.Now().After(deadline) {
			d.Stop()
			t.Fatalf("job never started running: %#v", rec)
		}
		time.Sleep(20 * time.Millisecond)
	}

	d.Stop()

	rec, err := store.GetByID(ctx, started.JobID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.Status != job.StatusFailed || rec.ErrorMessage != daemon.ShutdownReason {
		t.Fatalf("expected the shutdown sweep to fail the job: %#v", rec)
	}
}
