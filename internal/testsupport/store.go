package testsupport

import (
	"context"
	"testing"

	"ledgercast/internal/config"
	"ledgercast/internal/job"
	"ledgercast/internal/jobstore"
)

// MustOpenStore opens a jobstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a fresh job record for tests using the provided store.
func NewJob(t testing.TB, store *jobstore.Store, target string, jobType job.Type) *job.Record {
	t.Helper()

	rec, created, err := store.CreateOrGet(context.Background(), target, jobType, false)
	if err != nil {
		t.Fatalf("store.CreateOrGet: %v", err)
	}
	if !created {
		t.Fatalf("expected new job for %s/%s", target, jobType)
	}
	return rec
}
