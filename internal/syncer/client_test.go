package syncer_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ledgercast/internal/api"
	"ledgercast/internal/job"
	"ledgercast/internal/syncer"
)

func TestClientHitsExpectedRoutes(t *testing.T) {
	var gotMethod, gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(api.StartResponse{JobID: "job-1", Status: "pending", Created: true})
	}))
	defer server.Close()

	client := syncer.NewClient(server.URL)
	ctx := context.Background()

	if _, err := client.Start(ctx, "acme", job.TypeReport, true); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/jobs/acme/report" || gotQuery != "force=1" {
		t.Fatalf("unexpected start request: %s %s?%s", gotMethod, gotPath, gotQuery)
	}

	if _, err := client.Status(ctx, "acme", job.TypeReport); err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if gotMethod != http.MethodGet || gotPath != "/api/jobs/acme/report" {
		t.Fatalf("unexpected status request: %s %s", gotMethod, gotPath)
	}

	if _, err := client.Cancel(ctx, "acme", job.TypeReport); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Fatalf("unexpected cancel method: %s", gotMethod)
	}

	if _, err := client.List(ctx, job.StatusRunning); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if gotPath != "/api/jobs" || gotQuery != "status=running" {
		t.Fatalf("unexpected list request: %s?%s", gotPath, gotQuery)
	}
}

func TestClientAddsSchemeToBareAddress(t *testing.T) {
	client := syncer.NewClient("127.0.0.1:8319")
	if client.BaseURL() != "http://127.0.0.1:8319" {
		t.Fatalf("unexpected base url %q", client.BaseURL())
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "generation already in progress"})
	}))
	defer server.Close()

	client := syncer.NewClient(server.URL)
	_, err := client.Start(context.Background(), "acme", job.TypeReport, true)
	if !syncer.IsConflict(err) {
		t.Fatalf("expected conflict classification, got %v", err)
	}

	var statusErr *syncer.StatusError
	if !errors.As(err, &statusErr) || statusErr.Message != "generation already in progress" {
		t.Fatalf("expected server message preserved, got %v", err)
	}
}

func TestIsUnavailableClassification(t *testing.T) {
	if !syncer.IsUnavailable(errors.New("dial tcp 127.0.0.1:1: connect: connection refused")) {
		t.Fatal("connection refused should be unavailable")
	}
	if !syncer.IsUnavailable(io.ErrUnexpectedEOF) {
		t.Fatal("truncated response should be unavailable")
	}
	if !syncer.IsUnavailable(&syncer.StatusError{Code: http.StatusServiceUnavailable}) {
		t.Fatal("503 should be unavailable")
	}
	if syncer.IsUnavailable(&syncer.StatusError{Code: http.StatusConflict}) {
		t.Fatal("409 is a rejection, not unavailability")
	}
	if syncer.IsUnavailable(nil) {
		t.Fatal("nil error is not unavailable")
	}
}
