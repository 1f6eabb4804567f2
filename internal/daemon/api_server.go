package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"ledgercast/internal/api"
	"ledgercast/internal/broadcast"
	"ledgercast/internal/config"
	"ledgercast/internal/job"
	"ledgercast/internal/jobstore"
	"ledgercast/internal/logging"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	store  *jobstore.Store
	hub    *broadcast.Hub

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, store *jobstore.Store, hub *broadcast.Hub, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		store:  store,
		hub:    hub,
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/jobs", srv.handleList).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs/{target}/{type}", srv.handleStart).Methods(http.MethodPost)
	router.HandleFunc("/api/jobs/{target}/{type}", srv.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs/{target}/{type}", srv.handleCancel).Methods(http.MethodDelete)
	router.HandleFunc("/api/jobs/{target}/{type}/stream", srv.handleStream).Methods(http.MethodGet)

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No write timeout: the stream endpoint holds its connection open
		// for the lifetime of a job.
		IdleTimeout: 60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// pairFromRequest extracts and validates the (target, type) route variables.
func pairFromRequest(r *http.Request) (string, job.Type, error) {
	vars := mux.Vars(r)
	target := strings.TrimSpace(vars["target"])
	if target == "" {
		return "", "", errors.New("target is required")
	}
	jobType, ok := job.ParseType(vars["type"])
	if !ok {
		return "", "", fmt.Errorf("unknown job type %q", vars["type"])
	}
	return target, jobType, nil
}

func (s *apiServer) handleStart(w http.ResponseWriter, r *http.Request) {
	target, jobType, err := pairFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	force := r.URL.Query().Get("force") == "1"

	rec, created, err := s.store.CreateOrGet(r.Context(), target, jobType, force)
	if errors.Is(err, job.ErrConflict) {
		s.writeError(w, http.StatusConflict, "generation already in progress")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if created {
		s.logger.Info("job accepted",
			logging.String(logging.FieldJobID, rec.ID),
			logging.String(logging.FieldTarget, target),
			logging.String(logging.FieldJobType, string(jobType)),
			logging.String(logging.FieldEventType, "job_accepted"))
	}
	s.writeJSON(w, http.StatusAccepted, api.StartResponse{
		JobID:   rec.ID,
		Status:  string(rec.Status),
		Created: created,
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	target, jobType, err := pairFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.GetCurrent(r.Context(), target, jobType)
	if errors.Is(err, job.ErrNotFound) {
		s.writeJSON(w, http.StatusOK, api.StatusResponse{HasJob: false})
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snapshot := api.FromRecord(rec)
	s.writeJSON(w, http.StatusOK, api.StatusResponse{HasJob: true, Job: &snapshot})
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	target, jobType, err := pairFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.GetCurrent(r.Context(), target, jobType)
	if errors.Is(err, job.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "no job for target")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	updated, err := s.store.RequestCancel(r.Context(), rec.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("cancellation requested",
		logging.String(logging.FieldJobID, updated.ID),
		logging.String(logging.FieldTarget, target),
		logging.String(logging.FieldEventType, "job_cancel_requested"))
	s.writeJSON(w, http.StatusAccepted, api.CancelResponse{
		JobID:           updated.ID,
		Status:          string(updated.Status),
		CancelRequested: updated.CancelRequested,
	})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	var statuses []job.Status
	for _, value := range r.URL.Query()["status"] {
		if parsed, ok := job.ParseStatus(value); ok {
			statuses = append(statuses, parsed)
		}
	}

	records, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	jobs := make([]api.JobRecord, 0, len(records))
	for _, rec := range records {
		jobs = append(jobs, api.FromRecord(rec))
	}
	s.writeJSON(w, http.StatusOK, api.ListResponse{Jobs: jobs})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
