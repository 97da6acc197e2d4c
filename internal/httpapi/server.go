package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"GeoGlobe/internal/domain"
	"GeoGlobe/internal/ports"
	"GeoGlobe/internal/usecase"
)

const dateLayout = "2006-01-02"

// Pipeline runs one pass of the extraction-and-grounding pipeline.
type Pipeline interface {
	Process(ctx context.Context, mode domain.ProcessingMode, limit int) (usecase.Result, error)
}

// Ingestor refreshes the events table from upstream feeds.
type Ingestor interface {
	FullReboot(ctx context.Context, monthsBack int) error
	Incremental(ctx context.Context, monthsBack int) error
	Period(ctx context.Context, from, to time.Time) error
}

// JobSubmitter starts a named background job under the ledger guard.
type JobSubmitter interface {
	Run(ctx context.Context, name string, fn func(context.Context) error) error
}

// Deps groups everything the HTTP layer calls into.
type Deps struct {
	Processor Pipeline
	Refresher Ingestor
	Runner    JobSubmitter
	Ledger    ports.JobLedger
	Relations ports.RelationReader

	FullRebootMonths  int
	IncrementalMonths int

	Logger *slog.Logger
}

// Server exposes pipeline and reporting operations over HTTP. Long-running
// operations are submitted as ledger-guarded background jobs and answered
// with 202; a duplicate submission gets 409.
type Server struct {
	deps Deps
}

// NewServer builds the HTTP facade.
func NewServer(deps Deps) *Server {
	return &Server{deps: deps}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/process", s.handleProcess)
	mux.HandleFunc("POST /api/reboot-full", s.handleRebootFull)
	mux.HandleFunc("POST /api/refresh-incremental", s.handleRefreshIncremental)
	mux.HandleFunc("POST /api/fetch-period", s.handleFetchPeriod)
	mux.HandleFunc("GET /api/globe", s.handleGlobe)
	mux.HandleFunc("GET /api/relations", s.handleRelations)
	mux.HandleFunc("GET /api/jobs/{name}", s.handleJob)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

type processRequest struct {
	Mode  string `json:"mode"`
	Limit int    `json:"limit"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, err := domain.ParseProcessingMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}

	s.submitJob(w, r, usecase.JobLLMProcessing, func(ctx context.Context) error {
		_, err := s.deps.Processor.Process(ctx, mode, req.Limit)
		return err
	})
}

func (s *Server) handleRebootFull(w http.ResponseWriter, r *http.Request) {
	s.submitJob(w, r, usecase.JobFullReboot, func(ctx context.Context) error {
		return s.deps.Refresher.FullReboot(ctx, s.deps.FullRebootMonths)
	})
}

func (s *Server) handleRefreshIncremental(w http.ResponseWriter, r *http.Request) {
	s.submitJob(w, r, usecase.JobIncrementalRefresh, func(ctx context.Context) error {
		return s.deps.Refresher.Incremental(ctx, s.deps.IncrementalMonths)
	})
}

type fetchPeriodRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleFetchPeriod(w http.ResponseWriter, r *http.Request) {
	var req fetchPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	from, err := time.Parse(dateLayout, req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
		return
	}
	to, err := time.Parse(dateLayout, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not precede from")
		return
	}

	s.submitJob(w, r, usecase.JobFetchPeriod, func(ctx context.Context) error {
		return s.deps.Refresher.Period(ctx, from, to)
	})
}

func (s *Server) handleGlobe(w http.ResponseWriter, r *http.Request) {
	relations, err := s.deps.Relations.GlobeRelations(r.Context())
	if err != nil {
		s.deps.Logger.Error("globe relations query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if relations == nil {
		relations = []domain.GlobeRelation{}
	}
	writeJSON(w, http.StatusOK, relations)
}

func (s *Server) handleRelations(w http.ResponseWriter, r *http.Request) {
	var from, to *time.Time

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
		from = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return
		}
		to = &t
	}

	relations, err := s.deps.Relations.Relations(r.Context(), from, to)
	if err != nil {
		s.deps.Logger.Error("relations query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if relations == nil {
		relations = []domain.Relation{}
	}
	writeJSON(w, http.StatusOK, relations)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	job, err := s.deps.Ledger.Get(r.Context(), name)
	if err != nil {
		s.deps.Logger.Error("job lookup failed", "job", name, "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job never ran")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request, name string, fn func(context.Context) error) {
	err := s.deps.Runner.Run(r.Context(), name, fn)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyRunning) {
			writeError(w, http.StatusConflict, "job already running")
			return
		}
		s.deps.Logger.Error("job submission failed", "job", name, "error", err)
		writeError(w, http.StatusInternalServerError, "could not start job")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job": name, "status": string(domain.JobRunning)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
