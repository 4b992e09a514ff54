// Package server exposes the workers over HTTP for the external scheduler.
// Every endpoint is synchronous: the scheduler's request runs the invocation
// and the response carries its report.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/draftline/content-cli/internal/config"
	"github.com/draftline/content-cli/internal/monitoring"
	"github.com/draftline/content-cli/internal/store"
	"github.com/draftline/content-cli/internal/worker"
)

// WorkerRunner is one stage worker as the server sees it: a batch invocation
// or a single-item trigger.
type WorkerRunner interface {
	Run(ctx context.Context, stop func() bool) (*worker.Report, error)
	RunItem(ctx context.Context, id string) (*worker.Report, error)
}

// BatchRunner is a worker without a trigger mode (the completion aggregator).
type BatchRunner interface {
	Run(ctx context.Context, stop func() bool) (*worker.Report, error)
}

// Server routes scheduler requests to workers.
type Server struct {
	cfg       config.ServerConfig
	store     store.Store
	workers   map[string]WorkerRunner
	batchOnly map[string]BatchRunner
	cycle     func(ctx context.Context, opts worker.CycleOptions) (*worker.CycleReport, error)
	collector *monitoring.Collector
}

// New assembles the server. The cycle function runs one orchestrator cycle.
func New(
	cfg config.ServerConfig,
	st store.Store,
	workers map[string]WorkerRunner,
	batchOnly map[string]BatchRunner,
	cycle func(ctx context.Context, opts worker.CycleOptions) (*worker.CycleReport, error),
	collector *monitoring.Collector,
) *Server {
	return &Server{
		cfg:       cfg,
		store:     st,
		workers:   workers,
		batchOnly: batchOnly,
		cycle:     cycle,
		collector: collector,
	}
}

// Router builds the chi handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Scheduler-Secret"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/workers/{name}", s.handleWorker)
		r.Post("/cycle", s.handleCycle)
		r.Get("/metrics/snapshot", s.handleMetrics)
	})

	return r
}

// authenticate accepts either the scheduler's shared secret header or the
// service bearer token. Preflight never reaches here; the cors middleware
// answers OPTIONS first.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.SchedulerSecret != "" && r.Header.Get("X-Scheduler-Secret") == s.cfg.SchedulerSecret {
			next.ServeHTTP(w, r)
			return
		}
		if s.cfg.ServiceToken != "" && r.Header.Get("Authorization") == "Bearer "+s.cfg.ServiceToken {
			next.ServeHTTP(w, r)
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   "unauthorized",
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type workerRequest struct {
	PostID string `json:"post_id"`
}

func (s *Server) handleWorker(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req workerRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"worker":  name,
				"error":   "invalid request body",
			})
			return
		}
	}

	report, err := s.runWorker(r.Context(), name, req.PostID)
	if err == errUnknownWorker {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"worker":  name,
			"error":   "unknown worker",
		})
		return
	}
	if err == errNoTriggerMode {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"worker":  name,
			"error":   "worker does not support single-item runs",
		})
		return
	}
	if err != nil {
		// Setup error; per-item failures never reach here.
		zap.L().Error("worker invocation failed",
			zap.String("worker", name),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"worker":  name,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, workerResponse(report))
}

var (
	errUnknownWorker = jsonError("unknown worker")
	errNoTriggerMode = jsonError("no trigger mode")
)

type jsonError string

func (e jsonError) Error() string { return string(e) }

func (s *Server) runWorker(ctx context.Context, name, postID string) (*worker.Report, error) {
	if wr, ok := s.workers[name]; ok {
		if postID != "" {
			return wr.RunItem(ctx, postID)
		}
		return wr.Run(ctx, nil)
	}
	if br, ok := s.batchOnly[name]; ok {
		if postID != "" {
			return nil, errNoTriggerMode
		}
		return br.Run(ctx, nil)
	}
	return nil, errUnknownWorker
}

func workerResponse(report *worker.Report) map[string]any {
	if report.Skipped {
		return map[string]any{
			"success": true,
			"skipped": true,
			"reason":  report.Reason,
		}
	}
	return map[string]any{
		"success":         true,
		"worker":          report.Worker,
		"items_found":     report.Counts.Found,
		"items_processed": report.Counts.Processed,
		"items_failed":    report.Counts.Failed,
		"duration_ms":     report.DurationMS,
		"message":         "ok",
		"log_id":          report.JobRunID,
	}
}

// handleCycle runs one orchestrator cycle. The optional body maps phase names
// to batch-size overrides for this cycle only.
func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	var opts worker.CycleOptions
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts.BatchSizes); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "invalid request body",
			})
			return
		}
	}

	report, err := s.cycle(r.Context(), opts)
	if err != nil {
		zap.L().Error("cycle failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"phases":        report.Phases,
		"duration_ms":   report.DurationMS,
		"has_more_work": report.HasMoreWork,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.collector.Snapshot(r.Context())
	if err != nil {
		zap.L().Error("metrics snapshot failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}
