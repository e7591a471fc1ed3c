package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/scoring"
)

// CycleRunner triggers a scoring cycle for a reference month. Satisfied by
// *scoring.Service.
type CycleRunner interface {
	RunCycle(ctx context.Context, refMonth string) (*domain.ScoringRun, error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	cycles  CycleRunner
	scope   domain.RegistryScope
	version string
}

// NewHandler creates a new API handler. The scope identifies which
// (system, control) registry rows the prediction endpoints read; the
// intermediary part of each request's scope comes from its header.
func NewHandler(repo domain.Repository, cache domain.Cache, cycles CycleRunner, scope domain.RegistryScope, version string) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		cycles:  cycles,
		scope:   scope,
		version: version,
	}
}

// PredictionsResponse is the response for GET /predictions.
type PredictionsResponse struct {
	Predictions []*domain.RegistryEntry `json:"predictions"`
	Count       int                     `json:"count"`
	Source      string                  `json:"source"` // "cache" or "database"
}

// GetPredictions returns the latest prediction per (customer, model) for
// the requesting intermediary. Served from cache when fresh, from the
// registry table otherwise.
func (h *Handler) GetPredictions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	intermediary := GetIntermediary(ctx)

	if h.cache != nil {
		rows, err := h.cache.GetLatestPredictions(ctx, intermediary, scoring.LatestPredictionsCacheKey)
		if err != nil {
			slog.Warn("prediction cache read failed", "error", err)
		}
		if rows != nil {
			writeJSON(w, http.StatusOK, PredictionsResponse{
				Predictions: rows,
				Count:       len(rows),
				Source:      "cache",
			})
			return
		}
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	scope := h.scope
	scope.IntermediaryCode = intermediary

	rows, err := h.repo.LatestPredictionRows(ctx, scope)
	if err != nil {
		slog.Error("failed to load latest predictions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load predictions",
		})
		return
	}

	if h.cache != nil {
		if err := h.cache.SetLatestPredictions(ctx, intermediary, scoring.LatestPredictionsCacheKey, rows, 15*time.Minute); err != nil {
			slog.Warn("prediction cache write failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, PredictionsResponse{
		Predictions: rows,
		Count:       len(rows),
		Source:      "database",
	})
}

// ListRuns returns recent scoring runs, newest first. The optional "limit"
// query parameter caps the result.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	runs, err := h.repo.ListRuns(ctx, limit)
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list runs",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun retrieves a scoring run by ID.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "id")

	if runID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "run id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	run, err := h.repo.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "run not found",
			})
			return
		}
		slog.Error("failed to get run", "id", runID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load run",
		})
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// TriggerRunRequest is the request body for POST /runs.
type TriggerRunRequest struct {
	RefMonth string `json:"refMonth"`
}

// TriggerRun runs a scoring cycle for the requested reference month and
// returns its run record. The cycle runs synchronously; monthly batches
// are operator-triggered, not latency sensitive.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cycles == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "scoring service not available",
		})
		return
	}

	var req TriggerRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.RefMonth == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "refMonth is required (MMYYYY)",
		})
		return
	}

	run, err := h.cycles.RunCycle(ctx, req.RefMonth)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": verr.Error(),
			})
			return
		}
		// The run record, when present, carries the failure detail.
		if run != nil {
			writeJSON(w, http.StatusInternalServerError, run)
			return
		}
		slog.Error("scoring cycle failed", "ref_month", req.RefMonth, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "scoring cycle failed",
		})
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
