package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/csquant/internal/backtest"
	"github.com/wonny/csquant/internal/store"
	"github.com/wonny/csquant/pkg/logger"
)

// RunHandler serves stored backtest runs.
type RunHandler struct {
	runRepo *store.RunRepository
	logger  *logger.Logger
}

// NewRunHandler creates a new run handler.
func NewRunHandler(runRepo *store.RunRepository, log *logger.Logger) *RunHandler {
	return &RunHandler{
		runRepo: runRepo,
		logger:  log,
	}
}

// GetLatest returns the most recent run, optionally filtered by strategy.
// GET /api/runs/latest?strategy=<id>
func (h *RunHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	strategyID := r.URL.Query().Get("strategy")

	run, err := h.runRepo.LatestRun(ctx, strategyID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest run")
		respondError(w, http.StatusNotFound, "No backtest runs found")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// List returns recent runs without their period payloads.
// GET /api/runs?limit=<n>
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = n
	}

	runs, err := h.runRepo.ListRuns(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}

// SeriesResponse carries a per-period series for one run.
type SeriesResponse struct {
	RunID  int64                 `json:"run_id"`
	Series string                `json:"series"`
	Points []backtest.SeriesPoint `json:"points"`
}

// GetSeries returns a per-period return or turnover series for the latest run.
// GET /api/runs/latest/series/{kind}  (kind: net, gross, turnover)
func (h *RunHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind := mux.Vars(r)["kind"]
	strategyID := r.URL.Query().Get("strategy")

	run, err := h.runRepo.LatestRun(ctx, strategyID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest run")
		respondError(w, http.StatusNotFound, "No backtest runs found")
		return
	}

	result := &backtest.Result{Periods: run.Periods}

	var points []backtest.SeriesPoint
	switch kind {
	case "net":
		points = result.NetSeries()
	case "gross":
		points = result.GrossSeries()
	case "turnover":
		points = result.TurnoverSeries()
	default:
		respondError(w, http.StatusBadRequest, "Invalid series kind (valid: net, gross, turnover)")
		return
	}

	respondJSON(w, http.StatusOK, SeriesResponse{
		RunID:  run.ID,
		Series: kind,
		Points: points,
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
