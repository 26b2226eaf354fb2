package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/pipeline"
	"github.com/wonny/fip/internal/strategy"
	"github.com/wonny/fip/pkg/logger"
)

// PipelineHandler handles pipeline execution endpoints.
type PipelineHandler struct {
	executor *pipeline.Executor
	registry *strategy.Registry
	logger   *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler.
func NewPipelineHandler(executor *pipeline.Executor, registry *strategy.Registry, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		executor: executor,
		registry: registry,
		logger:   log,
	}
}

// RunRequest is the POST /api/pipeline/run body.
type RunRequest struct {
	Config pipeline.Config `json:"config"`
	AsOf   string          `json:"as_of,omitempty"`
}

// Run executes a pipeline synchronously and returns the full result.
// POST /api/pipeline/run
func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if req.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			respondError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	result, err := h.executor.Run(r.Context(), &req.Config, asOf)
	if err != nil {
		var cfgErr *contracts.PipelineConfigError
		if errors.As(err, &cfgErr) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"success": false,
				"error":   cfgErr.Error(),
				"result":  result,
			})
			return
		}

		h.logger.WithError(err).Error("Pipeline run failed")
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
			"result":  result,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

// StrategyInfo describes one available strategy.
type StrategyInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListStrategies returns the available strategies.
// GET /api/strategies
func (h *PipelineHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	infos := make([]StrategyInfo, 0)
	for _, id := range h.registry.IDs() {
		s, err := h.registry.Get(id)
		if err != nil {
			continue
		}
		infos = append(infos, StrategyInfo{ID: s.ID(), Name: s.Name()})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"count":      len(infos),
			"strategies": infos,
		},
	})
}
