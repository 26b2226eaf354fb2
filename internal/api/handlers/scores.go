package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/pkg/logger"
)

const (
	defaultStoredLimit  = 50
	defaultHistoryLimit = 30
)

// ScoreHandler serves stored momentum scores.
type ScoreHandler struct {
	repo   contracts.ScoreRepository
	logger *logger.Logger
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(repo contracts.ScoreRepository, log *logger.Logger) *ScoreHandler {
	return &ScoreHandler{
		repo:   repo,
		logger: log,
	}
}

// GetTopScores returns the top stored scores for a calculation date.
// GET /api/scores?date=YYYY-MM-DD&limit=50
func (h *ScoreHandler) GetTopScores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, ok := h.resolveDate(w, r)
	if !ok {
		return
	}

	limit, ok := queryInt(w, r.URL.Query().Get("limit"), defaultStoredLimit, "limit")
	if !ok {
		return
	}

	scores, err := h.repo.TopByComposite(ctx, date, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query stored scores")
		respondError(w, http.StatusInternalServerError, "Query error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"date":   date.Format("2006-01-02"),
			"count":  len(scores),
			"scores": scores,
		},
	})
}

// GetHistory returns stored scores for one symbol, newest first.
// GET /api/scores/{symbol}?limit=30
func (h *ScoreHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := mux.Vars(r)["symbol"]

	limit, ok := queryInt(w, r.URL.Query().Get("limit"), defaultHistoryLimit, "limit")
	if !ok {
		return
	}

	history, err := h.repo.History(ctx, symbol, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query score history")
		respondError(w, http.StatusInternalServerError, "Query error")
		return
	}
	if len(history) == 0 {
		respondError(w, http.StatusNotFound, "No scores for symbol "+symbol)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"symbol":  symbol,
			"count":   len(history),
			"history": history,
		},
	})
}

// resolveDate picks the requested date or falls back to the latest stored one.
func (h *ScoreHandler) resolveDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return time.Time{}, false
		}
		return date, true
	}

	latest, found, err := h.repo.LatestDate(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve latest calculation date")
		respondError(w, http.StatusInternalServerError, "Query error")
		return time.Time{}, false
	}
	if !found {
		respondError(w, http.StatusNotFound, "No scores stored yet")
		return time.Time{}, false
	}
	return latest, true
}
