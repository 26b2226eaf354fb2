package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/fip/internal/api/handlers"
	"github.com/wonny/fip/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(pipelineHandler *handlers.PipelineHandler, rankHandler *handlers.RankHandler, scoreHandler *handlers.ScoreHandler, wsHandler *handlers.WSHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Pipeline progress stream
	r.HandleFunc("/ws/pipeline", wsHandler.Stream)

	api := r.PathPrefix("/api").Subrouter()

	// Pipeline endpoints
	api.HandleFunc("/pipeline/run", pipelineHandler.Run).Methods("POST")
	api.HandleFunc("/strategies", pipelineHandler.ListStrategies).Methods("GET")

	// Single-strategy ranking
	api.HandleFunc("/rank", rankHandler.GetRank).Methods("GET")

	// Stored score endpoints
	api.HandleFunc("/scores", scoreHandler.GetTopScores).Methods("GET")
	api.HandleFunc("/scores/{symbol}", scoreHandler.GetHistory).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "fip-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
