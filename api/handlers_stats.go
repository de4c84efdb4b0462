package api

import (
	"context"
	"net/http"
	"time"

	"fraudwatch/cache"
	"fraudwatch/database"
)

// handleGetStats returns aggregate transaction statistics, Redis-cached
// for a few seconds to keep dashboard polling cheap
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		var cached database.Stats
		if err := s.redis.Get(r.Context(), cache.KeyStats, &cached); err == nil {
			respondJSON(w, cached)
			return
		}
	}

	stats, err := s.repo.GetStats()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to compute stats", err)
		return
	}

	if s.redis != nil {
		_ = s.redis.Set(context.Background(), cache.KeyStats, stats, 5*time.Second)
	}

	respondJSON(w, stats)
}

// handleGetMetrics returns the confusion matrix of predictions against
// ground-truth labels
func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.repo.GetModelMetrics()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to compute metrics", err)
		return
	}

	respondJSON(w, metrics)
}
