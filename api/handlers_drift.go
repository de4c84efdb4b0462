package api

import (
	"context"
	"net/http"
	"time"

	"fraudwatch/cache"
	"fraudwatch/ml"
)

// handleGetDrift computes the four-signal drift report over the recent
// transaction window. The background refresher keeps a cached copy in
// Redis; on a cache miss the report is computed inline.
func (s *Server) handleGetDrift(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		var cached ml.DriftReport
		if err := s.redis.Get(r.Context(), cache.KeyDriftReport, &cached); err == nil {
			respondJSON(w, cached)
			return
		}
	}

	minWindow, maxWindow := 1, 1000
	window := getIntParam(r, "window", s.driftWindow, &minWindow, &maxWindow)

	records, err := s.repo.RecentRecords(window)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load recent transactions", err)
		return
	}

	report, err := s.engine.ComputeDrift(records)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "drift computation failed", err)
		return
	}

	if s.redis != nil {
		_ = s.redis.Set(context.Background(), cache.KeyDriftReport, report, 10*time.Second)
	}

	respondJSON(w, report)
}
