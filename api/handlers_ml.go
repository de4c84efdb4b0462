package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"fraudwatch/cache"
	"fraudwatch/ml"
)

// handleMLStatus reports the registered models, the primary model and
// the training snapshot currently serving predictions
func (s *Server) handleMLStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()

	status := map[string]interface{}{
		"models":        s.engine.Models(),
		"primary_model": s.engine.Primary(),
		"fitted":        s.engine.Fitted(),
	}
	if snap != nil {
		status["training"] = map[string]interface{}{
			"num_samples":  snap.NumSamples,
			"fitted_at":    snap.FittedAt,
			"bootstrap":    snap.Bootstrap,
			"anomaly_rate": snap.AnomalyRate,
			"amount_mean":  snap.AmountMean(),
			"amount_std":   snap.AmountStd(),
		}
	}

	respondJSON(w, status)
}

// handleRetrain refits every registered model on the recent transaction
// history and swaps the serving snapshot
func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	minWindow, maxWindow := 1, 10000
	window := getIntParam(r, "window", 1000, &minWindow, &maxWindow)

	records, err := s.repo.RecentRecords(window)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load training data", err)
		return
	}

	if err := s.engine.Fit(records); err != nil {
		if errors.Is(err, ml.ErrInsufficientData) {
			respondWithError(w, http.StatusBadRequest, "not enough transactions to retrain", err)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "retrain failed", err)
		return
	}

	// Cached reports describe the old snapshot
	if s.redis != nil {
		_ = s.redis.Delete(context.Background(), cache.KeyDriftReport)
	}

	snap := s.engine.Snapshot()
	respondJSON(w, map[string]interface{}{
		"status":       "retrained",
		"num_samples":  snap.NumSamples,
		"anomaly_rate": snap.AnomalyRate,
		"fitted_at":    snap.FittedAt,
	})
}

// handleSelectModel switches the primary model used for verdicts
func (s *Server) handleSelectModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := s.engine.SetPrimary(req.Model); err != nil {
		if errors.Is(err, ml.ErrUnknownModel) {
			respondWithError(w, http.StatusNotFound, "unknown model", err)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "model selection failed", err)
		return
	}

	log.Printf("🔀 Primary model switched to %s", req.Model)
	respondJSON(w, map[string]interface{}{
		"status":        "ok",
		"primary_model": req.Model,
	})
}
