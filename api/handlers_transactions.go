package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"fraudwatch/database"
)

// handleGetTransactions returns the latest scored transactions
func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	minLimit, maxLimit := 1, 500
	limit := getIntParam(r, "limit", 100, &minLimit, &maxLimit)

	txs, err := s.repo.GetRecentTransactions(limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load transactions", err)
		return
	}

	respondJSON(w, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// handleGetTransaction returns one transaction by id
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid transaction id", err)
		return
	}

	tx, err := s.repo.GetTransactionByID(id)
	if err != nil {
		var notFound *database.NotFoundError
		if errors.As(err, &notFound) {
			respondWithError(w, http.StatusNotFound, "transaction not found", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to load transaction", err)
		return
	}

	respondJSON(w, tx)
}

// handleGetExplanation returns the stored feature contributions for a
// transaction's verdict
func (s *Server) handleGetExplanation(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid transaction id", err)
		return
	}

	tx, err := s.repo.GetTransactionByID(id)
	if err != nil {
		var notFound *database.NotFoundError
		if errors.As(err, &notFound) {
			respondWithError(w, http.StatusNotFound, "transaction not found", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to load transaction", err)
		return
	}

	explanation := map[string]float64{}
	if tx.Explanation != "" {
		if err := json.Unmarshal([]byte(tx.Explanation), &explanation); err != nil {
			respondWithError(w, http.StatusInternalServerError, "stored explanation is corrupt", err)
			return
		}
	}

	respondJSON(w, map[string]interface{}{
		"transaction_id": tx.ID,
		"is_anomaly":     tx.IsAnomaly,
		"explanation":    explanation,
	})
}
