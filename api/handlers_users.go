package api

import "net/http"

// handleGetUsers returns all account holders
func (s *Server) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.repo.ListUsers()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load users", err)
		return
	}

	respondJSON(w, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// handleGetUserTransactions returns one user's transaction history
func (s *Server) handleGetUserTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid user id", err)
		return
	}

	minLimit, maxLimit := 1, 500
	limit := getIntParam(r, "limit", 100, &minLimit, &maxLimit)

	txs, err := s.repo.GetTransactionsByUser(id, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load transactions", err)
		return
	}

	respondJSON(w, map[string]interface{}{
		"user_id":      id,
		"transactions": txs,
		"count":        len(txs),
	})
}
