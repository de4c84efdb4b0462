package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"fraudwatch/database"
)

// handleGetWebhooks lists all registered alert webhooks
func (s *Server) handleGetWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := s.repo.ListWebhooks()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load webhooks", err)
		return
	}

	respondJSON(w, map[string]interface{}{
		"webhooks": hooks,
		"count":    len(hooks),
	})
}

// handleCreateWebhook registers a new alert webhook
func (s *Server) handleCreateWebhook(w http.ResponseWriter, r *http.Request) {
	var hook database.AnomalyWebhook
	if err := json.NewDecoder(r.Body).Decode(&hook); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := s.repo.CreateWebhook(&hook); err != nil {
		var validation *database.ValidationError
		if errors.As(err, &validation) {
			respondWithError(w, http.StatusBadRequest, validation.Error(), nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to create webhook", err)
		return
	}

	s.webhookMgr.InvalidateCache()
	respondJSON(w, hook)
}

// handleUpdateWebhook updates an existing webhook registration
func (s *Server) handleUpdateWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid webhook id", err)
		return
	}

	var hook database.AnomalyWebhook
	if err := json.NewDecoder(r.Body).Decode(&hook); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	hook.ID = id

	if err := s.repo.UpdateWebhook(&hook); err != nil {
		var notFound *database.NotFoundError
		if errors.As(err, &notFound) {
			respondWithError(w, http.StatusNotFound, "webhook not found", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to update webhook", err)
		return
	}

	s.webhookMgr.InvalidateCache()
	respondJSON(w, hook)
}

// handleDeleteWebhook removes a webhook registration
func (s *Server) handleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid webhook id", err)
		return
	}

	if err := s.repo.DeleteWebhook(id); err != nil {
		var notFound *database.NotFoundError
		if errors.As(err, &notFound) {
			respondWithError(w, http.StatusNotFound, "webhook not found", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to delete webhook", err)
		return
	}

	s.webhookMgr.InvalidateCache()
	respondJSON(w, map[string]string{"status": "deleted"})
}
