package api

import "net/http"

// handleStartEmulation starts the synthetic traffic generator
func (s *Server) handleStartEmulation(w http.ResponseWriter, r *http.Request) {
	if s.emulator == nil {
		respondWithError(w, http.StatusServiceUnavailable, "emulator not configured", nil)
		return
	}

	started := s.emulator.StartEmulation()
	respondJSON(w, map[string]interface{}{
		"running": true,
		"started": started,
	})
}

// handleStopEmulation stops the synthetic traffic generator
func (s *Server) handleStopEmulation(w http.ResponseWriter, r *http.Request) {
	if s.emulator == nil {
		respondWithError(w, http.StatusServiceUnavailable, "emulator not configured", nil)
		return
	}

	stopped := s.emulator.StopEmulation()
	respondJSON(w, map[string]interface{}{
		"running": false,
		"stopped": stopped,
	})
}
