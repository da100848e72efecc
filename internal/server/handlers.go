package server

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/stockhunter/internal/domain"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "stockhunter",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeDomainError maps a core error to an HTTP status per spec.md §7 and
// writes it as an error response.
func (s *Server) writeDomainError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindAuthFailure:
		status = http.StatusUnauthorized
	case domain.KindNotInitialised:
		status = http.StatusBadRequest
	case domain.KindAlreadyInitialised:
		status = http.StatusConflict
	case domain.KindInvalidInput:
		status = http.StatusBadRequest
	case domain.KindStoreFailure:
		status = http.StatusInternalServerError
	case domain.KindTransport, domain.KindBrokerError:
		status = http.StatusBadGateway
	}
	s.log.Error().Err(err).Str("op", op).Int("status", status).Msg("request failed")
	s.writeError(w, status, err.Error())
}
