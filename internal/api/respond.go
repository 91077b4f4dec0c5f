package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/seantiz/skinnypoem/internal/engine"
)

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeEngineError maps an engine error to a status and writes it. Errors
// without a mapping are logged and reported as 500.
func (s *Server) writeEngineError(w http.ResponseWriter, op string, err error) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(op, "error", err)
	}
	s.writeError(w, status, message)
}

// classify returns the HTTP status and user-facing message for err.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrNotLoggedIn):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, engine.ErrUnknownOption),
		errors.Is(err, engine.ErrInvalidVote),
		errors.Is(err, engine.ErrInvalidDate):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, engine.ErrNoPoem):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, engine.ErrWrongPhase),
		errors.Is(err, engine.ErrAlreadyVoted),
		errors.Is(err, engine.ErrNotGenerationPhase),
		errors.Is(err, engine.ErrMissingWinners),
		errors.Is(err, engine.ErrCannotSimulate):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}
