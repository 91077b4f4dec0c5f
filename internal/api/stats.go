package api

import (
	"net/http"
)

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.writeEngineError(w, "get poem stats", err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}
