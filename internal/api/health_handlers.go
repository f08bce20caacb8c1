package api

import (
	"net/http"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status": "ok",
		"online": s.Coordinator.Online(),
	})
}

// handleReady returns 503 while the local cache database is unusable. An
// unreachable remote does not make the service unready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.CacheDB != nil {
		if err := s.CacheDB.PingContext(r.Context()); err != nil {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
				"error":  "cache database unavailable",
			})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status": "ready",
		"online": s.Coordinator.Online(),
	})
}
