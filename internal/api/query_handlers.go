package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/lingoflash/internal/errors"
	"github.com/vytor/lingoflash/internal/models"
)

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	res, err := s.Coordinator.GetLevels(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeResult(w, r, res)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	res, err := s.Coordinator.GetCategories(r.Context(), chi.URLParam(r, "levelID"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeResult(w, r, res)
}

func (s *Server) handleLevelContent(w http.ResponseWriter, r *http.Request) {
	content, source, err := s.Coordinator.GetLevelContent(r.Context(), chi.URLParam(r, "levelID"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set(cacheSourceHeader, string(source))
	writeJSON(w, r, http.StatusOK, map[string]any{"data": content})
}

func (s *Server) handleFlashcards(w http.ResponseWriter, r *http.Request) {
	mode, err := models.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		handleError(w, r, errors.NewValidationError("mode", err.Error()))
		return
	}
	res, err := s.Coordinator.GetFlashcards(r.Context(), chi.URLParam(r, "levelID"), r.URL.Query().Get("category"), mode)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeResult(w, r, res)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Coordinator.CacheStats(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"online": s.Coordinator.Online(),
		"ttl":    s.Coordinator.TTL().String(),
		"counts": stats,
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		handleError(w, r, errors.NewValidationError("kind", err.Error()))
		return
	}
	if err := s.Coordinator.ClearCache(r.Context(), kind); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
