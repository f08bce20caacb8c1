package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/lingoflash/internal/models"
	"github.com/vytor/lingoflash/internal/services"
)

type levelRequest struct {
	Name          string `json:"name"`
	Position      int    `json:"position"`
	HasCategories bool   `json:"has_categories"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

type createFlashcardsRequest struct {
	Cards []services.NewFlashcard `json:"cards"`
}

type deleteFlashcardsRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleSaveLevel(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	level, err := s.Content.SaveLevel(r.Context(), models.Level{
		ID:            chi.URLParam(r, "levelID"),
		Name:          req.Name,
		Position:      req.Position,
		HasCategories: req.HasCategories,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"data": level})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	category, err := s.Content.CreateCategory(r.Context(), chi.URLParam(r, "levelID"), req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{"data": category})
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	category, err := s.Content.RenameCategory(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"data": category})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.Content.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateFlashcards(w http.ResponseWriter, r *http.Request) {
	var req createFlashcardsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	cards, err := s.Content.CreateFlashcards(r.Context(), chi.URLParam(r, "levelID"), req.Cards)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{"data": cards})
}

func (s *Server) handleUpdateFlashcard(w http.ResponseWriter, r *http.Request) {
	var patch services.FlashcardPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		handleError(w, r, err)
		return
	}
	card, err := s.Content.UpdateFlashcard(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"data": card})
}

func (s *Server) handleDeleteFlashcards(w http.ResponseWriter, r *http.Request) {
	var req deleteFlashcardsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Content.DeleteFlashcards(r.Context(), req.IDs); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
