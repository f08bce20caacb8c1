package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/lingoflash/internal/errors"
)

type rateRequest struct {
	Quality *int `json:"quality"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFromContext(r.Context())
	res, err := s.Coordinator.GetProgress(r.Context(), id.UserID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeResult(w, r, res)
}

func (s *Server) handleDueCards(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFromContext(r.Context())
	res, err := s.Coordinator.DueCards(r.Context(), id.UserID, time.Now())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeResult(w, r, res)
}

func (s *Server) handleRateCard(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFromContext(r.Context())

	var req rateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.Quality == nil {
		handleError(w, r, errors.NewValidationError("quality", "is required"))
		return
	}

	progress, err := s.Coordinator.RateCard(r.Context(), id.UserID, chi.URLParam(r, "id"), *req.Quality)
	if err != nil {
		handleError(w, r, err)
		return
	}
	status := http.StatusOK
	if progress.QueueID != nil {
		status = http.StatusAccepted
	}
	writeJSON(w, r, status, map[string]any{"data": progress})
}

// handleSync drains the pending queue in the request. Pass ?async=1 to hand
// it to the background worker instead.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("async") != "" && s.Jobs != nil {
		if err := s.Jobs.EnqueueSync(); err != nil {
			handleError(w, r, errors.NewInternalError(err))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	report, err := s.Coordinator.SyncPending(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"data": report})
}
