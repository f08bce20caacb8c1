package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/levels", s.handleLevels)
		r.Get("/levels/{levelID}/categories", s.handleCategories)
		r.Get("/levels/{levelID}/content", s.handleLevelContent)
		r.Get("/levels/{levelID}/flashcards", s.handleFlashcards)

		r.Get("/progress", s.handleProgress)
		r.Get("/progress/due", s.handleDueCards)
		r.Post("/flashcards/{id}/rate", s.handleRateCard)

		r.Post("/sync", s.handleSync)
		r.Get("/cache", s.handleCacheStats)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			// The cache and its queue are shared by every user of this server.
			r.Delete("/cache/{kind}", s.handleClearCache)
			r.Put("/levels/{levelID}", s.handleSaveLevel)
			r.Post("/levels/{levelID}/categories", s.handleCreateCategory)
			r.Patch("/categories/{id}", s.handleRenameCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)
			r.Post("/levels/{levelID}/flashcards", s.handleCreateFlashcards)
			r.Patch("/flashcards/{id}", s.handleUpdateFlashcard)
			r.Delete("/flashcards", s.handleDeleteFlashcards)
		})
	})
	return r
}
