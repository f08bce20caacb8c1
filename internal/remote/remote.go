// Package remote defines the authoritative data source the cache sits in front of.
package remote

import (
	"context"

	"github.com/vytor/lingoflash/internal/models"
)

// Reader serves the practice side. Every listing is ordered by position
// (progress by flashcard id). Failures wrap errors.ErrTransientFetch.
type Reader interface {
	ListLevels(ctx context.Context) ([]models.Level, error)
	ListCategories(ctx context.Context, levelID string) ([]models.Category, error)
	ListFlashcards(ctx context.Context, filter models.FlashcardFilter) ([]models.Flashcard, error)
	ListProgress(ctx context.Context, userID string) ([]models.ReviewProgress, error)
}

// ProgressWriter upserts one progress record by (user, flashcard) and returns
// the record as stored by the server.
type ProgressWriter interface {
	UpsertProgress(ctx context.Context, u models.ProgressUpsert) (models.ReviewProgress, error)
}

// ContentWriter is the admin surface. Lookups return nil, nil when absent.
type ContentWriter interface {
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	GetFlashcard(ctx context.Context, id string) (*models.Flashcard, error)
	SaveLevel(ctx context.Context, level models.Level) error
	CreateCategory(ctx context.Context, c models.Category) error
	UpdateCategory(ctx context.Context, c models.Category) error
	DeleteCategory(ctx context.Context, id string) error
	CreateFlashcards(ctx context.Context, cards []models.Flashcard) error
	UpdateFlashcard(ctx context.Context, card models.Flashcard) error
	DeleteFlashcards(ctx context.Context, ids []string) error
}

// DataSource is everything the service needs from the remote store.
type DataSource interface {
	Reader
	ProgressWriter
	ContentWriter

	// Ping checks that the remote answers; used by the reachability probe.
	Ping(ctx context.Context) error
}
