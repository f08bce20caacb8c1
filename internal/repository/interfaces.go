package repository

import (
	"context"
	"time"

	"github.com/vytor/lingoflash/internal/models"
)

// ReferenceCache stores levels, categories and flashcards. Writes are
// insert-if-absent: an id already cached keeps its original values and order.
type ReferenceCache interface {
	PutLevels(ctx context.Context, levels []models.Level) error
	PutCategories(ctx context.Context, categories []models.Category) error
	PutFlashcards(ctx context.Context, cards []models.Flashcard) error
	ListLevels(ctx context.Context) ([]models.Level, error)
	CategoriesByLevel(ctx context.Context, levelID string) ([]models.Category, error)
	FlashcardsBy(ctx context.Context, filter models.FlashcardFilter) ([]models.Flashcard, error)
}

// ProgressCache stores per-user review progress with upsert semantics.
type ProgressCache interface {
	UpsertProgress(ctx context.Context, p models.ReviewProgress) error
	GetProgress(ctx context.Context, userID, flashcardID string) (*models.ReviewProgress, error)
	ProgressByUser(ctx context.Context, userID string) ([]models.ReviewProgress, error)
	ReplaceProgress(ctx context.Context, userID string, records []models.ReviewProgress) error
}

// FreshnessStore records when each query key was last fetched from the remote.
type FreshnessStore interface {
	GetFreshness(ctx context.Context, key string) (*models.CacheFreshness, error)
	SetFreshness(ctx context.Context, key string, fetchedAt time.Time) error
	DeleteFreshness(ctx context.Context, prefix string) error
}

// MutationQueue holds progress writes made while offline, in enqueue order.
type MutationQueue interface {
	EnqueueMutation(ctx context.Context, payload models.ProgressUpsert, enqueuedAt time.Time) (string, error)
	ListPendingMutations(ctx context.Context) ([]models.PendingMutation, error)
	MarkMutationSynced(ctx context.Context, id string, syncedAt time.Time) error
	PurgeSynced(ctx context.Context) (int64, error)
}

// CacheStore is the whole local cache.
type CacheStore interface {
	ReferenceCache
	ProgressCache
	FreshnessStore
	MutationQueue

	Clear(ctx context.Context, kind models.EntityKind) error
	Stats(ctx context.Context) (map[models.EntityKind]int, error)
}
