package coordinator

import (
	"context"

	"github.com/vytor/lingoflash/internal/errors"
	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/models"
)

func (c *Coordinator) GetLevels(ctx context.Context) (Result[models.Level], error) {
	return FetchWithCache(ctx, c, models.QueryKeyLevels(),
		c.store.ListLevels,
		c.remote.ListLevels,
		c.store.PutLevels,
	)
}

func (c *Coordinator) GetCategories(ctx context.Context, levelID string) (Result[models.Category], error) {
	return FetchWithCache(ctx, c, models.QueryKeyCategories(levelID),
		func(ctx context.Context) ([]models.Category, error) { return c.store.CategoriesByLevel(ctx, levelID) },
		func(ctx context.Context) ([]models.Category, error) { return c.remote.ListCategories(ctx, levelID) },
		c.store.PutCategories,
	)
}

// GetFlashcards lists a level's cards, optionally narrowed to the category
// with categorySlug and to mode. An unknown slug yields no cards.
func (c *Coordinator) GetFlashcards(ctx context.Context, levelID, categorySlug string, mode models.Mode) (Result[models.Flashcard], error) {
	filter := models.FlashcardFilter{LevelID: levelID, Mode: mode}
	source := SourceCache

	if categorySlug != "" {
		cats, err := c.GetCategories(ctx, levelID)
		if err != nil {
			return Result[models.Flashcard]{}, err
		}
		category, ok := findBySlug(cats.Data, categorySlug)
		if !ok {
			logger.FromContext(ctx).WithPrefix("coordinator").Debug("unknown category slug: level_id=%s, slug=%s", levelID, categorySlug)
			return Result[models.Flashcard]{Data: []models.Flashcard{}, Source: cats.Source, Err: cats.Err}, nil
		}
		filter.CategoryID = category.ID
		source = cats.Source
	}

	res, err := FetchWithCache(ctx, c, models.QueryKeyFlashcards(levelID, categorySlug, mode),
		func(ctx context.Context) ([]models.Flashcard, error) { return c.store.FlashcardsBy(ctx, filter) },
		func(ctx context.Context) ([]models.Flashcard, error) { return c.remote.ListFlashcards(ctx, filter) },
		c.store.PutFlashcards,
	)
	if err != nil {
		return res, err
	}
	if source == SourceStale {
		res.Source = worse(res.Source, source)
	}
	return res, nil
}

// GetLevelContent resolves a level into its flat cards or its categories.
func (c *Coordinator) GetLevelContent(ctx context.Context, levelID string) (models.LevelContent, Source, error) {
	levels, err := c.GetLevels(ctx)
	if err != nil {
		return models.LevelContent{}, "", err
	}
	level, ok := findLevel(levels.Data, levelID)
	if !ok {
		return models.LevelContent{}, "", errors.NewNotFoundError("level", levelID)
	}

	if level.HasCategories {
		cats, err := c.GetCategories(ctx, levelID)
		if err != nil {
			return models.LevelContent{}, "", err
		}
		return models.NewLevelContent(level, nil, cats.Data), worse(levels.Source, cats.Source), nil
	}

	cards, err := c.GetFlashcards(ctx, levelID, "", "")
	if err != nil {
		return models.LevelContent{}, "", err
	}
	return models.NewLevelContent(level, cards.Data, nil), worse(levels.Source, cards.Source), nil
}

func findBySlug(categories []models.Category, slug string) (models.Category, bool) {
	for _, cat := range categories {
		if cat.Slug == slug {
			return cat, true
		}
	}
	return models.Category{}, false
}

func findLevel(levels []models.Level, id string) (models.Level, bool) {
	for _, l := range levels {
		if l.ID == id {
			return l, true
		}
	}
	return models.Level{}, false
}
