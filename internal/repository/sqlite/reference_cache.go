package sqlite

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/models"
)

const insertIfAbsent = "ON CONFLICT(id) DO NOTHING"

func (s *cacheStore) PutLevels(ctx context.Context, levels []models.Level) error {
	log := logger.FromContext(ctx).WithPrefix("cache_store")
	log.Debug("caching levels: count=%d", len(levels))
	if len(levels) == 0 {
		return nil
	}

	err := tx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, c := range chunks(len(levels)) {
			q := sqlBuilder.Insert("levels").Columns("id", "name", "position", "has_categories")
			for _, l := range levels[c[0]:c[1]] {
				q = q.Values(l.ID, l.Name, l.Position, l.HasCategories)
			}
			if _, err := execBuilder(ctx, tx, q.Suffix(insertIfAbsent)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to cache levels: %v", err)
		return storageErr("put levels", err)
	}
	return nil
}

func (s *cacheStore) PutCategories(ctx context.Context, categories []models.Category) error {
	log := logger.FromContext(ctx).WithPrefix("cache_store")
	log.Debug("caching categories: count=%d", len(categories))
	if len(categories) == 0 {
		return nil
	}

	err := tx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, c := range chunks(len(categories)) {
			q := sqlBuilder.Insert("categories").Columns("id", "level_id", "name", "slug", "position")
			for _, cat := range categories[c[0]:c[1]] {
				q = q.Values(cat.ID, cat.LevelID, cat.Name, cat.Slug, cat.Position)
			}
			if _, err := execBuilder(ctx, tx, q.Suffix(insertIfAbsent)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to cache categories: %v", err)
		return storageErr("put categories", err)
	}
	return nil
}

func (s *cacheStore) PutFlashcards(ctx context.Context, cards []models.Flashcard) error {
	log := logger.FromContext(ctx).WithPrefix("cache_store")
	log.Debug("caching flashcards: count=%d", len(cards))
	if len(cards) == 0 {
		return nil
	}

	err := tx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, c := range chunks(len(cards)) {
			q := sqlBuilder.Insert("flashcards").
				Columns("id", "level_id", "category_id", "mode", "source_text", "target_text", "position")
			for _, f := range cards[c[0]:c[1]] {
				q = q.Values(f.ID, f.LevelID, f.CategoryID, string(f.Mode), f.SourceText, f.TargetText, f.Position)
			}
			if _, err := execBuilder(ctx, tx, q.Suffix(insertIfAbsent)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to cache flashcards: %v", err)
		return storageErr("put flashcards", err)
	}
	return nil
}

func (s *cacheStore) ListLevels(ctx context.Context) ([]models.Level, error) {
	log := logger.FromContext(ctx).WithPrefix("cache_store")

	levels := []models.Level{}
	q := sqlBuilder.Select("id", "name", "position", "has_categories").From("levels").OrderBy("seq")
	if err := selectBuilder(ctx, s.db, &levels, q); err != nil {
		log.Error("failed to list levels: %v", err)
		return nil, storageErr("list levels", err)
	}
	log.Debug("found %d cached levels", len(levels))
	return levels, nil
}

func (s *cacheStore) CategoriesByLevel(ctx context.Context, levelID string) ([]models.Category, error) {
	log := logger.FromContext(ctx).WithPrefix("cache_store")

	categories := []models.Category{}
	q := sqlBuilder.Select("id", "level_id", "name", "slug", "position").
		From("categories").
		Where(squirrel.Eq{"level_id": levelID}).
		OrderBy("seq")
	if err := selectBuilder(ctx, s.db, &categories, q); err != nil {
		log.Error("failed to list categories: %v", err)
		return nil, storageErr("list categories", err)
	}
	log.Debug("found %d cached categories: level_id=%s", len(categories), levelID)
	return categories, nil
}

func (s *cacheStore) FlashcardsBy(ctx context.Context, filter models.FlashcardFilter) ([]models.Flashcard, error) {
	log := logger.FromContext(ctx).WithPrefix("cache_store")

	q := sqlBuilder.Select("id", "level_id", "category_id", "mode", "source_text", "target_text", "position").
		From("flashcards")
	if filter.LevelID != "" {
		q = q.Where(squirrel.Eq{"level_id": filter.LevelID})
	}
	if filter.CategoryID != "" {
		q = q.Where(squirrel.Eq{"category_id": filter.CategoryID})
	}
	if filter.Mode != "" {
		q = q.Where(squirrel.Eq{"mode": string(filter.Mode)})
	}

	cards := []models.Flashcard{}
	if err := selectBuilder(ctx, s.db, &cards, q.OrderBy("seq")); err != nil {
		log.Error("failed to list flashcards: %v", err)
		return nil, storageErr("list flashcards", err)
	}
	log.Debug("found %d cached flashcards: level_id=%s, category_id=%s, mode=%s",
		len(cards), filter.LevelID, filter.CategoryID, filter.Mode)
	return cards, nil
}
