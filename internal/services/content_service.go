package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vytor/lingoflash/internal/errors"
	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/models"
	"github.com/vytor/lingoflash/internal/remote"
	"github.com/vytor/lingoflash/internal/repository"
)

// NewFlashcard is the input for one card to create. ID is generated when empty.
type NewFlashcard struct {
	ID         string      `json:"id,omitempty"`
	CategoryID *string     `json:"category_id,omitempty"`
	Mode       models.Mode `json:"mode"`
	SourceText string      `json:"source_text"`
	TargetText string      `json:"target_text"`
}

// FlashcardPatch lists the fields of a card to change; nil fields are kept.
type FlashcardPatch struct {
	CategoryID *string      `json:"category_id,omitempty"`
	Mode       *models.Mode `json:"mode,omitempty"`
	SourceText *string      `json:"source_text,omitempty"`
	TargetText *string      `json:"target_text,omitempty"`
}

// ContentService handles admin edits of levels, categories and flashcards.
// Writes go to the remote source; the matching cache kinds are cleared after
// each successful write.
type ContentService interface {
	SaveLevel(ctx context.Context, level models.Level) (models.Level, error)
	CreateCategory(ctx context.Context, levelID, name string) (models.Category, error)
	FindOrCreateCategory(ctx context.Context, levelID, name string) (models.Category, error)
	RenameCategory(ctx context.Context, id, name string) (models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	CreateFlashcards(ctx context.Context, levelID string, cards []NewFlashcard) ([]models.Flashcard, error)
	UpdateFlashcard(ctx context.Context, id string, patch FlashcardPatch) (models.Flashcard, error)
	DeleteFlashcards(ctx context.Context, ids []string) error
}

type contentService struct {
	remote remote.DataSource
	cache  repository.CacheStore
}

// NewContentService creates a new ContentService
func NewContentService(src remote.DataSource, cache repository.CacheStore) ContentService {
	return &contentService{remote: src, cache: cache}
}

func (s *contentService) SaveLevel(ctx context.Context, level models.Level) (models.Level, error) {
	log := logger.FromContext(ctx).WithPrefix("content")
	log.Debug("saving level: id=%s", level.ID)

	level.ID = strings.TrimSpace(level.ID)
	level.Name = strings.TrimSpace(level.Name)
	if level.ID == "" {
		return models.Level{}, errors.NewValidationError("id", "cannot be empty")
	}
	if level.Name == "" {
		return models.Level{}, errors.NewValidationError("name", "cannot be empty")
	}
	if level.Position < 0 {
		return models.Level{}, errors.NewValidationError("position", "cannot be negative")
	}

	if err := s.remote.SaveLevel(ctx, level); err != nil {
		log.Error("failed to save level: %v", err)
		return models.Level{}, err
	}
	s.invalidate(ctx, models.KindLevels)
	log.Info("level saved: id=%s", level.ID)
	return level, nil
}

func (s *contentService) CreateCategory(ctx context.Context, levelID, name string) (models.Category, error) {
	log := logger.FromContext(ctx).WithPrefix("content")
	log.Debug("creating category: level_id=%s, name=%s", levelID, name)

	level, err := s.level(ctx, levelID)
	if err != nil {
		return models.Category{}, err
	}
	if !level.HasCategories {
		return models.Category{}, errors.NewValidationError("level_id", fmt.Sprintf("level %s does not use categories", levelID))
	}

	name = strings.TrimSpace(name)
	slug := models.Slugify(name)
	if slug == "" {
		return models.Category{}, errors.NewValidationError("name", "must contain letters or digits")
	}

	existing, err := s.remote.ListCategories(ctx, levelID)
	if err != nil {
		log.Error("failed to list categories: %v", err)
		return models.Category{}, err
	}
	position := 1
	for _, c := range existing {
		if c.Slug == slug {
			return models.Category{}, errors.NewValidationError("name", fmt.Sprintf("category %q already exists in level %s", slug, levelID))
		}
		if c.Position >= position {
			position = c.Position + 1
		}
	}

	category := models.Category{
		ID:       uuid.NewString(),
		LevelID:  levelID,
		Name:     name,
		Slug:     slug,
		Position: position,
	}
	if err := s.remote.CreateCategory(ctx, category); err != nil {
		log.Error("failed to create category: %v", err)
		return models.Category{}, err
	}
	s.invalidate(ctx, models.KindCategories)
	log.Info("category created: id=%s, slug=%s", category.ID, category.Slug)
	return category, nil
}

// FindOrCreateCategory returns the level's category whose slug matches name,
// creating it when there is none.
func (s *contentService) FindOrCreateCategory(ctx context.Context, levelID, name string) (models.Category, error) {
	slug := models.Slugify(name)
	existing, err := s.remote.ListCategories(ctx, levelID)
	if err != nil {
		return models.Category{}, err
	}
	for _, c := range existing {
		if c.Slug == slug {
			return c, nil
		}
	}
	return s.CreateCategory(ctx, levelID, name)
}

func (s *contentService) RenameCategory(ctx context.Context, id, name string) (models.Category, error) {
	log := logger.FromContext(ctx).WithPrefix("content")
	log.Debug("renaming category: id=%s, name=%s", id, name)

	category, err := s.category(ctx, id)
	if err != nil {
		return models.Category{}, err
	}

	name = strings.TrimSpace(name)
	slug := models.Slugify(name)
	if slug == "" {
		return models.Category{}, errors.NewValidationError("name", "must contain letters or digits")
	}
	siblings, err := s.remote.ListCategories(ctx, category.LevelID)
	if err != nil {
		return models.Category{}, err
	}
	for _, c := range siblings {
		if c.ID != id && c.Slug == slug {
			return models.Category{}, errors.NewValidationError("name", fmt.Sprintf("category %q already exists in level %s", slug, category.LevelID))
		}
	}

	category.Name = name
	category.Slug = slug
	if err := s.remote.UpdateCategory(ctx, category); err != nil {
		log.Error("failed to update category: %v", err)
		return models.Category{}, err
	}
	// Flashcard queries are keyed by slug.
	s.invalidate(ctx, models.KindCategories, models.KindFlashcards)
	return category, nil
}

func (s *contentService) DeleteCategory(ctx context.Context, id string) error {
	log := logger.FromContext(ctx).WithPrefix("content")
	log.Debug("deleting category: id=%s", id)

	if _, err := s.category(ctx, id); err != nil {
		return err
	}
	if err := s.remote.DeleteCategory(ctx, id); err != nil {
		log.Error("failed to delete category: %v", err)
		return err
	}
	s.invalidate(ctx, models.KindCategories, models.KindFlashcards)
	log.Info("category deleted: id=%s", id)
	return nil
}

// CreateFlashcards validates and appends cards to a level. Cards are placed
// after the last existing card of the same category and mode.
func (s *contentService) CreateFlashcards(ctx context.Context, levelID string, cards []NewFlashcard) ([]models.Flashcard, error) {
	log := logger.FromContext(ctx).WithPrefix("content")
	log.Debug("creating flashcards: level_id=%s, count=%d", levelID, len(cards))

	if len(cards) == 0 {
		return []models.Flashcard{}, nil
	}
	level, err := s.level(ctx, levelID)
	if err != nil {
		return nil, err
	}

	categories := map[string]bool{}
	if level.HasCategories {
		cats, err := s.remote.ListCategories(ctx, levelID)
		if err != nil {
			return nil, err
		}
		for _, c := range cats {
			categories[c.ID] = true
		}
	}

	existing, err := s.remote.ListFlashcards(ctx, models.FlashcardFilter{LevelID: levelID})
	if err != nil {
		log.Error("failed to list flashcards: %v", err)
		return nil, err
	}
	next := map[string]int{}
	for _, f := range existing {
		k := positionKey(f.CategoryID, f.Mode)
		if f.Position >= next[k] {
			next[k] = f.Position
		}
	}

	out := make([]models.Flashcard, 0, len(cards))
	for i, in := range cards {
		card := models.Flashcard{
			ID:         strings.TrimSpace(in.ID),
			LevelID:    levelID,
			CategoryID: in.CategoryID,
			Mode:       in.Mode,
			SourceText: strings.TrimSpace(in.SourceText),
			TargetText: strings.TrimSpace(in.TargetText),
		}
		if card.CategoryID != nil && *card.CategoryID == "" {
			card.CategoryID = nil
		}
		if err := validateCard(level, card); err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("cards[%d]", i), err.Error())
		}
		if card.CategoryID != nil && !categories[*card.CategoryID] {
			return nil, errors.NewValidationError(fmt.Sprintf("cards[%d].category_id", i), "unknown category "+*card.CategoryID)
		}
		if card.ID == "" {
			card.ID = uuid.NewString()
		}
		k := positionKey(card.CategoryID, card.Mode)
		next[k]++
		card.Position = next[k]
		out = append(out, card)
	}

	if err := s.remote.CreateFlashcards(ctx, out); err != nil {
		log.Error("failed to create flashcards: %v", err)
		return nil, err
	}
	s.invalidate(ctx, models.KindFlashcards)
	log.Info("flashcards created: level_id=%s, count=%d", levelID, len(out))
	return out, nil
}

func (s *contentService) UpdateFlashcard(ctx context.Context, id string, patch FlashcardPatch) (models.Flashcard, error) {
	log := logger.FromContext(ctx).WithPrefix("content")
	log.Debug("updating flashcard: id=%s", id)

	card, err := s.remote.GetFlashcard(ctx, id)
	if err != nil {
		return models.Flashcard{}, err
	}
	if card == nil {
		return models.Flashcard{}, errors.NewNotFoundError("flashcard", id)
	}

	updated := *card
	if patch.CategoryID != nil {
		updated.CategoryID = models.StringPtr(*patch.CategoryID)
	}
	if patch.Mode != nil {
		updated.Mode = *patch.Mode
	}
	if patch.SourceText != nil {
		updated.SourceText = strings.TrimSpace(*patch.SourceText)
	}
	if patch.TargetText != nil {
		updated.TargetText = strings.TrimSpace(*patch.TargetText)
	}

	level, err := s.level(ctx, updated.LevelID)
	if err != nil {
		return models.Flashcard{}, err
	}
	if err := validateCard(level, updated); err != nil {
		return models.Flashcard{}, errors.NewValidationError("flashcard", err.Error())
	}
	if updated.CategoryID != nil && (card.CategoryID == nil || *card.CategoryID != *updated.CategoryID) {
		cat, err := s.remote.GetCategory(ctx, *updated.CategoryID)
		if err != nil {
			return models.Flashcard{}, err
		}
		if cat == nil || cat.LevelID != updated.LevelID {
			return models.Flashcard{}, errors.NewValidationError("category_id", "unknown category "+*updated.CategoryID)
		}
	}

	if err := s.remote.UpdateFlashcard(ctx, updated); err != nil {
		log.Error("failed to update flashcard: %v", err)
		return models.Flashcard{}, err
	}
	s.invalidate(ctx, models.KindFlashcards)
	return updated, nil
}

func (s *contentService) DeleteFlashcards(ctx context.Context, ids []string) error {
	log := logger.FromContext(ctx).WithPrefix("content")
	log.Debug("deleting flashcards: count=%d", len(ids))

	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return errors.NewValidationError("ids", "cannot be empty")
	}
	if err := s.remote.DeleteFlashcards(ctx, clean); err != nil {
		log.Error("failed to delete flashcards: %v", err)
		return err
	}
	s.invalidate(ctx, models.KindFlashcards)
	log.Info("flashcards deleted: count=%d", len(clean))
	return nil
}

func (s *contentService) level(ctx context.Context, id string) (models.Level, error) {
	levels, err := s.remote.ListLevels(ctx)
	if err != nil {
		return models.Level{}, err
	}
	for _, l := range levels {
		if l.ID == id {
			return l, nil
		}
	}
	return models.Level{}, errors.NewNotFoundError("level", id)
}

func (s *contentService) category(ctx context.Context, id string) (models.Category, error) {
	c, err := s.remote.GetCategory(ctx, id)
	if err != nil {
		return models.Category{}, err
	}
	if c == nil {
		return models.Category{}, errors.NewNotFoundError("category", id)
	}
	return *c, nil
}

// invalidate drops cached kinds after a write. Failures only cost a refetch.
func (s *contentService) invalidate(ctx context.Context, kinds ...models.EntityKind) {
	for _, kind := range kinds {
		if err := s.cache.Clear(ctx, kind); err != nil {
			logger.FromContext(ctx).WithPrefix("content").Warn("failed to invalidate %s cache: %v", kind, err)
		}
	}
}

func validateCard(level models.Level, card models.Flashcard) error {
	if card.SourceText == "" {
		return fmt.Errorf("source_text cannot be empty")
	}
	if card.TargetText == "" {
		return fmt.Errorf("target_text cannot be empty")
	}
	if !card.Mode.Valid() {
		return fmt.Errorf("unknown mode %q", card.Mode)
	}
	return models.CheckCategoryPlacement(level, card)
}

func positionKey(categoryID *string, mode models.Mode) string {
	if categoryID == nil {
		return string(mode)
	}
	return *categoryID + "/" + string(mode)
}
