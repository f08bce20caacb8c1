package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/lingoflash/internal/models"
	"github.com/vytor/lingoflash/internal/services"
)

// MockContentService is a mock implementation of services.ContentService
type MockContentService struct {
	mock.Mock
}

func (m *MockContentService) SaveLevel(ctx context.Context, level models.Level) (models.Level, error) {
	args := m.Called(ctx, level)
	return args.Get(0).(models.Level), args.Error(1)
}

func (m *MockContentService) CreateCategory(ctx context.Context, levelID, name string) (models.Category, error) {
	args := m.Called(ctx, levelID, name)
	return args.Get(0).(models.Category), args.Error(1)
}

func (m *MockContentService) FindOrCreateCategory(ctx context.Context, levelID, name string) (models.Category, error) {
	args := m.Called(ctx, levelID, name)
	return args.Get(0).(models.Category), args.Error(1)
}

func (m *MockContentService) RenameCategory(ctx context.Context, id, name string) (models.Category, error) {
	args := m.Called(ctx, id, name)
	return args.Get(0).(models.Category), args.Error(1)
}

func (m *MockContentService) DeleteCategory(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockContentService) CreateFlashcards(ctx context.Context, levelID string, cards []services.NewFlashcard) ([]models.Flashcard, error) {
	args := m.Called(ctx, levelID, cards)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Flashcard), args.Error(1)
}

func (m *MockContentService) UpdateFlashcard(ctx context.Context, id string, patch services.FlashcardPatch) (models.Flashcard, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(models.Flashcard), args.Error(1)
}

func (m *MockContentService) DeleteFlashcards(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}
