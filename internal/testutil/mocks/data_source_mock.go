package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/lingoflash/internal/models"
)

// MockDataSource is a mock implementation of remote.DataSource
type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDataSource) ListLevels(ctx context.Context) ([]models.Level, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Level), args.Error(1)
}

func (m *MockDataSource) ListCategories(ctx context.Context, levelID string) ([]models.Category, error) {
	args := m.Called(ctx, levelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockDataSource) ListFlashcards(ctx context.Context, filter models.FlashcardFilter) ([]models.Flashcard, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Flashcard), args.Error(1)
}

func (m *MockDataSource) ListProgress(ctx context.Context, userID string) ([]models.ReviewProgress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReviewProgress), args.Error(1)
}

func (m *MockDataSource) UpsertProgress(ctx context.Context, u models.ProgressUpsert) (models.ReviewProgress, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(models.ReviewProgress), args.Error(1)
}

func (m *MockDataSource) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockDataSource) GetFlashcard(ctx context.Context, id string) (*models.Flashcard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flashcard), args.Error(1)
}

func (m *MockDataSource) SaveLevel(ctx context.Context, level models.Level) error {
	args := m.Called(ctx, level)
	return args.Error(0)
}

func (m *MockDataSource) CreateCategory(ctx context.Context, c models.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockDataSource) UpdateCategory(ctx context.Context, c models.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockDataSource) DeleteCategory(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDataSource) CreateFlashcards(ctx context.Context, cards []models.Flashcard) error {
	args := m.Called(ctx, cards)
	return args.Error(0)
}

func (m *MockDataSource) UpdateFlashcard(ctx context.Context, card models.Flashcard) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockDataSource) DeleteFlashcards(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}
