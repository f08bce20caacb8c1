package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/lingoflash/internal/db"
	apperrors "github.com/vytor/lingoflash/internal/errors"
	"github.com/vytor/lingoflash/internal/models"
	"github.com/vytor/lingoflash/internal/repository"
	"github.com/vytor/lingoflash/internal/repository/sqlite"
	"github.com/vytor/lingoflash/internal/services"
	"github.com/vytor/lingoflash/internal/testutil"
	"github.com/vytor/lingoflash/internal/testutil/mocks"
)

type ContentServiceSuite struct {
	suite.Suite
	db      *db.DB
	cache   repository.CacheStore
	remote  *mocks.MockDataSource
	service services.ContentService
	ctx     context.Context
}

func (s *ContentServiceSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.cache = sqlite.NewCacheStore(s.db.DB)
	s.remote = new(mocks.MockDataSource)
	s.service = services.NewContentService(s.remote, s.cache)
	s.ctx = context.Background()
}

func (s *ContentServiceSuite) TearDownTest() {
	s.remote.AssertExpectations(s.T())
	testutil.MustClose(s.T(), s.db)
}

func (s *ContentServiceSuite) requireValidation(err error) {
	var appErr *apperrors.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Assert().Equal(apperrors.ErrCodeValidation, appErr.Code)
}

func (s *ContentServiceSuite) markFresh(keys ...string) {
	for _, k := range keys {
		s.Require().NoError(s.cache.SetFreshness(s.ctx, k, time.Now()))
	}
}

func (s *ContentServiceSuite) isFresh(key string) bool {
	f, err := s.cache.GetFreshness(s.ctx, key)
	s.Require().NoError(err)
	return f != nil
}

func (s *ContentServiceSuite) TestSaveLevel_InvalidatesLevels() {
	s.markFresh(models.QueryKeyLevels(), models.QueryKeyCategories("B1"))
	level := models.Level{ID: "A1", Name: "  Absolute beginner ", Position: 1}
	s.remote.On("SaveLevel", mock.Anything, models.Level{ID: "A1", Name: "Absolute beginner", Position: 1}).Return(nil).Once()

	saved, err := s.service.SaveLevel(s.ctx, level)
	s.Require().NoError(err)
	s.Assert().Equal("Absolute beginner", saved.Name)
	s.Assert().False(s.isFresh(models.QueryKeyLevels()))
	s.Assert().True(s.isFresh(models.QueryKeyCategories("B1")))
}

func (s *ContentServiceSuite) TestSaveLevel_RequiresName() {
	_, err := s.service.SaveLevel(s.ctx, models.Level{ID: "A1"})
	s.requireValidation(err)
}

func (s *ContentServiceSuite) TestCreateCategory_DerivesSlugAndPosition() {
	s.markFresh(models.QueryKeyCategories("B1"))
	s.remote.On("ListLevels", mock.Anything).Return(testutil.Levels(), nil)
	s.remote.On("ListCategories", mock.Anything, "B1").Return(testutil.Categories("B1"), nil)
	s.remote.On("CreateCategory", mock.Anything, mock.MatchedBy(func(c models.Category) bool {
		return c.Slug == "cafe-bar" && c.Position == 3 && c.LevelID == "B1" && c.ID != ""
	})).Return(nil).Once()

	cat, err := s.service.CreateCategory(s.ctx, "B1", " Café & Bar ")
	s.Require().NoError(err)
	s.Assert().Equal("Café & Bar", cat.Name)
	s.Assert().Equal("cafe-bar", cat.Slug)
	s.Assert().Equal(3, cat.Position)
	s.Assert().False(s.isFresh(models.QueryKeyCategories("B1")))
}

func (s *ContentServiceSuite) TestCreateCategory_DuplicateSlug() {
	s.remote.On("ListLevels", mock.Anything).Return(testutil.Levels(), nil)
	s.remote.On("ListCategories", mock.Anything, "B1").Return(testutil.Categories("B1"), nil)

	_, err := s.service.CreateCategory(s.ctx, "B1", "FOOD")
	s.requireValidation(err)
	s.remote.AssertNotCalled(s.T(), "CreateCategory", mock.Anything, mock.Anything)
}

func (s *ContentServiceSuite) TestCreateCategory_FlatLevelRejected() {
	s.remote.On("ListLevels", mock.Anything).Return(testutil.Levels(), nil)

	_, err := s.service.CreateCategory(s.ctx, "A1", "Food")
	s.requireValidation(err)
}

func (s *ContentServiceSuite) TestCreateCategory_UnknownLevel() {
	s.remote.On("ListLevels", mock.Anything).Return(testutil.Levels(), nil)

	_, err := s.service.CreateCategory(s.ctx, "C2", "Food")
	var appErr *apperrors.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Assert().Equal(apperrors.ErrCodeNotFound, appErr.Code)
}

func (s *ContentServiceSuite) TestFindOrCreateCategory_ReusesExisting() {
	s.remote.On("ListCategories", mock.Anything, "B1").Return(testutil.Categories("B1"), nil)

	cat, err := s.service.FindOrCreateCategory(s.ctx, "B1", "Travel")
	s.Require().NoError(err)
	s.Assert().Equal("B1-travel", cat.ID)
}

func (s *ContentServiceSuite) TestRenameCategory() {
	cats := testutil.Categories("B1")
	s.markFresh(models.QueryKeyFlashcards("B1", "food", ""))
	s.remote.On("GetCategory", mock.Anything, "B1-food").Return(&cats[0], nil)
	s.remote.On("ListCategories", mock.Anything, "B1").Return(cats, nil)
	s.remote.On("UpdateCategory", mock.Anything, mock.MatchedBy(func(c models.Category) bool {
		return c.ID == "B1-food" && c.Slug == "food-drink"
	})).Return(nil).Once()

	cat, err := s.service.RenameCategory(s.ctx, "B1-food", "Food & Drink")
	s.Require().NoError(err)
	s.Assert().Equal("food-drink", cat.Slug)
	s.Assert().False(s.isFresh(models.QueryKeyFlashcards("B1", "food", "")))
}

func (s *ContentServiceSuite) TestRenameCategory_Clash() {
	cats := testutil.Categories("B1")
	s.remote.On("GetCategory", mock.Anything, "B1-food").Return(&cats[0], nil)
	s.remote.On("ListCategories", mock.Anything, "B1").Return(cats, nil)

	_, err := s.service.RenameCategory(s.ctx, "B1-food", "Travel")
	s.requireValidation(err)
}

func (s *ContentServiceSuite) TestDeleteCategory_NotFound() {
	s.remote.On("GetCategory", mock.Anything, "missing").Return(nil, nil)

	err := s.service.DeleteCategory(s.ctx, "missing")
	var appErr *apperrors.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Assert().Equal(apperrors.ErrCodeNotFound, appErr.Code)
}

func (s *ContentServiceSuite) TestDeleteCategory() {
	cats := testutil.Categories("B1")
	s.remote.On("GetCategory", mock.Anything, "B1-food").Return(&cats[0], nil)
	s.remote.On("DeleteCategory", mock.Anything, "B1-food").Return(nil).Once()

	s.Require().NoError(s.service.DeleteCategory(s.ctx, "B1-food"))
}

func (s *ContentServiceSuite) TestCreateFlashcards_AppendsPositions() {
	s.remote.On("ListLevels", mock.Anything).Return(testutil.Levels(), nil)
	s.remote.On("ListFlashcards", mock.Anything, models.FlashcardFilter{LevelID: "A1"}).
		Return(testutil.FlatCards("A1", models.ModeVocabulary, 2), nil)
	s.remote.On("CreateFlashcards", mock.Anything, mock.Anything).Return(nil).Once()

	created, err := s.service.CreateFlashcards(s.ctx, "A1", []services.NewFlashcard{
		{Mode: models.ModeVocabulary, SourceText: "cat", TargetText: "gato"},
		{Mode: models.ModeSentences, SourceText: "I eat.", TargetText: "Eu como."},
		{ID: "fixed", Mode: models.ModeVocabulary, SourceText: "dog", TargetText: "cão"},
	})
	s.Require().NoError(err)
	s.Require().Len(created, 3)
	s.Assert().Equal(3, created[0].Position)
	s.Assert().Equal(1, created[1].Position)
	s.Assert().Equal(4, created[2].Position)
	s.Assert().Equal("fixed", created[2].ID)
	s.Assert().NotEmpty(created[0].ID)
}

func (s *ContentServiceSuite) TestCreateFlashcards_Validation() {
	s.remote.On("ListLevels", mock.Anything).Return(testutil.Levels(), nil)
	s.remote.On("ListCategories", mock.Anything, "B1").Return(testutil.Categories("B1"), nil)
	s.remote.On("ListFlashcards", mock.Anything, mock.Anything).Return([]models.Flashcard{}, nil)

	cases := map[string]services.NewFlashcard{
		"empty source":     {CategoryID: models.StringPtr("B1-food"), Mode: models.ModeVocabulary, TargetText: "x"},
		"empty target":     {CategoryID: models.StringPtr("B1-food"), Mode: models.ModeVocabulary, SourceText: "x"},
		"bad mode":         {CategoryID: models.StringPtr("B1-food"), Mode: "grammar", SourceText: "x", TargetText: "y"},
		"missing category": {Mode: models.ModeVocabulary, SourceText: "x", TargetText: "y"},
		"unknown category": {CategoryID: models.StringPtr("B1-sports"), Mode: models.ModeVocabulary, SourceText: "x", TargetText: "y"},
	}
	for name, card := range cases {
		s.Run(name, func() {
			_, err := s.service.CreateFlashcards(s.ctx, "B1", []services.NewFlashcard{card})
			s.requireValidation(err)
		})
	}
	s.remote.AssertNotCalled(s.T(), "CreateFlashcards", mock.Anything, mock.Anything)
}

func (s *ContentServiceSuite) TestCreateFlashcards_CategoryOnFlatLevel() {
	s.remote.On("ListLevels", mock.Anything).Return(testutil.Levels(), nil)
	s.remote.On("ListFlashcards", mock.Anything, mock.Anything).Return([]models.Flashcard{}, nil)

	_, err := s.service.CreateFlashcards(s.ctx, "A1", []services.NewFlashcard{
		{CategoryID: models.StringPtr("A1-food"), Mode: models.ModeVocabulary, SourceText: "x", TargetText: "y"},
	})
	s.requireValidation(err)
}

func (s *ContentServiceSuite) TestUpdateFlashcard() {
	card := testutil.FlatCards("A1", models.ModeVocabulary, 1)[0]
	s.markFresh(models.QueryKeyFlashcards("A1", "", ""))
	s.remote.On("GetFlashcard", mock.Anything, card.ID).Return(&card, nil)
	s.remote.On("ListLevels", mock.Anything).Return(testutil.Levels(), nil)
	s.remote.On("UpdateFlashcard", mock.Anything, mock.MatchedBy(func(f models.Flashcard) bool {
		return f.ID == card.ID && f.TargetText == "perro" && f.SourceText == card.SourceText
	})).Return(nil).Once()

	target := " perro "
	updated, err := s.service.UpdateFlashcard(s.ctx, card.ID, services.FlashcardPatch{TargetText: &target})
	s.Require().NoError(err)
	s.Assert().Equal("perro", updated.TargetText)
	s.Assert().False(s.isFresh(models.QueryKeyFlashcards("A1", "", "")))
}

func (s *ContentServiceSuite) TestUpdateFlashcard_NotFound() {
	s.remote.On("GetFlashcard", mock.Anything, "nope").Return(nil, nil)

	_, err := s.service.UpdateFlashcard(s.ctx, "nope", services.FlashcardPatch{})
	var appErr *apperrors.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Assert().Equal(apperrors.ErrCodeNotFound, appErr.Code)
}

func (s *ContentServiceSuite) TestDeleteFlashcards() {
	s.remote.On("DeleteFlashcards", mock.Anything, []string{"a", "b"}).Return(nil).Once()

	s.Require().NoError(s.service.DeleteFlashcards(s.ctx, []string{" a", "", "b "}))
	s.requireValidation(s.service.DeleteFlashcards(s.ctx, []string{" "}))
}

func TestContentServiceSuite(t *testing.T) {
	suite.Run(t, new(ContentServiceSuite))
}
