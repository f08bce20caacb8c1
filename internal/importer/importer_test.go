package importer_test

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/lingoflash/internal/importer"
	"github.com/vytor/lingoflash/internal/models"
	"github.com/vytor/lingoflash/internal/services"
	"github.com/vytor/lingoflash/internal/testutil/mocks"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	path := filepath.Join(t.TempDir(), "cards.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestImportFlashcards(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"source", "target", "category", "mode"},
		{"bread", "pão", "Food", ""},
		{"I am hungry.", "Estou com fome.", "food", "sentences"},
		{},
		{"ticket", "", "Travel", ""},
		{"train", "comboio", "Travel", "grammar"},
		{"plane", "avião", "Travel", "vocabulary"},
	})

	content := new(mocks.MockContentService)
	content.On("FindOrCreateCategory", mock.Anything, "B1", "Food").
		Return(models.Category{ID: "cat-food", LevelID: "B1", Slug: "food"}, nil).Once()
	content.On("FindOrCreateCategory", mock.Anything, "B1", "Travel").
		Return(models.Category{ID: "cat-travel", LevelID: "B1", Slug: "travel"}, nil).Once()

	content.On("CreateFlashcards", mock.Anything, "B1", mock.MatchedBy(func(cards []services.NewFlashcard) bool {
		return len(cards) == 1 && cards[0].TargetText == ""
	})).Return(nil, stderrors.New("target_text cannot be empty")).Once()
	content.On("CreateFlashcards", mock.Anything, "B1", mock.MatchedBy(func(cards []services.NewFlashcard) bool {
		return len(cards) == 1 && cards[0].TargetText != ""
	})).Return([]models.Flashcard{{ID: "x"}}, nil).Times(3)

	result, err := importer.ImportFlashcards(context.Background(), path, "B1", importer.DefaultConfig(), content)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Processed)
	assert.Equal(t, 3, result.Created)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 5, result.Errors[0].Row)
	assert.Equal(t, 6, result.Errors[1].Row)
	assert.Contains(t, result.Errors[1].Err, "unknown mode")
	content.AssertExpectations(t)

	var sentences []services.NewFlashcard
	for _, call := range content.Calls {
		if call.Method != "CreateFlashcards" {
			continue
		}
		cards := call.Arguments.Get(2).([]services.NewFlashcard)
		if cards[0].Mode == models.ModeSentences {
			sentences = append(sentences, cards[0])
		}
	}
	require.Len(t, sentences, 1)
	assert.Equal(t, "cat-food", *sentences[0].CategoryID)
}

func TestImportFlashcards_MissingFile(t *testing.T) {
	_, err := importer.ImportFlashcards(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"), "A1",
		importer.DefaultConfig(), new(mocks.MockContentService))
	assert.Error(t, err)
}

func TestImportFlashcards_InvalidColumn(t *testing.T) {
	cfg := importer.DefaultConfig()
	cfg.SourceColumn = "1"
	_, err := importer.ImportFlashcards(context.Background(), "unused.xlsx", "A1", cfg, new(mocks.MockContentService))
	assert.Error(t, err)
}
