package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vytor/lingoflash/internal/db"
	"github.com/vytor/lingoflash/internal/models"
)

// NewTestDB opens an in-memory cache database with all migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	return database
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// Clock is a settable time source for code that takes a func() time.Time.
type Clock struct {
	now time.Time
}

func NewClock(now time.Time) *Clock { return &Clock{now: now} }

func (c *Clock) Now() time.Time { return c.now }

func (c *Clock) Set(t time.Time) { c.now = t }

func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// Fixtures

func Levels() []models.Level {
	return []models.Level{
		{ID: "A1", Name: "Beginner", Position: 1},
		{ID: "A2", Name: "Elementary", Position: 2},
		{ID: "B1", Name: "Intermediate", Position: 3, HasCategories: true},
	}
}

func Categories(levelID string) []models.Category {
	return []models.Category{
		{ID: levelID + "-food", LevelID: levelID, Name: "Food", Slug: "food", Position: 1},
		{ID: levelID + "-travel", LevelID: levelID, Name: "Travel", Slug: "travel", Position: 2},
	}
}

func FlatCards(levelID string, mode models.Mode, n int) []models.Flashcard {
	cards := make([]models.Flashcard, n)
	for i := range cards {
		cards[i] = models.Flashcard{
			ID:         cardID(levelID, "", mode, i),
			LevelID:    levelID,
			Mode:       mode,
			SourceText: "source",
			TargetText: "target",
			Position:   i + 1,
		}
	}
	return cards
}

func CategorizedCards(levelID, categoryID string, mode models.Mode, n int) []models.Flashcard {
	cards := FlatCards(levelID, mode, n)
	for i := range cards {
		cards[i].ID = cardID(levelID, categoryID, mode, i)
		cards[i].CategoryID = models.StringPtr(categoryID)
	}
	return cards
}

func cardID(levelID, categoryID string, mode models.Mode, i int) string {
	owner := levelID
	if categoryID != "" {
		owner = categoryID
	}
	return fmt.Sprintf("%s-%s-%03d", owner, mode, i)
}
