package models

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ContentKind tags how a level's cards are organised.
type ContentKind string

const (
	ContentFlat        ContentKind = "flat"
	ContentCategorized ContentKind = "categorized"
)

// LevelContent is resolved once when a level is loaded: a flat level carries
// its cards directly, a categorized level carries its categories.
// Exactly one of Cards or Categories is meaningful, selected by Kind.
type LevelContent struct {
	Level      Level       `json:"level"`
	Kind       ContentKind `json:"kind"`
	Cards      []Flashcard `json:"cards,omitempty"`
	Categories []Category  `json:"categories,omitempty"`
}

// NewLevelContent builds the variant matching level.HasCategories.
func NewLevelContent(level Level, cards []Flashcard, categories []Category) LevelContent {
	if level.HasCategories {
		if categories == nil {
			categories = []Category{}
		}
		return LevelContent{Level: level, Kind: ContentCategorized, Categories: categories}
	}
	if cards == nil {
		cards = []Flashcard{}
	}
	return LevelContent{Level: level, Kind: ContentFlat, Cards: cards}
}

// CheckCategoryPlacement enforces that a card names a category only on a
// categorized level, and always does so there.
func CheckCategoryPlacement(level Level, card Flashcard) error {
	hasCategory := card.CategoryID != nil && *card.CategoryID != ""
	switch {
	case hasCategory && !level.HasCategories:
		return fmt.Errorf("level %s has no categories but card names category %q", level.ID, *card.CategoryID)
	case !hasCategory && level.HasCategories:
		return fmt.Errorf("level %s is categorized but card has no category", level.ID)
	}
	return nil
}

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug: accents folded, lowercased, runs of other
// characters collapsed to single dashes.
func Slugify(name string) string {
	decomposed := norm.NFD.String(name)
	var sb strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return strings.Trim(nonSlugRe.ReplaceAllString(sb.String(), "-"), "-")
}

// StringPtr returns a pointer to s, or nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
