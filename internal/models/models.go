package models

import (
	"fmt"
	"strings"
	"time"
)

// Level is a proficiency band such as "A1". The set is fixed by the domain;
// only display metadata is editable.
type Level struct {
	ID            string `json:"id" db:"id"`
	Name          string `json:"name" db:"name"`
	Position      int    `json:"position" db:"position"`
	HasCategories bool   `json:"has_categories" db:"has_categories"`
}

type Category struct {
	ID       string `json:"id" db:"id"`
	LevelID  string `json:"level_id" db:"level_id"`
	Name     string `json:"name" db:"name"`
	Slug     string `json:"slug" db:"slug"`
	Position int    `json:"position" db:"position"`
}

// Mode selects which deck of a level/category is practised.
type Mode string

const (
	ModeVocabulary Mode = "vocabulary"
	ModeSentences  Mode = "sentences"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeVocabulary || m == ModeSentences
}

// ParseMode parses a mode name. The empty string yields "" with no error,
// meaning "any mode".
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" || m.Valid() {
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

type Flashcard struct {
	ID         string  `json:"id" db:"id"`
	LevelID    string  `json:"level_id" db:"level_id"`
	CategoryID *string `json:"category_id" db:"category_id"`
	Mode       Mode    `json:"mode" db:"mode"`
	SourceText string  `json:"source_text" db:"source_text"`
	TargetText string  `json:"target_text" db:"target_text"`
	Position   int     `json:"position" db:"position"`
}

// FlashcardFilter narrows a flashcard listing. Zero values mean "no constraint".
type FlashcardFilter struct {
	LevelID    string
	CategoryID string
	Mode       Mode
}

// CacheFreshness records when a logical query was last fetched successfully.
type CacheFreshness struct {
	Key       string    `json:"key" db:"key"`
	FetchedAt time.Time `json:"fetched_at" db:"fetched_at"`
}

// IsFresh reports whether the record is younger than ttl at now.
func (f CacheFreshness) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(f.FetchedAt) < ttl
}

// EntityKind names one local store. KindAll addresses every store at once.
type EntityKind string

const (
	KindLevels     EntityKind = "levels"
	KindCategories EntityKind = "categories"
	KindFlashcards EntityKind = "flashcards"
	KindProgress   EntityKind = "progress"
	KindMutations  EntityKind = "mutations"
	KindFreshness  EntityKind = "freshness"
	KindAll        EntityKind = "all"
)

// EntityKinds lists every concrete store, in clearing order.
var EntityKinds = []EntityKind{KindLevels, KindCategories, KindFlashcards, KindProgress, KindMutations, KindFreshness}

// ParseEntityKind parses a store name, including "all".
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	if k == KindAll {
		return k, nil
	}
	for _, known := range EntityKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// QueryKeyPrefix returns the freshness-key prefix used by queries over kind,
// or "" when the kind is not fetched through freshness-tracked queries.
func QueryKeyPrefix(kind EntityKind) string {
	switch kind {
	case KindLevels:
		return "levels"
	case KindCategories:
		return "categories:"
	case KindFlashcards:
		return "flashcards:"
	case KindProgress:
		return "progress:"
	default:
		return ""
	}
}

func QueryKeyLevels() string { return "levels" }

func QueryKeyCategories(levelID string) string { return "categories:" + levelID }

// QueryKeyFlashcards builds "flashcards:<level>:<slug>:<mode>", with "-" for absent parts.
func QueryKeyFlashcards(levelID, categorySlug string, mode Mode) string {
	slug, m := categorySlug, string(mode)
	if slug == "" {
		slug = "-"
	}
	if m == "" {
		m = "-"
	}
	return fmt.Sprintf("flashcards:%s:%s:%s", levelID, slug, m)
}

func QueryKeyProgress(userID string) string { return "progress:" + userID }
