// Package srs schedules flashcard reviews with an SM-2 variant.
//
// Everything here is pure: the review time is always passed in, so replaying a
// queued rating yields exactly the values computed when it was first made.
package srs

import (
	"math"
	"time"

	"github.com/vytor/lingoflash/internal/errors"
	"github.com/vytor/lingoflash/internal/models"
)

// Quality is a 0..5 recall rating.
type Quality int

// Ratings sent by the four practice buttons. 0 and 2 are valid but unused by that UI.
const (
	QualityAgain Quality = 1
	QualityHard  Quality = 3
	QualityGood  Quality = 4
	QualityEasy  Quality = 5
)

const (
	MinQuality = 0
	MaxQuality = 5

	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3

	// RelearnDelay schedules a failed card back into the current session.
	RelearnDelay = 10 * time.Minute

	// MaxIntervalDays caps the review gap at about a century.
	MaxIntervalDays = 36500

	passThreshold = 3
)

// ValidateQuality rejects ratings outside 0..5.
func ValidateQuality(q int) error {
	if q < MinQuality || q > MaxQuality {
		return errors.NewValidationError("quality", "must be between 0 and 5")
	}
	return nil
}

// NextEaseFactor applies the SM-2 ease update, never going below MinEaseFactor.
func NextEaseFactor(ef float64, q Quality) float64 {
	miss := float64(5 - q)
	next := ef + (0.1 - miss*(0.08+miss*0.02))
	if next < MinEaseFactor {
		return MinEaseFactor
	}
	return next
}

// IntervalDays returns the review gap in days for a passing rating, at most
// MaxIntervalDays. rep is the repetition count including the current rating.
func IntervalDays(ef float64, rep int, q Quality) int {
	switch {
	case rep <= 1:
		switch q {
		case 5:
			return 7
		case 4:
			return 3
		default:
			return 1
		}
	case rep == 2:
		switch q {
		case 5:
			return 14
		case 4:
			return 7
		default:
			return 3
		}
	default:
		days := math.Ceil(3 * math.Pow(ef, float64(rep-2)))
		if math.IsNaN(days) || days > MaxIntervalDays {
			return MaxIntervalDays
		}
		return int(days)
	}
}

// NextReviewDate computes when the card is due again. Failing ratings bypass
// interval growth and come back after RelearnDelay.
func NextReviewDate(ef float64, rep int, q Quality, lastReview time.Time) time.Time {
	if q < passThreshold {
		return lastReview.Add(RelearnDelay)
	}
	return lastReview.AddDate(0, 0, IntervalDays(ef, rep, q))
}

// Apply rates a card for a user at now. prev may be nil for a card never rated.
// The repetition count grows on every rating, failing ones included; the
// interval uses the new count and the ease factor held before this rating.
// The result is unconfirmed until a remote store acknowledges it.
func Apply(prev *models.ReviewProgress, userID, flashcardID string, q Quality, now time.Time) models.ReviewProgress {
	ef := DefaultEaseFactor
	rep := 0
	if prev != nil {
		ef = prev.EaseFactor
		rep = prev.RepetitionCount
		if ef < MinEaseFactor {
			ef = MinEaseFactor
		}
	}

	rep++
	return models.ReviewProgress{
		UserID:          userID,
		FlashcardID:     flashcardID,
		RepetitionCount: rep,
		EaseFactor:      NextEaseFactor(ef, q),
		LastReviewedAt:  now,
		NextDueAt:       NextReviewDate(ef, rep, q, now),
		State:           models.StateUnconfirmed,
	}
}

// IsDue reports whether p should be reviewed at now.
func IsDue(p models.ReviewProgress, now time.Time) bool {
	return !p.NextDueAt.After(now)
}
