package models

import "time"

// ConfirmationState tells whether a progress record is backed by the server.
type ConfirmationState string

const (
	// StateUnconfirmed marks values computed locally while offline and not yet replayed.
	StateUnconfirmed ConfirmationState = "unconfirmed"
	// StateConfirmed marks values returned by the remote store.
	StateConfirmed ConfirmationState = "confirmed"
)

// ReviewProgress is a user's scheduling state for one card, keyed by (UserID, FlashcardID).
type ReviewProgress struct {
	UserID          string            `json:"user_id" db:"user_id"`
	FlashcardID     string            `json:"flashcard_id" db:"flashcard_id"`
	RepetitionCount int               `json:"repetition_count" db:"repetition_count"`
	EaseFactor      float64           `json:"ease_factor" db:"ease_factor"`
	LastReviewedAt  time.Time         `json:"last_reviewed_at" db:"last_reviewed_at"`
	NextDueAt       time.Time         `json:"next_due_at" db:"next_due_at"`
	State           ConfirmationState `json:"state" db:"state"`
	QueueID         *string           `json:"queue_id,omitempty" db:"queue_id"`
}

// Upsert extracts the payload sent to the remote store.
func (p ReviewProgress) Upsert() ProgressUpsert {
	return ProgressUpsert{
		UserID:          p.UserID,
		FlashcardID:     p.FlashcardID,
		RepetitionCount: p.RepetitionCount,
		EaseFactor:      p.EaseFactor,
		LastReviewedAt:  p.LastReviewedAt,
		NextDueAt:       p.NextDueAt,
	}
}

// ProgressUpsert is the full write replayed against the remote store.
type ProgressUpsert struct {
	UserID          string    `json:"user_id"`
	FlashcardID     string    `json:"flashcard_id"`
	RepetitionCount int       `json:"repetition_count"`
	EaseFactor      float64   `json:"ease_factor"`
	LastReviewedAt  time.Time `json:"last_reviewed_at"`
	NextDueAt       time.Time `json:"next_due_at"`
}

// Confirmed turns a payload acknowledged by the server into a confirmed record.
func (u ProgressUpsert) Confirmed() ReviewProgress {
	return ReviewProgress{
		UserID:          u.UserID,
		FlashcardID:     u.FlashcardID,
		RepetitionCount: u.RepetitionCount,
		EaseFactor:      u.EaseFactor,
		LastReviewedAt:  u.LastReviewedAt,
		NextDueAt:       u.NextDueAt,
		State:           StateConfirmed,
	}
}

// PendingMutation is a progress write captured while offline.
type PendingMutation struct {
	ID         string         `json:"id"`
	Payload    ProgressUpsert `json:"payload"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	Synced     bool           `json:"synced"`
	SyncedAt   *time.Time     `json:"synced_at,omitempty"`
}
