package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/models"
)

var progressColumns = []string{
	"user_id", "flashcard_id", "repetition_count", "ease_factor",
	"last_reviewed_at", "next_due_at", "state", "queue_id",
}

const upsertProgress = `ON CONFLICT(user_id, flashcard_id) DO UPDATE SET
    repetition_count = excluded.repetition_count,
    ease_factor = excluded.ease_factor,
    last_reviewed_at = excluded.last_reviewed_at,
    next_due_at = excluded.next_due_at,
    state = excluded.state,
    queue_id = excluded.queue_id`

func progressValues(p models.ReviewProgress) []interface{} {
	state := p.State
	if state == "" {
		state = models.StateConfirmed
	}
	return []interface{}{
		p.UserID, p.FlashcardID, p.RepetitionCount, p.EaseFactor,
		p.LastReviewedAt.UTC(), p.NextDueAt.UTC(), string(state), p.QueueID,
	}
}

func (s *cacheStore) UpsertProgress(ctx context.Context, p models.ReviewProgress) error {
	log := logger.FromContext(ctx).WithPrefix("cache_store")
	log.Debug("upserting progress: user_id=%s, flashcard_id=%s, state=%s", p.UserID, p.FlashcardID, p.State)

	q := sqlBuilder.Insert("progress").Columns(progressColumns...).Values(progressValues(p)...).Suffix(upsertProgress)
	if _, err := execBuilder(ctx, s.db, q); err != nil {
		log.Error("failed to upsert progress: %v", err)
		return storageErr("upsert progress", err)
	}
	return nil
}

func (s *cacheStore) GetProgress(ctx context.Context, userID, flashcardID string) (*models.ReviewProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("cache_store")

	query, args, err := sqlBuilder.Select(progressColumns...).
		From("progress").
		Where(squirrel.Eq{"user_id": userID, "flashcard_id": flashcardID}).
		ToSql()
	if err != nil {
		return nil, storageErr("get progress", err)
	}

	var p models.ReviewProgress
	err = s.db.GetContext(ctx, &p, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("progress not cached: user_id=%s, flashcard_id=%s", userID, flashcardID)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get progress: %v", err)
		return nil, storageErr("get progress", err)
	}
	return &p, nil
}

func (s *cacheStore) ProgressByUser(ctx context.Context, userID string) ([]models.ReviewProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("cache_store")

	records := []models.ReviewProgress{}
	q := sqlBuilder.Select(progressColumns...).
		From("progress").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("flashcard_id")
	if err := selectBuilder(ctx, s.db, &records, q); err != nil {
		log.Error("failed to list progress: %v", err)
		return nil, storageErr("list progress", err)
	}
	log.Debug("found %d cached progress records: user_id=%s", len(records), userID)
	return records, nil
}

func (s *cacheStore) ReplaceProgress(ctx context.Context, userID string, records []models.ReviewProgress) error {
	log := logger.FromContext(ctx).WithPrefix("cache_store")
	log.Debug("replacing progress: user_id=%s, count=%d", userID, len(records))

	err := tx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := execBuilder(ctx, tx, sqlBuilder.Delete("progress").Where(squirrel.Eq{"user_id": userID})); err != nil {
			return err
		}
		for _, c := range chunks(len(records)) {
			q := sqlBuilder.Insert("progress").Columns(progressColumns...)
			for _, p := range records[c[0]:c[1]] {
				p.UserID = userID
				q = q.Values(progressValues(p)...)
			}
			if _, err := execBuilder(ctx, tx, q.Suffix(upsertProgress)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to replace progress: %v", err)
		return storageErr("replace progress", err)
	}
	return nil
}
