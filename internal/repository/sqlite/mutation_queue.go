package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/models"
)

type mutationRow struct {
	ID         string       `db:"id"`
	Payload    string       `db:"payload"`
	EnqueuedAt time.Time    `db:"enqueued_at"`
	Synced     bool         `db:"synced"`
	SyncedAt   sql.NullTime `db:"synced_at"`
}

func (r mutationRow) toModel() (models.PendingMutation, error) {
	m := models.PendingMutation{
		ID:         r.ID,
		EnqueuedAt: r.EnqueuedAt,
		Synced:     r.Synced,
	}
	if r.SyncedAt.Valid {
		t := r.SyncedAt.Time
		m.SyncedAt = &t
	}
	if err := json.Unmarshal([]byte(r.Payload), &m.Payload); err != nil {
		return m, fmt.Errorf("decode mutation %s: %w", r.ID, err)
	}
	return m, nil
}

func (s *cacheStore) EnqueueMutation(ctx context.Context, payload models.ProgressUpsert, enqueuedAt time.Time) (string, error) {
	log := logger.FromContext(ctx).WithPrefix("mutation_queue")

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode mutation: %w", err)
	}

	id := uuid.NewString()
	q := sqlBuilder.Insert("pending_mutations").
		Columns("id", "payload", "enqueued_at").
		Values(id, string(body), enqueuedAt.UTC())
	if _, err := execBuilder(ctx, s.db, q); err != nil {
		log.Error("failed to enqueue mutation: %v", err)
		return "", storageErr("enqueue mutation", err)
	}
	log.Debug("mutation enqueued: id=%s, user_id=%s, flashcard_id=%s", id, payload.UserID, payload.FlashcardID)
	return id, nil
}

func (s *cacheStore) ListPendingMutations(ctx context.Context) ([]models.PendingMutation, error) {
	log := logger.FromContext(ctx).WithPrefix("mutation_queue")

	var rows []mutationRow
	q := sqlBuilder.Select("id", "payload", "enqueued_at", "synced", "synced_at").
		From("pending_mutations").
		Where("synced = 0").
		OrderBy("seq")
	if err := selectBuilder(ctx, s.db, &rows, q); err != nil {
		log.Error("failed to list pending mutations: %v", err)
		return nil, storageErr("list pending mutations", err)
	}

	pending := make([]models.PendingMutation, 0, len(rows))
	for _, r := range rows {
		m, err := r.toModel()
		if err != nil {
			log.Warn("skipping undecodable mutation: %v", err)
			continue
		}
		pending = append(pending, m)
	}
	log.Debug("found %d pending mutations", len(pending))
	return pending, nil
}

func (s *cacheStore) MarkMutationSynced(ctx context.Context, id string, syncedAt time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("mutation_queue")

	q := sqlBuilder.Update("pending_mutations").
		Set("synced", true).
		Set("synced_at", syncedAt.UTC()).
		Where("id = ?", id)
	n, err := execBuilder(ctx, s.db, q)
	if err != nil {
		log.Error("failed to mark mutation synced: %v", err)
		return storageErr("mark mutation synced", err)
	}
	if n == 0 {
		log.Warn("mutation not found when marking synced: id=%s", id)
	}
	return nil
}

func (s *cacheStore) PurgeSynced(ctx context.Context) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("mutation_queue")

	n, err := execBuilder(ctx, s.db, sqlBuilder.Delete("pending_mutations").Where("synced = 1"))
	if err != nil {
		log.Error("failed to purge synced mutations: %v", err)
		return 0, storageErr("purge synced mutations", err)
	}
	log.Debug("purged %d synced mutations", n)
	return n, nil
}
