package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/models"
)

func (s *cacheStore) GetFreshness(ctx context.Context, key string) (*models.CacheFreshness, error) {
	log := logger.FromContext(ctx).WithPrefix("cache_store")

	var f models.CacheFreshness
	err := s.db.GetContext(ctx, &f, `SELECT key, fetched_at FROM freshness WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("no freshness record: key=%s", key)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get freshness: %v", err)
		return nil, storageErr("get freshness", err)
	}
	return &f, nil
}

func (s *cacheStore) SetFreshness(ctx context.Context, key string, fetchedAt time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("cache_store")
	log.Debug("setting freshness: key=%s, fetched_at=%s", key, fetchedAt.Format(time.RFC3339))

	_, err := s.db.ExecContext(ctx, `
INSERT INTO freshness (key, fetched_at) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET fetched_at = excluded.fetched_at
`, key, fetchedAt.UTC())
	if err != nil {
		log.Error("failed to set freshness: %v", err)
		return storageErr("set freshness", err)
	}
	return nil
}

// DeleteFreshness removes every freshness record whose key starts with prefix.
func (s *cacheStore) DeleteFreshness(ctx context.Context, prefix string) error {
	log := logger.FromContext(ctx).WithPrefix("cache_store")

	n, err := execBuilder(ctx, s.db, freshnessDelete(prefix))
	if err != nil {
		log.Error("failed to delete freshness: %v", err)
		return storageErr("delete freshness", err)
	}
	log.Debug("deleted %d freshness records: prefix=%s", n, prefix)
	return nil
}

func freshnessDelete(prefix string) squirrel.DeleteBuilder {
	q := sqlBuilder.Delete("freshness")
	if prefix != "" {
		q = q.Where("substr(key, 1, ?) = ?", len(prefix), prefix)
	}
	return q
}
