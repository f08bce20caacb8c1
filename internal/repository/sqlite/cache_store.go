package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/models"
	"github.com/vytor/lingoflash/internal/repository"
)

var kindTables = map[models.EntityKind]string{
	models.KindLevels:     "levels",
	models.KindCategories: "categories",
	models.KindFlashcards: "flashcards",
	models.KindProgress:   "progress",
	models.KindMutations:  "pending_mutations",
	models.KindFreshness:  "freshness",
}

type cacheStore struct {
	db *sqlx.DB
}

// NewCacheStore creates a CacheStore over an opened cache database.
func NewCacheStore(db *sqlx.DB) repository.CacheStore {
	return &cacheStore{db: db}
}

// Clear empties the store for kind. Clearing a queried kind also drops the
// freshness records of its query keys so the next read goes remote.
func (s *cacheStore) Clear(ctx context.Context, kind models.EntityKind) error {
	log := logger.FromContext(ctx).WithPrefix("cache_store")
	log.Info("clearing cache: kind=%s", kind)

	kinds := []models.EntityKind{kind}
	if kind == models.KindAll {
		kinds = models.EntityKinds
	} else if _, ok := kindTables[kind]; !ok {
		return fmt.Errorf("unknown entity kind %q", kind)
	}

	err := tx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, k := range kinds {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+kindTables[k]); err != nil {
				return err
			}
			if prefix := models.QueryKeyPrefix(k); prefix != "" {
				if _, err := execBuilder(ctx, tx, freshnessDelete(prefix)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to clear cache: %v", err)
		return storageErr("clear "+string(kind), err)
	}
	return nil
}

// Stats counts the rows held for every entity kind. For mutations only
// pending entries are counted.
func (s *cacheStore) Stats(ctx context.Context) (map[models.EntityKind]int, error) {
	log := logger.FromContext(ctx).WithPrefix("cache_store")

	stats := make(map[models.EntityKind]int, len(kindTables))
	for _, k := range models.EntityKinds {
		query := "SELECT COUNT(*) FROM " + kindTables[k]
		if k == models.KindMutations {
			query += " WHERE synced = 0"
		}
		var n int
		if err := s.db.GetContext(ctx, &n, query); err != nil {
			log.Error("failed to count %s: %v", k, err)
			return nil, storageErr("stats", err)
		}
		stats[k] = n
	}
	return stats, nil
}
