// Package sqlstore is a remote.DataSource backed by a relational database
// shared by every client: PostgreSQL, MySQL or SQLite.
package sqlstore

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	apperrors "github.com/vytor/lingoflash/internal/errors"
	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/models"
	"github.com/vytor/lingoflash/internal/remote"
)

var (
	levelColumns     = []string{"id", "name", "position", "has_categories"}
	categoryColumns  = []string{"id", "level_id", "name", "slug", "position"}
	flashcardColumns = []string{"id", "level_id", "category_id", "mode", "source_text", "target_text", "position"}
	progressColumns  = []string{"user_id", "flashcard_id", "repetition_count", "ease_factor", "last_reviewed_at", "next_due_at"}
)

// batchSize bounds rows per multi-row statement so large admin batches stay
// under every dialect's bind parameter limit.
const batchSize = 200

// Store implements remote.DataSource over database/sql.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	sb      squirrel.StatementBuilderType
}

var _ remote.DataSource = (*Store)(nil)

// Open connects to the remote database using the named dialect.
func Open(dialectName, dsn string) (*Store, error) {
	d, err := DialectFor(dialectName)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s remote", d.Name())
	}
	d.ConfigureConnection(db.DB)
	return New(db, d), nil
}

// New wraps an already opened database.
func New(db *sqlx.DB, d Dialect) *Store {
	return &Store{
		db:      db,
		dialect: d,
		sb:      squirrel.StatementBuilder.PlaceholderFormat(d.Placeholder()),
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the remote tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("sqlstore")
	for _, stmt := range s.dialect.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			log.Error("failed to apply remote schema: %v", err)
			return errors.Wrap(err, "failed to apply remote schema")
		}
	}
	log.Debug("remote schema ready: dialect=%s", s.dialect.Name())
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fail("ping", err)
	}
	return nil
}

func (s *Store) ListLevels(ctx context.Context) ([]models.Level, error) {
	log := logger.FromContext(ctx).WithPrefix("sqlstore")
	log.Debug("listing levels")

	levels := []models.Level{}
	q := s.sb.Select(levelColumns...).From("levels").OrderBy("position", "id")
	if err := s.selectInto(ctx, &levels, q); err != nil {
		log.Error("failed to list levels: %v", err)
		return nil, fail("list levels", err)
	}
	return levels, nil
}

func (s *Store) ListCategories(ctx context.Context, levelID string) ([]models.Category, error) {
	log := logger.FromContext(ctx).WithPrefix("sqlstore")
	log.Debug("listing categories: level_id=%s", levelID)

	categories := []models.Category{}
	q := s.sb.Select(categoryColumns...).
		From("categories").
		Where(squirrel.Eq{"level_id": levelID}).
		OrderBy("position", "id")
	if err := s.selectInto(ctx, &categories, q); err != nil {
		log.Error("failed to list categories: %v", err)
		return nil, fail("list categories", err)
	}
	return categories, nil
}

func (s *Store) ListFlashcards(ctx context.Context, filter models.FlashcardFilter) ([]models.Flashcard, error) {
	log := logger.FromContext(ctx).WithPrefix("sqlstore")
	log.Debug("listing flashcards: level_id=%s, category_id=%s, mode=%s", filter.LevelID, filter.CategoryID, filter.Mode)

	q := s.sb.Select(flashcardColumns...).From("flashcards")
	if filter.LevelID != "" {
		q = q.Where(squirrel.Eq{"level_id": filter.LevelID})
	}
	if filter.CategoryID != "" {
		q = q.Where(squirrel.Eq{"category_id": filter.CategoryID})
	}
	if filter.Mode != "" {
		q = q.Where(squirrel.Eq{"mode": string(filter.Mode)})
	}

	cards := []models.Flashcard{}
	if err := s.selectInto(ctx, &cards, q.OrderBy("position", "id")); err != nil {
		log.Error("failed to list flashcards: %v", err)
		return nil, fail("list flashcards", err)
	}
	return cards, nil
}

func (s *Store) ListProgress(ctx context.Context, userID string) ([]models.ReviewProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("sqlstore")
	log.Debug("listing progress: user_id=%s", userID)

	records := []models.ReviewProgress{}
	q := s.sb.Select(progressColumns...).
		From("user_progress").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("flashcard_id")
	if err := s.selectInto(ctx, &records, q); err != nil {
		log.Error("failed to list progress: %v", err)
		return nil, fail("list progress", err)
	}
	for i := range records {
		confirm(&records[i])
	}
	return records, nil
}

func (s *Store) UpsertProgress(ctx context.Context, u models.ProgressUpsert) (models.ReviewProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("sqlstore")
	log.Debug("upserting progress: user_id=%s, flashcard_id=%s, rep=%d", u.UserID, u.FlashcardID, u.RepetitionCount)

	var stored models.ReviewProgress
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		ins := s.sb.Insert("user_progress").
			Columns(progressColumns...).
			Values(u.UserID, u.FlashcardID, u.RepetitionCount, u.EaseFactor, u.LastReviewedAt.UTC(), u.NextDueAt.UTC()).
			Suffix(s.dialect.Upsert(progressColumns[:2], progressColumns[2:]))
		if err := execIn(ctx, tx, ins); err != nil {
			return err
		}
		sel := s.sb.Select(progressColumns...).
			From("user_progress").
			Where(squirrel.Eq{"user_id": u.UserID, "flashcard_id": u.FlashcardID})
		query, args, err := sel.ToSql()
		if err != nil {
			return err
		}
		return tx.GetContext(ctx, &stored, query, args...)
	})
	if err != nil {
		log.Error("failed to upsert progress: %v", err)
		return models.ReviewProgress{}, fail("upsert progress", err)
	}
	confirm(&stored)
	return stored, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var c models.Category
	found, err := s.getOne(ctx, &c, s.sb.Select(categoryColumns...).From("categories").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, fail("get category", err)
	}
	if !found {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) GetFlashcard(ctx context.Context, id string) (*models.Flashcard, error) {
	var f models.Flashcard
	found, err := s.getOne(ctx, &f, s.sb.Select(flashcardColumns...).From("flashcards").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, fail("get flashcard", err)
	}
	if !found {
		return nil, nil
	}
	return &f, nil
}

func (s *Store) SaveLevel(ctx context.Context, level models.Level) error {
	logger.FromContext(ctx).WithPrefix("sqlstore").Debug("saving level: id=%s", level.ID)

	q := s.sb.Insert("levels").
		Columns(levelColumns...).
		Values(level.ID, level.Name, level.Position, level.HasCategories).
		Suffix(s.dialect.Upsert(levelColumns[:1], levelColumns[1:]))
	if err := execIn(ctx, s.db, q); err != nil {
		return fail("save level", err)
	}
	return nil
}

func (s *Store) CreateCategory(ctx context.Context, c models.Category) error {
	logger.FromContext(ctx).WithPrefix("sqlstore").Debug("creating category: id=%s, level_id=%s", c.ID, c.LevelID)

	q := s.sb.Insert("categories").
		Columns(categoryColumns...).
		Values(c.ID, c.LevelID, c.Name, c.Slug, c.Position)
	if err := execIn(ctx, s.db, q); err != nil {
		return fail("create category", err)
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c models.Category) error {
	logger.FromContext(ctx).WithPrefix("sqlstore").Debug("updating category: id=%s", c.ID)

	q := s.sb.Update("categories").
		Set("name", c.Name).
		Set("slug", c.Slug).
		Set("position", c.Position).
		Where(squirrel.Eq{"id": c.ID})
	if err := execIn(ctx, s.db, q); err != nil {
		return fail("update category", err)
	}
	return nil
}

// DeleteCategory removes the category together with its flashcards.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	logger.FromContext(ctx).WithPrefix("sqlstore").Debug("deleting category: id=%s", id)

	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		if err := execIn(ctx, tx, s.sb.Delete("flashcards").Where(squirrel.Eq{"category_id": id})); err != nil {
			return err
		}
		return execIn(ctx, tx, s.sb.Delete("categories").Where(squirrel.Eq{"id": id}))
	})
	if err != nil {
		return fail("delete category", err)
	}
	return nil
}

func (s *Store) CreateFlashcards(ctx context.Context, cards []models.Flashcard) error {
	logger.FromContext(ctx).WithPrefix("sqlstore").Debug("creating flashcards: count=%d", len(cards))
	if len(cards) == 0 {
		return nil
	}

	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(cards); start += batchSize {
			end := min(start+batchSize, len(cards))
			q := s.sb.Insert("flashcards").Columns(flashcardColumns...)
			for _, f := range cards[start:end] {
				q = q.Values(f.ID, f.LevelID, f.CategoryID, string(f.Mode), f.SourceText, f.TargetText, f.Position)
			}
			if err := execIn(ctx, tx, q); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fail("create flashcards", err)
	}
	return nil
}

func (s *Store) UpdateFlashcard(ctx context.Context, card models.Flashcard) error {
	logger.FromContext(ctx).WithPrefix("sqlstore").Debug("updating flashcard: id=%s", card.ID)

	q := s.sb.Update("flashcards").
		Set("category_id", card.CategoryID).
		Set("mode", string(card.Mode)).
		Set("source_text", card.SourceText).
		Set("target_text", card.TargetText).
		Set("position", card.Position).
		Where(squirrel.Eq{"id": card.ID})
	if err := execIn(ctx, s.db, q); err != nil {
		return fail("update flashcard", err)
	}
	return nil
}

func (s *Store) DeleteFlashcards(ctx context.Context, ids []string) error {
	logger.FromContext(ctx).WithPrefix("sqlstore").Debug("deleting flashcards: count=%d", len(ids))
	if len(ids) == 0 {
		return nil
	}

	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(ids); start += batchSize {
			end := min(start+batchSize, len(ids))
			if err := execIn(ctx, tx, s.sb.Delete("flashcards").Where(squirrel.Eq{"id": ids[start:end]})); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fail("delete flashcards", err)
	}
	return nil
}

func (s *Store) selectInto(ctx context.Context, dest interface{}, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build query")
	}
	return errors.WithStack(s.db.SelectContext(ctx, dest, query, args...))
}

func (s *Store) getOne(ctx context.Context, dest interface{}, b squirrel.Sqlizer) (bool, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return false, errors.Wrap(err, "failed to build query")
	}
	err = s.db.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

func (s *Store) tx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func execIn(ctx context.Context, ex sqlx.ExecerContext, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build statement")
	}
	_, err = ex.ExecContext(ctx, query, args...)
	return errors.WithStack(err)
}

// confirm marks a record as acknowledged by the server and normalises its times to UTC.
func confirm(p *models.ReviewProgress) {
	p.State = models.StateConfirmed
	p.QueueID = nil
	p.LastReviewedAt = p.LastReviewedAt.UTC()
	p.NextDueAt = p.NextDueAt.UTC()
}

func fail(op string, err error) error {
	return apperrors.TransientFetch("sqlstore: "+op, err)
}
