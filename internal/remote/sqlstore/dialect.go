package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect captures what differs between the supported relational backends.
type Dialect interface {
	// Name is the config value selecting the dialect.
	Name() string
	// DriverName returns the driver name for sql.Open.
	DriverName() string
	Placeholder() squirrel.PlaceholderFormat
	// Upsert returns the suffix turning an INSERT into an upsert on conflict
	// with key, overwriting cols.
	Upsert(key []string, cols []string) string
	// Schema returns the DDL statements creating the remote tables.
	Schema() []string
	ConfigureConnection(db *sql.DB)
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "postgres":
		return postgresDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	case "sqlite":
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unknown remote dialect %q", name)
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string                            { return "postgres" }
func (postgresDialect) DriverName() string                      { return "postgres" }
func (postgresDialect) Placeholder() squirrel.PlaceholderFormat { return squirrel.Dollar }

func (postgresDialect) Upsert(key, cols []string) string {
	return onConflictUpsert(key, cols)
}

func (postgresDialect) Schema() []string {
	return schema("TIMESTAMPTZ")
}

func (postgresDialect) ConfigureConnection(db *sql.DB) {
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string                            { return "mysql" }
func (mysqlDialect) DriverName() string                      { return "mysql" }
func (mysqlDialect) Placeholder() squirrel.PlaceholderFormat { return squirrel.Question }

func (mysqlDialect) Upsert(_ []string, cols []string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

// Schema for MySQL. The DSN must carry parseTime=true for timestamps to scan.
func (mysqlDialect) Schema() []string {
	return schema("DATETIME(6)")
}

func (mysqlDialect) ConfigureConnection(db *sql.DB) {
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string                            { return "sqlite" }
func (sqliteDialect) DriverName() string                      { return "sqlite3" }
func (sqliteDialect) Placeholder() squirrel.PlaceholderFormat { return squirrel.Question }

func (sqliteDialect) Upsert(key, cols []string) string {
	return onConflictUpsert(key, cols)
}

func (sqliteDialect) Schema() []string {
	return schema("DATETIME")
}

func (sqliteDialect) ConfigureConnection(db *sql.DB) {
	db.SetMaxOpenConns(1)
}

func onConflictUpsert(key, cols []string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(key, ", "), strings.Join(sets, ", "))
}

func schema(timestamp string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS levels (
    id VARCHAR(64) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    has_categories BOOLEAN NOT NULL DEFAULT FALSE
)`,
		`CREATE TABLE IF NOT EXISTS categories (
    id VARCHAR(64) PRIMARY KEY,
    level_id VARCHAR(64) NOT NULL,
    name VARCHAR(255) NOT NULL,
    slug VARCHAR(255) NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    UNIQUE (level_id, slug)
)`,
		`CREATE TABLE IF NOT EXISTS flashcards (
    id VARCHAR(64) PRIMARY KEY,
    level_id VARCHAR(64) NOT NULL,
    category_id VARCHAR(64),
    mode VARCHAR(32) NOT NULL,
    source_text TEXT NOT NULL,
    target_text TEXT NOT NULL,
    position INTEGER NOT NULL DEFAULT 0
)`,
		`CREATE TABLE IF NOT EXISTS user_progress (
    user_id VARCHAR(64) NOT NULL,
    flashcard_id VARCHAR(64) NOT NULL,
    repetition_count INTEGER NOT NULL DEFAULT 0,
    ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
    last_reviewed_at ` + timestamp + ` NOT NULL,
    next_due_at ` + timestamp + ` NOT NULL,
    PRIMARY KEY (user_id, flashcard_id)
)`,
	}
}
