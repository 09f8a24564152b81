// Package sqldb implements the storage interfaces on database/sql.
// Two drivers are supported: PostgreSQL via lib/pq and SQLite via
// mattn/go-sqlite3. Queries are written with ? placeholders and rebound
// to $n for postgres.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/boazelbom-creator/etl2/storage"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// DB wraps a SQL database handle together with the driver it was opened
// with. The driver decides the placeholder style and schema dialect.
type DB struct {
	db     *sql.DB
	driver string
}

// Open opens a SQL database, verifies connectivity and ensures the
// pipeline schema exists. Supported drivers are "postgres" (lib/pq DSNs)
// and "sqlite3" (file paths or ":memory:"). The returned handle is shared
// by PostStore and ChunkSink and is closed by the caller.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// A second pool connection to :memory: would open a distinct
		// database, and file databases are single-writer anyway.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL"} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	d := &DB{db: db, driver: driver}
	if err := d.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return d, nil
}

// Close closes the underlying database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// initSchema creates the posts, comments and chunks tables if they do not
// exist. Chunk IDs are assigned by the database on insert.
func (d *DB) initSchema() error {
	chunkID := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d.driver == DriverPostgres {
		chunkID = "BIGSERIAL PRIMARY KEY"
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS posts (
		post_id TEXT PRIMARY KEY,
		timestamp TIMESTAMP,
		author TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		post_texts TEXT NOT NULL DEFAULT '',
		text_length BIGINT NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS comments (
		comment_id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL REFERENCES posts(post_id),
		timestamp TIMESTAMP,
		author TEXT NOT NULL DEFAULT '',
		comment_texts TEXT NOT NULL DEFAULT '',
		comment_priority BIGINT,
		text_length BIGINT NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);

	CREATE TABLE IF NOT EXISTS chunks (
		chunk_id %s,
		post_id TEXT NOT NULL,
		timestamp TIMESTAMP,
		full_chunk TEXT NOT NULL,
		engagement_score BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_post_id ON chunks(post_id);
	`, chunkID)

	if _, err := d.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// rebind converts ? placeholders to the $n form postgres expects.
// SQLite takes queries as written.
func (d *DB) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// verifyTables checks that the named tables exist and are readable.
func (d *DB) verifyTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		var count int64
		if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return fmt.Errorf("failed to verify table %s: %w", table, err)
		}
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	value := v.Int64
	return &value
}
