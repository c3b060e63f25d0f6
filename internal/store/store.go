// Package store provides SQLite persistence for newsbell.
//
// Three pieces of durable state live here: the per-source checkpoints, the
// article cache and the unread counter. Commit writes checkpoints and cache
// in one transaction so neither can advance without the other.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/newsbell/internal/model"
)

// ErrNotFound is returned when an article id is not cached.
var ErrNotFound = errors.New("not found")

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: all methods are safe for concurrent use. Writes are
// serialized by mu so a read-then-write never interleaves with another.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

var memSeq atomic.Int64

// Open creates a Store at dbPath, creating tables if needed. ":memory:"
// opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	memory := dbPath == ":memory:"
	if memory {
		// A named shared-cache database, unique per Open, so every pooled
		// connection sees the same data and separate stores stay separate.
		connStr = fmt.Sprintf("file:newsbell-%d?mode=memory&cache=shared", memSeq.Add(1))
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if !memory {
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

// Instants are stored as unix nanoseconds so MAX() and ORDER BY compare
// them numerically; the *_iso columns carry the RFC 3339 form for readers.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		title TEXT NOT NULL,
		excerpt TEXT,
		author TEXT,
		link TEXT,
		thumbnail TEXT,
		categories TEXT,
		guid TEXT,
		description TEXT,
		date_ns INTEGER NOT NULL,
		date_iso TEXT NOT NULL,
		fetched_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_articles_date ON articles(date_ns DESC);
	CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);

	CREATE TABLE IF NOT EXISTS checkpoints (
		source TEXT PRIMARY KEY,
		at_ns INTEGER NOT NULL,
		at_iso TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	);

	INSERT OR IGNORE INTO meta (key, value) VALUES ('unread', 0);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Checkpoints returns every stored checkpoint.
func (s *Store) Checkpoints(ctx context.Context) (model.Checkpoints, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT source, at_ns FROM checkpoints`)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	cps := make(model.Checkpoints)
	for rows.Next() {
		var (
			source string
			ns     int64
		)
		if err := rows.Scan(&source, &ns); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cps[source] = time.Unix(0, ns).UTC()
	}
	return cps, rows.Err()
}

// Commit upserts articles into the cache and advances checkpoints, in one
// transaction. A stored checkpoint is never lowered: each source keeps
// MAX(stored, given).
func (s *Store) Commit(ctx context.Context, cps model.Checkpoints, articles []model.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	if err := upsertArticles(ctx, tx, articles, s.now()); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO checkpoints (source, at_ns, at_iso) VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			at_ns = MAX(at_ns, excluded.at_ns),
			at_iso = CASE WHEN excluded.at_ns > at_ns THEN excluded.at_iso ELSE at_iso END
	`)
	if err != nil {
		return fmt.Errorf("prepare checkpoint upsert: %w", err)
	}
	defer stmt.Close()

	for source, at := range cps {
		if _, err := stmt.ExecContext(ctx, source, at.UnixNano(), model.FormatTime(at)); err != nil {
			return fmt.Errorf("upsert checkpoint %s: %w", source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func upsertArticles(ctx context.Context, tx *sql.Tx, articles []model.Article, fetched time.Time) error {
	if len(articles) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (
			id, source, title, excerpt, author, link, thumbnail,
			categories, guid, description, date_ns, date_iso, fetched_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			title = excluded.title,
			excerpt = excluded.excerpt,
			author = excluded.author,
			link = excluded.link,
			thumbnail = excluded.thumbnail,
			categories = excluded.categories,
			guid = excluded.guid,
			description = excluded.description,
			date_ns = excluded.date_ns,
			date_iso = excluded.date_iso,
			fetched_ns = excluded.fetched_ns
	`)
	if err != nil {
		return fmt.Errorf("prepare article upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range articles {
		cats, err := json.Marshal(a.Categories)
		if err != nil {
			return fmt.Errorf("encode categories %s: %w", a.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			a.ID, a.Source, a.Title, a.Excerpt, a.Author, a.Link, a.Thumbnail,
			string(cats), a.GUID, a.Description,
			a.Date.UnixNano(), a.ISODate(), fetched.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("upsert article %s: %w", a.ID, err)
		}
	}
	return nil
}

const articleColumns = `id, source, title, excerpt, author, link, thumbnail,
	categories, guid, description, date_ns`

// Articles returns cached articles newest first. limit <= 0 means all.
func (s *Store) Articles(ctx context.Context, limit int) ([]model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	return s.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM articles ORDER BY date_ns DESC, id LIMIT ?`, limit)
}

// Article returns one cached article.
func (s *Store) Article(ctx context.Context, id string) (model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := s.queryArticles(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	if err != nil {
		return model.Article{}, err
	}
	if len(found) == 0 {
		return model.Article{}, fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	return found[0], nil
}

// Count returns the number of cached articles.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n)
	return n, err
}

// Prune deletes cached articles dated before cutoff and returns how many
// were removed. Checkpoints are untouched.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE date_ns < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// queryArticles executes a query and scans results into Articles.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) queryArticles(ctx context.Context, query string, args ...any) ([]model.Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var (
			a                            model.Article
			excerpt, author, link, thumb sql.NullString
			cats, guid, description      sql.NullString
			ns                           int64
		)
		err := rows.Scan(&a.ID, &a.Source, &a.Title, &excerpt, &author, &link, &thumb,
			&cats, &guid, &description, &ns)
		if err != nil {
			return nil, err
		}
		a.Excerpt = excerpt.String
		a.Author = author.String
		a.Link = link.String
		a.Thumbnail = thumb.String
		a.GUID = guid.String
		a.Description = description.String
		a.Date = time.Unix(0, ns).UTC()
		if cats.Valid && cats.String != "" && cats.String != "null" {
			if err := json.Unmarshal([]byte(cats.String), &a.Categories); err != nil {
				return nil, fmt.Errorf("decode categories %s: %w", a.ID, err)
			}
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

const unreadKey = "unread"

// AddUnread atomically adds n to the unread counter and returns the result.
func (s *Store) AddUnread(ctx context.Context, n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v int
	err := s.db.QueryRowContext(ctx,
		`UPDATE meta SET value = MAX(0, value + ?) WHERE key = ? RETURNING value`, n, unreadKey).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("add unread: %w", err)
	}
	return v, nil
}

// ResetUnread sets the unread counter to zero.
func (s *Store) ResetUnread(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `UPDATE meta SET value = 0 WHERE key = ?`, unreadKey); err != nil {
		return fmt.Errorf("reset unread: %w", err)
	}
	return nil
}

// Unread returns the unread counter.
func (s *Store) Unread(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, unreadKey).Scan(&v); err != nil {
		return 0, fmt.Errorf("read unread: %w", err)
	}
	return v, nil
}
