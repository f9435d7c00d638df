package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS units (
	url          TEXT PRIMARY KEY,
	content_type TEXT NOT NULL DEFAULT '',
	body         BLOB NOT NULL
);`

// SQLite is a Store backed by a single SQLite table of URL, content type and
// body. It is convenient for shipping test AUs around as one file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) a SQLite content database.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Put implements Writer.
func (s *SQLite) Put(ctx context.Context, url, contentType string, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO units (url, content_type, body) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET content_type = excluded.content_type, body = excluded.body`,
		url, contentType, body)
	if err != nil {
		return fmt.Errorf("storing %s: %w", url, err)
	}
	return nil
}

// HasContent implements Store.
func (s *SQLite) HasContent(ctx context.Context, url string) bool {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM units WHERE url = ?`, url).Scan(&one)
	return err == nil
}

// Stat implements Store.
func (s *SQLite) Stat(ctx context.Context, url string) (Entry, error) {
	e := Entry{URL: url}
	err := s.db.QueryRowContext(ctx,
		`SELECT content_type, length(body) FROM units WHERE url = ?`, url).Scan(&e.ContentType, &e.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("stat %s: %w", url, err)
	}
	return e, nil
}

// Open implements Store.
func (s *SQLite) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM units WHERE url = ?`, url).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// List implements Store.
func (s *SQLite) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url FROM units WHERE substr(url, 1, length(?1)) = ?1 ORDER BY url`, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", prefix, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
