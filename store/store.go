// Package store adapts content repositories to the read-only view plugins
// need of an archival unit: whether a URL has content, what type it is, and
// what its bytes are.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned when a URL has no stored content.
var ErrNotFound = errors.New("no content for url")

// Entry describes one stored URL.
type Entry struct {
	URL         string
	ContentType string
	Size        int64
}

// MimeType returns the content type without parameters (e.g. "; charset=utf-8").
func (e Entry) MimeType() string {
	mt, _, _ := strings.Cut(e.ContentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// Store is the consumed view of the host's content repository.
type Store interface {
	// HasContent reports whether url has stored content.
	HasContent(ctx context.Context, url string) bool

	// Stat returns the entry for url or ErrNotFound.
	Stat(ctx context.Context, url string) (Entry, error)

	// Open returns the stored bytes for url. The caller closes the reader.
	Open(ctx context.Context, url string) (io.ReadCloser, error)

	// List returns all stored URLs starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Writer stores content.
type Writer interface {
	Put(ctx context.Context, url, contentType string, body []byte) error
}

// ReadAll opens url and reads its content.
func ReadAll(ctx context.Context, s Store, url string) ([]byte, error) {
	rc, err := s.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return data, nil
}

// Copy writes every URL under prefix from src into dst and returns the count.
func Copy(ctx context.Context, dst Writer, src Store, prefix string) (int, error) {
	urls, err := src.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("listing source: %w", err)
	}
	n := 0
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		entry, err := src.Stat(ctx, u)
		if err != nil {
			return n, err
		}
		body, err := ReadAll(ctx, src, u)
		if err != nil {
			return n, err
		}
		if err := dst.Put(ctx, u, entry.ContentType, body); err != nil {
			return n, fmt.Errorf("storing %s: %w", u, err)
		}
		n++
	}
	return n, nil
}

// Open opens a store from a spec string:
//
//	dir:/path/to/mirror
//	sqlite:/path/to/content.db
//	redis://localhost:6379/0
func Open(spec string) (Store, error) {
	switch {
	case strings.HasPrefix(spec, "dir:"):
		return NewDir(strings.TrimPrefix(spec, "dir:")), nil
	case strings.HasPrefix(spec, "sqlite:"):
		return OpenSQLite(strings.TrimPrefix(spec, "sqlite:"))
	case strings.HasPrefix(spec, "redis://"), strings.HasPrefix(spec, "rediss://"):
		return OpenRedis(spec, DefaultRedisPrefix)
	default:
		return nil, fmt.Errorf("unknown store spec %q (want dir:, sqlite: or redis://)", spec)
	}
}
