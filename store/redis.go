package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces content keys.
const DefaultRedisPrefix = "auplugins:content:"

// Redis is a Store keeping each URL in a hash with "content_type" and "body"
// fields under <prefix><url>.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// OpenRedis connects using a redis:// URL.
func OpenRedis(rawURL, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewRedis(redis.NewClient(opts), prefix), nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(url string) string {
	return r.prefix + url
}

// Put implements Writer.
func (r *Redis) Put(ctx context.Context, url, contentType string, body []byte) error {
	if err := r.client.HSet(ctx, r.key(url), "content_type", contentType, "body", body).Err(); err != nil {
		return fmt.Errorf("storing %s: %w", url, err)
	}
	return nil
}

// HasContent implements Store.
func (r *Redis) HasContent(ctx context.Context, url string) bool {
	n, err := r.client.Exists(ctx, r.key(url)).Result()
	return err == nil && n > 0
}

// Stat implements Store.
func (r *Redis) Stat(ctx context.Context, url string) (Entry, error) {
	key := r.key(url)
	ct, err := r.client.HGet(ctx, key, "content_type").Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("stat %s: %w", url, err)
	}
	size, err := r.client.HStrLen(ctx, key, "body").Result()
	if err != nil {
		return Entry{}, fmt.Errorf("stat %s: %w", url, err)
	}
	return Entry{URL: url, ContentType: ct, Size: size}, nil
}

// Open implements Store.
func (r *Redis) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	body, err := r.client.HGet(ctx, r.key(url), "body").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// List implements Store.
func (r *Redis) List(ctx context.Context, prefix string) ([]string, error) {
	match := globEscape(r.key(prefix)) + "*"
	var out []string
	iter := r.client.Scan(ctx, 0, match, 500).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", prefix, err)
	}
	sort.Strings(out)
	return out, nil
}

// globEscape escapes the Redis glob metacharacters in s.
func globEscape(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// String identifies the store in logs.
func (r *Redis) String() string {
	opts := r.client.Options()
	return "redis://" + opts.Addr + "/" + strconv.Itoa(opts.DB)
}
