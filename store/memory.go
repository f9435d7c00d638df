package store

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

type memEntry struct {
	contentType string
	body        []byte
}

// Memory is an in-memory Store, mostly useful in tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry)}
}

// Add stores body under url and returns m for chaining.
func (m *Memory) Add(url, contentType, body string) *Memory {
	_ = m.Put(context.Background(), url, contentType, []byte(body))
	return m
}

// Put implements Writer.
func (m *Memory) Put(_ context.Context, url, contentType string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[url] = memEntry{contentType: contentType, body: bytes.Clone(body)}
	return nil
}

// HasContent implements Store.
func (m *Memory) HasContent(_ context.Context, url string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[url]
	return ok
}

// Stat implements Store.
func (m *Memory) Stat(_ context.Context, url string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[url]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{URL: url, ContentType: e.contentType, Size: int64(len(e.body))}, nil
}

// Open implements Store.
func (m *Memory) Open(_ context.Context, url string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[url]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(e.body)), nil
}

// List implements Store.
func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for u := range m.entries {
		if strings.HasPrefix(u, prefix) {
			out = append(out, u)
		}
	}
	sort.Strings(out)
	return out, nil
}
