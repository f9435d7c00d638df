package metadata

import "strings"

// RawBag holds the raw key/value pairs scanned from one document. Keys keep
// the order they were first seen in, and each key's values keep document
// order.
type RawBag struct {
	keys   []string
	values map[string][]string
}

// NewRawBag creates an empty bag.
func NewRawBag() *RawBag {
	return &RawBag{values: make(map[string][]string)}
}

// Add appends non-empty values under key.
func (b *RawBag) Add(key string, values ...string) {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := b.values[key]; !ok {
			b.keys = append(b.keys, key)
		}
		b.values[key] = append(b.values[key], v)
	}
}

// Get returns the values stored under key.
func (b *RawBag) Get(key string) []string {
	return b.values[key]
}

// First returns the first value stored under key, or "".
func (b *RawBag) First(key string) string {
	if vs := b.values[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Has reports whether key has at least one value.
func (b *RawBag) Has(key string) bool {
	return len(b.values[key]) > 0
}

// Keys returns the keys in first-seen order.
func (b *RawBag) Keys() []string {
	return append([]string(nil), b.keys...)
}

// Len returns the number of keys.
func (b *RawBag) Len() int {
	return len(b.keys)
}

// Merge appends every value of other to b.
func (b *RawBag) Merge(other *RawBag) {
	for _, k := range other.keys {
		b.Add(k, other.values[k]...)
	}
}
