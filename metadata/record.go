package metadata

import (
	"sort"
	"strings"
)

// Record is a cooked metadata record: canonical field name to value(s).
// Single-valued fields hold exactly one value.
type Record struct {
	fields map[string][]string
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{fields: make(map[string][]string)}
}

// Get returns the first value of field, or "".
func (r *Record) Get(field string) string {
	if vs := r.fields[field]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// GetAll returns a copy of all values of field.
func (r *Record) GetAll(field string) []string {
	return append([]string(nil), r.fields[field]...)
}

// Has reports whether field has a value.
func (r *Record) Has(field string) bool {
	return len(r.fields[field]) > 0
}

// Set replaces the value of field. An empty value deletes the field.
func (r *Record) Set(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		delete(r.fields, field)
		return
	}
	r.fields[field] = []string{value}
}

// SetAll replaces all values of field.
func (r *Record) SetAll(field string, values []string) {
	delete(r.fields, field)
	r.Add(field, values...)
}

// Add appends values to field, ignoring empty ones.
func (r *Record) Add(field string, values ...string) {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			r.fields[field] = append(r.fields[field], v)
		}
	}
}

// Delete removes field.
func (r *Record) Delete(field string) {
	delete(r.fields, field)
}

// Fields returns the populated field names in sorted order.
func (r *Record) Fields() []string {
	names := make([]string, 0, len(r.fields))
	for f := range r.fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of populated fields.
func (r *Record) Len() int {
	return len(r.fields)
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	out := &Record{fields: make(map[string][]string, len(r.fields))}
	for f, vs := range r.fields {
		out.fields[f] = append([]string(nil), vs...)
	}
	return out
}

// Values returns the first value of every field, the view override rules
// match against.
func (r *Record) Values() map[string]string {
	out := make(map[string]string, len(r.fields))
	for f := range r.fields {
		out[f] = r.Get(f)
	}
	return out
}

// Map returns the record as plain values: a string for single-valued
// fields and a []any of strings for multi-valued ones.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.fields))
	for f, vs := range r.fields {
		if fieldFor(f).Multi || len(vs) > 1 {
			list := make([]any, len(vs))
			for i, v := range vs {
				list[i] = v
			}
			out[f] = list
			continue
		}
		out[f] = vs[0]
	}
	return out
}
