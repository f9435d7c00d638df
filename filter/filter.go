// Package filter strips volatile content before a unit is hashed, so that
// two crawls of the same article compare equal even when the site changes
// session tokens, ads, timestamps or PDF metadata between visits.
package filter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Filter transforms one unit's content.
type Filter interface {
	Apply(ctx context.Context, in []byte) ([]byte, error)
}

// Func adapts a function to Filter.
type Func func(ctx context.Context, in []byte) ([]byte, error)

// Apply implements Filter.
func (f Func) Apply(ctx context.Context, in []byte) ([]byte, error) {
	return f(ctx, in)
}

// Chain applies filters in order.
type Chain []Filter

// Apply implements Filter.
func (c Chain) Apply(ctx context.Context, in []byte) ([]byte, error) {
	var err error
	for _, f := range c {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if in, err = f.Apply(ctx, in); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// Safe wraps f so that a failure on unexpected content leaves the content
// unchanged instead of failing the hash.
func Safe(f Filter) Filter {
	return Func(func(ctx context.Context, in []byte) ([]byte, error) {
		out, err := f.Apply(ctx, in)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("filter failed, passing content through", "filter", fmt.Sprintf("%T", f), "error", err)
			return in, nil
		}
		return out, nil
	})
}

// Hash reads r, filters it and returns the hex xxhash64 of the result.
func Hash(ctx context.Context, f Filter, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	if f != nil {
		if data, err = f.Apply(ctx, data); err != nil {
			return "", err
		}
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], xxhash.Sum64(data))
	return hex.EncodeToString(b[:]), nil
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// WhitespaceFilter collapses runs of whitespace to one space and trims.
type WhitespaceFilter struct{}

// Apply implements Filter.
func (WhitespaceFilter) Apply(_ context.Context, in []byte) ([]byte, error) {
	return []byte(strings.TrimSpace(whitespaceRegex.ReplaceAllString(string(in), " "))), nil
}

// ReplaceFilter replaces a literal string or, when Pattern is set, every
// match of a regular expression.
type ReplaceFilter struct {
	Old     string
	New     string
	Pattern *regexp.Regexp
}

// Apply implements Filter.
func (r ReplaceFilter) Apply(_ context.Context, in []byte) ([]byte, error) {
	if r.Pattern != nil {
		return r.Pattern.ReplaceAll(in, []byte(r.New)), nil
	}
	if r.Old == "" {
		return in, nil
	}
	return []byte(strings.ReplaceAll(string(in), r.Old, r.New)), nil
}

var (
	_ Filter = Chain(nil)
	_ Filter = WhitespaceFilter{}
	_ Filter = ReplaceFilter{}
)
