package metadata

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/auplugins/mapping"
)

// FileExtractor scans one document into a raw bag.
type FileExtractor interface {
	Scan(ctx context.Context, r io.Reader) (*RawBag, error)
}

// MultiExtractor runs several extractors over the same document and merges
// their bags in order.
type MultiExtractor []FileExtractor

// Scan implements FileExtractor.
func (m MultiExtractor) Scan(ctx context.Context, r io.Reader) (*RawBag, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	bag := NewRawBag()
	for _, fe := range m {
		b, err := fe.Scan(ctx, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		bag.Merge(b)
	}
	return bag, nil
}

var _ FileExtractor = MultiExtractor(nil)

// Extractor is the full per-document pipeline: scan, cook, hooks, overrides.
type Extractor struct {
	File      FileExtractor
	CookMap   *mapping.CookMap
	Hooks     []Hook
	Overrides []Override
}

// Extract scans r and returns the finished record.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, hc HookContext) (*Record, error) {
	raw, err := e.File.Scan(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", hc.URL, err)
	}
	return e.Finish(hc, raw), nil
}

// Finish runs everything after the scan.
//
// Values the document declares win over hook defaults unless a hook forces
// them. Hooks run before override rules, and a rule marked force replaces
// even a declared value. The access URL defaults to the article's full text.
func (e *Extractor) Finish(hc HookContext, raw *RawBag) *Record {
	rec := Cook(raw, e.CookMap)
	for _, h := range e.Hooks {
		if out := h(hc, raw, rec.Clone()); out != nil {
			rec = out
		}
	}
	for _, o := range e.Overrides {
		rec = o.Apply(rec.Clone())
	}
	if !rec.Has(FieldAccessURL) {
		switch {
		case hc.Files != nil && hc.Files.FullTextURL != "":
			rec.Set(FieldAccessURL, hc.Files.FullTextURL)
		case hc.URL != "":
			rec.Set(FieldAccessURL, hc.URL)
		}
	}
	return rec
}
