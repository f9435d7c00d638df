package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLMetaExtractor scans <meta name|property="..." content="..."> tags.
// Keys are kept as written; scanning stops at </head> unless WholeDocument is
// set, since some sites put citation tags in the body.
type HTMLMetaExtractor struct {
	WholeDocument bool
}

var _ FileExtractor = (*HTMLMetaExtractor)(nil)

// Scan implements FileExtractor.
func (e *HTMLMetaExtractor) Scan(ctx context.Context, r io.Reader) (*RawBag, error) {
	bag := NewRawBag()
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return bag, nil
			}
			return bag, z.Err()
		case html.EndTagToken:
			if !e.WholeDocument {
				if name, _ := z.TagName(); atom.Lookup(name) == atom.Head {
					return bag, nil
				}
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if atom.Lookup(name) != atom.Meta || !hasAttr {
				continue
			}
			var key, content string
			for {
				k, v, more := z.TagAttr()
				switch string(k) {
				case "name", "property":
					if key == "" {
						key = string(v)
					}
				case "content":
					content = string(v)
				}
				if !more {
					break
				}
			}
			if key != "" {
				bag.Add(key, content)
			}
			if err := ctx.Err(); err != nil {
				return bag, err
			}
		}
	}
}

// Selector maps a raw key to a CSS selector. When Attr is empty the matched
// elements' text is used.
type Selector struct {
	Key  string `yaml:"key" json:"key"`
	CSS  string `yaml:"css" json:"css"`
	Attr string `yaml:"attr,omitempty" json:"attr,omitempty"`
}

// SelectorExtractor scans a document with CSS selectors, for sites that keep
// bibliographic data in page markup rather than meta tags.
type SelectorExtractor struct {
	selectors []Selector
	compiled  []cascadia.Selector
}

var _ FileExtractor = (*SelectorExtractor)(nil)

// NewSelectorExtractor compiles the selectors.
func NewSelectorExtractor(selectors []Selector) (*SelectorExtractor, error) {
	e := &SelectorExtractor{selectors: selectors}
	for _, s := range selectors {
		sel, err := cascadia.Compile(s.CSS)
		if err != nil {
			return nil, fmt.Errorf("selector %s %q: %w", s.Key, s.CSS, err)
		}
		e.compiled = append(e.compiled, sel)
	}
	return e, nil
}

// Scan implements FileExtractor.
func (e *SelectorExtractor) Scan(_ context.Context, r io.Reader) (*RawBag, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	bag := NewRawBag()
	for i, s := range e.selectors {
		doc.FindMatcher(e.compiled[i]).Each(func(_ int, sel *goquery.Selection) {
			if s.Attr != "" {
				if v, ok := sel.Attr(s.Attr); ok {
					bag.Add(s.Key, strings.TrimSpace(v))
				}
				return
			}
			bag.Add(s.Key, NormalizeWhitespace(sel.Text()))
		})
	}
	return bag, nil
}
