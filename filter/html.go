package filter

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
)

// HTMLNodeFilter removes volatile parts of an HTML page. When Include
// selectors are set only the matching nodes are kept, otherwise the whole
// document is kept minus the Remove selectors.
type HTMLNodeFilter struct {
	include      []cascadia.Selector
	remove       []cascadia.Selector
	dropComments bool
}

// NewHTMLNodeFilter compiles the CSS selectors.
func NewHTMLNodeFilter(include, remove []string, dropComments bool) (*HTMLNodeFilter, error) {
	f := &HTMLNodeFilter{dropComments: dropComments}
	var err error
	if f.include, err = compileAll(include); err != nil {
		return nil, err
	}
	if f.remove, err = compileAll(remove); err != nil {
		return nil, err
	}
	return f, nil
}

func compileAll(exprs []string) ([]cascadia.Selector, error) {
	out := make([]cascadia.Selector, 0, len(exprs))
	for _, e := range exprs {
		sel, err := cascadia.Compile(e)
		if err != nil {
			return nil, fmt.Errorf("compiling selector %q: %w", e, err)
		}
		out = append(out, sel)
	}
	return out, nil
}

// Apply implements Filter.
func (f *HTMLNodeFilter) Apply(_ context.Context, in []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	root := doc.Selection
	for _, sel := range f.remove {
		root.FindMatcher(sel).Remove()
	}
	if f.dropComments {
		for _, n := range root.Nodes {
			dropComments(n)
		}
	}

	if len(f.include) == 0 {
		out, err := goquery.OuterHtml(root)
		if err != nil {
			return nil, fmt.Errorf("rendering html: %w", err)
		}
		return []byte(out), nil
	}

	var buf bytes.Buffer
	for _, sel := range f.include {
		var renderErr error
		root.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
			if renderErr != nil {
				return
			}
			out, err := goquery.OuterHtml(s)
			if err != nil {
				renderErr = err
				return
			}
			buf.WriteString(out)
			buf.WriteByte('\n')
		})
		if renderErr != nil {
			return nil, fmt.Errorf("rendering html: %w", renderErr)
		}
	}
	return buf.Bytes(), nil
}

func dropComments(n *xhtml.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == xhtml.CommentNode {
			n.RemoveChild(c)
		} else {
			dropComments(c)
		}
		c = next
	}
}

// TagStripFilter reduces HTML to its text content with whitespace collapsed.
type TagStripFilter struct {
	// bluemonday policies are not safe for concurrent use.
	policyPool sync.Pool
}

// NewTagStripFilter returns a TagStripFilter backed by a strict policy.
func NewTagStripFilter() *TagStripFilter {
	return &TagStripFilter{
		policyPool: sync.Pool{
			New: func() any {
				return bluemonday.StrictPolicy()
			},
		},
	}
}

// Apply implements Filter.
func (f *TagStripFilter) Apply(_ context.Context, in []byte) ([]byte, error) {
	policy := f.policyPool.Get().(*bluemonday.Policy)
	defer f.policyPool.Put(policy)
	text := policy.SanitizeBytes(in)
	return []byte(strings.TrimSpace(html.UnescapeString(whitespaceRegex.ReplaceAllString(string(text), " ")))), nil
}

var (
	_ Filter = (*HTMLNodeFilter)(nil)
	_ Filter = (*TagStripFilter)(nil)
)
