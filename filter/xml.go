package filter

import (
	"context"
	"fmt"

	"github.com/beevik/etree"
)

// XMLElementFilter removes every element matched by the given etree paths.
type XMLElementFilter struct {
	paths []etree.Path
}

// NewXMLElementFilter compiles the element paths, e.g. "//processing-meta"
// or "./article/front/article-meta/history".
func NewXMLElementFilter(paths ...string) (*XMLElementFilter, error) {
	f := &XMLElementFilter{}
	for _, p := range paths {
		path, err := etree.CompilePath(p)
		if err != nil {
			return nil, fmt.Errorf("compiling path %q: %w", p, err)
		}
		f.paths = append(f.paths, path)
	}
	return f, nil
}

// Apply implements Filter.
func (f *XMLElementFilter) Apply(_ context.Context, in []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(in); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	for _, p := range f.paths {
		for _, el := range doc.FindElementsPath(p) {
			if parent := el.Parent(); parent != nil {
				parent.RemoveChild(el)
			}
		}
	}
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize XML: %w", err)
	}
	return out, nil
}

var _ Filter = (*XMLElementFilter)(nil)
