package metadata

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// XPathQuery maps a raw key to an XPath expression. Node-set results add one
// value per node; string, number and boolean results add a single value.
//
// When Parts is set, each selected element contributes the text of its named
// child elements, in Parts order, joined with Join. This is how structured
// names (surname, given-names) and dates (year, month, day) are flattened.
type XPathQuery struct {
	Key   string   `yaml:"key" json:"key"`
	Expr  string   `yaml:"xpath" json:"xpath"`
	Parts []string `yaml:"parts,omitempty" json:"parts,omitempty"`
	Join  string   `yaml:"join,omitempty" json:"join,omitempty"`
}

func (q XPathQuery) value(nav xpath.NodeNavigator) string {
	if len(q.Parts) == 0 {
		return NormalizeWhitespace(nav.Value())
	}
	xn, ok := nav.(*xmlquery.NodeNavigator)
	if !ok {
		return NormalizeWhitespace(nav.Value())
	}
	node := xn.Current()
	var parts []string
	for _, name := range q.Parts {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.ElementNode && c.Data == name {
				if t := NormalizeWhitespace(c.InnerText()); t != "" {
					parts = append(parts, t)
				}
				break
			}
		}
	}
	return strings.Join(parts, q.Join)
}

// XPathExtractor scans XML documents with precompiled XPath expressions.
type XPathExtractor struct {
	queries []XPathQuery
	exprs   []*xpath.Expr
}

var _ FileExtractor = (*XPathExtractor)(nil)

// NewXPathExtractor compiles queries, resolving prefixes through namespaces.
func NewXPathExtractor(queries []XPathQuery, namespaces map[string]string) (*XPathExtractor, error) {
	e := &XPathExtractor{queries: queries}
	for _, q := range queries {
		expr, err := xpath.CompileWithNS(q.Expr, namespaces)
		if err != nil {
			return nil, fmt.Errorf("xpath %s %q: %w", q.Key, q.Expr, err)
		}
		e.exprs = append(e.exprs, expr)
	}
	return e, nil
}

// Scan implements FileExtractor.
func (e *XPathExtractor) Scan(ctx context.Context, r io.Reader) (*RawBag, error) {
	doc, err := xmlquery.ParseWithOptions(r, xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{Strict: false},
	})
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	bag := NewRawBag()
	for i, expr := range e.exprs {
		if err := ctx.Err(); err != nil {
			return bag, err
		}
		key := e.queries[i].Key
		switch v := expr.Evaluate(xmlquery.CreateXPathNavigator(doc)).(type) {
		case *xpath.NodeIterator:
			for v.MoveNext() {
				bag.Add(key, e.queries[i].value(v.Current()))
			}
		case string:
			bag.Add(key, NormalizeWhitespace(v))
		case float64:
			bag.Add(key, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			if v {
				bag.Add(key, "true")
			}
		}
	}
	return bag, nil
}

// JATSQueries pulls article front matter out of JATS XML. Its keys are the
// raw keys of the "jats" cook map.
var JATSQueries = []XPathQuery{
	{Key: "journal-title", Expr: "/article/front/journal-meta//journal-title"},
	{Key: "issn-ppub", Expr: "/article/front/journal-meta/issn[@pub-type='ppub' or @publication-format='print']"},
	{Key: "issn-epub", Expr: "/article/front/journal-meta/issn[@pub-type='epub' or @publication-format='electronic']"},
	{Key: "publisher-name", Expr: "/article/front/journal-meta/publisher/publisher-name"},
	{Key: "article-doi", Expr: "/article/front/article-meta/article-id[@pub-id-type='doi']"},
	{Key: "article-title", Expr: "/article/front/article-meta/title-group/article-title"},
	{Key: "contrib-author", Expr: "/article/front/article-meta/contrib-group/contrib[@contrib-type='author']/name", Parts: []string{"surname", "given-names"}, Join: ", "},
	{Key: "volume", Expr: "/article/front/article-meta/volume"},
	{Key: "issue", Expr: "/article/front/article-meta/issue"},
	{Key: "fpage", Expr: "/article/front/article-meta/fpage"},
	{Key: "lpage", Expr: "/article/front/article-meta/lpage"},
	{Key: "elocation-id", Expr: "/article/front/article-meta/elocation-id"},
	{Key: "pub-date-epub", Expr: "/article/front/article-meta/pub-date[@pub-type='epub' or @publication-format='electronic']", Parts: []string{"year", "month", "day"}, Join: "-"},
	{Key: "pub-date-ppub", Expr: "/article/front/article-meta/pub-date[@pub-type='ppub' or @publication-format='print']", Parts: []string{"year", "month", "day"}, Join: "-"},
	{Key: "copyright-year", Expr: "/article/front/article-meta/permissions/copyright-year"},
	{Key: "kwd", Expr: "/article/front/article-meta/kwd-group/kwd"},
	{Key: "abstract", Expr: "/article/front/article-meta/abstract"},
	{Key: "article-type", Expr: "string(/article/@article-type)"},
	{Key: "self-uri-pdf", Expr: "/article/front/article-meta/self-uri[@content-type='pdf']/@*[local-name()='href']"},
}
