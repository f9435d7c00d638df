// Package links extracts outlinks from crawled HTML pages.
package links

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/normalize"
)

// Scope decides whether a link should be followed.
type Scope interface {
	Allow(url string) bool
}

// ScopeFunc adapts a function to Scope.
type ScopeFunc func(url string) bool

// Allow implements Scope.
func (f ScopeFunc) Allow(url string) bool {
	return f(url)
}

// linkAttrs lists which attribute carries a link for each element.
var linkAttrs = map[atom.Atom]string{
	atom.A:      "href",
	atom.Area:   "href",
	atom.Link:   "href",
	atom.Img:    "src",
	atom.Frame:  "src",
	atom.Iframe: "src",
	atom.Script: "src",
	atom.Embed:  "src",
	atom.Source: "src",
}

// Extractor finds, resolves and filters the links in an HTML page.
type Extractor struct {
	// Normalizer is applied to every resolved link. Nil leaves links as resolved.
	Normalizer normalize.Normalizer
	// Config is passed to Normalizer.
	Config au.Config
	// Scope drops links it does not allow. Nil allows all.
	Scope Scope
}

// Extract returns the unique links in the document read from r, in document
// order. Relative links are resolved against pageURL or the document's
// <base href>.
func (e *Extractor) Extract(ctx context.Context, pageURL string, r io.Reader) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing page url: %w", err)
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	if href := findBase(doc); href != "" {
		if b, err := base.Parse(href); err == nil {
			base = b
		}
	}

	var refs []string
	collect(doc, &refs)

	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		link, ok := resolve(base, ref)
		if !ok {
			continue
		}
		if e.Normalizer != nil {
			link = e.Normalizer.Normalize(link, e.Config)
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		if e.Scope != nil && !e.Scope.Allow(link) {
			continue
		}
		out = append(out, link)
	}
	return out, nil
}

func findBase(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Base {
		return attr(n, "href")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := findBase(c); href != "" {
			return href
		}
	}
	return ""
}

func collect(n *html.Node, out *[]string) {
	if n.Type == html.ElementNode {
		if key, ok := linkAttrs[n.DataAtom]; ok {
			if v := attr(n, key); v != "" {
				*out = append(*out, v)
			}
		}
		if n.DataAtom == atom.Meta && strings.EqualFold(attr(n, "http-equiv"), "refresh") {
			if v := refreshURL(attr(n, "content")); v != "" {
				*out = append(*out, v)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, out)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// refreshURL pulls the target out of a meta refresh value like
// "5; URL='/next.html'".
func refreshURL(content string) string {
	_, rest, ok := strings.Cut(content, ";")
	if !ok {
		return ""
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 4 || !strings.EqualFold(rest[:3], "url") {
		return ""
	}
	rest = strings.TrimSpace(rest[3:])
	rest, ok = strings.CutPrefix(rest, "=")
	if !ok {
		return ""
	}
	return strings.Trim(strings.TrimSpace(rest), `'"`)
}

func resolve(base *url.URL, ref string) (string, bool) {
	u, err := base.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}
