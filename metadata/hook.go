package metadata

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/iterator"
)

// HookContext is what a post-cook hook may look at besides the bag.
type HookContext struct {
	// URL is the document the bag was scanned from
	URL string
	// Files is the article the document belongs to, nil for a lone document
	Files  *iterator.ArticleFiles
	Config au.Config
}

// Hook adjusts a cooked record after the generic cook step. A hook receives
// its own copy of the record and returns the record to continue with; it must
// not keep references to raw or rec.
type Hook func(hc HookContext, raw *RawBag, rec *Record) *Record

// Override is applied after hooks; rules.RuleSet implements it.
type Override interface {
	Apply(rec *Record) *Record
}

var (
	hooksMu sync.RWMutex
	hooks   = map[string]Hook{}
)

// RegisterHook makes a hook available to plugin definitions by name.
func RegisterHook(name string, h Hook) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if _, dup := hooks[name]; dup {
		panic(fmt.Sprintf("metadata: hook %q registered twice", name))
	}
	hooks[name] = h
}

// LookupHook returns a registered hook.
func LookupHook(name string) (Hook, bool) {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	h, ok := hooks[name]
	return h, ok
}

// HookNames lists registered hooks in sorted order.
func HookNames() []string {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	names := make([]string, 0, len(hooks))
	for n := range hooks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetIfAbsent returns a hook filling field with value when the document did
// not declare it.
func SetIfAbsent(field, value string) Hook {
	return func(_ HookContext, _ *RawBag, rec *Record) *Record {
		if !rec.Has(field) {
			rec.Set(field, value)
		}
		return rec
	}
}

// ForceValue returns a hook that always sets field to value.
func ForceValue(field, value string) Hook {
	return func(_ HookContext, _ *RawBag, rec *Record) *Record {
		rec.Set(field, value)
		return rec
	}
}

// DOIFromURL fills a missing DOI from the document or full-text URL.
func DOIFromURL(hc HookContext, _ *RawBag, rec *Record) *Record {
	if rec.Has(FieldDOI) {
		return rec
	}
	candidates := []string{hc.URL}
	if hc.Files != nil {
		candidates = append(candidates, hc.Files.FullTextURL)
	}
	for _, u := range candidates {
		if doi, ok := FindDOI(u); ok {
			rec.Set(FieldDOI, doi)
			break
		}
	}
	return rec
}

func init() {
	RegisterHook("doi_from_url", DOIFromURL)
}
