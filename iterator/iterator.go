package iterator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/store"
)

// State is the position of one URL in the assembly state machine.
type State int

const (
	StateScanning State = iota
	StateMatched
	StateEmitted
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateMatched:
		return "matched"
	case StateEmitted:
		return "emitted"
	case StateSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Spec describes an article iterator independently of any AU.
type Spec struct {
	// Roots are the URL prefixes scanned for the AU.
	Roots []au.Template `yaml:"roots" json:"roots"`
	// Pattern is the inclusion pattern. An empty pattern includes everything
	// under the roots.
	Pattern         au.Template  `yaml:"pattern" json:"pattern"`
	CaseInsensitive bool         `yaml:"case_insensitive,omitempty" json:"case_insensitive,omitempty"`
	Aspects         []AspectSpec `yaml:"aspects" json:"aspects"`
	// FullTextFromRoles lists, in preference order, the roles that may serve
	// as the article's full text. When set, records without any of them are
	// dropped.
	FullTextFromRoles  []string            `yaml:"full_text_from_roles,omitempty" json:"full_text_from_roles,omitempty"`
	RoleFromOtherRoles map[string][]string `yaml:"role_from_other_roles,omitempty" json:"role_from_other_roles,omitempty"`
	// RequireRoles drops records that populate none of the listed roles.
	RequireRoles []string `yaml:"require_roles,omitempty" json:"require_roles,omitempty"`
}

// Stats counts what happened to the URLs an iterator has seen.
type Stats struct {
	Scanned          int
	OutOfScope       int
	Unmatched        int
	SentinelSkipped  int
	DuplicateSkipped int
	Incomplete       int
	Emitted          int
}

// Skipped is the total number of URLs that produced no record.
func (s Stats) Skipped() int {
	return s.OutOfScope + s.Unmatched + s.SentinelSkipped + s.DuplicateSkipped + s.Incomplete
}

// Iterator assembles ArticleFiles for one AU. An Iterator keeps running
// statistics and must not be shared between goroutines; the Spec it was built
// from can be.
type Iterator struct {
	spec    Spec
	roots   []string
	pattern *regexp.Regexp
	aspects []*Aspect
	store   store.Store
	stats   Stats

	// covered holds the role URLs of records already emitted.
	covered map[string]struct{}
}

// New compiles spec against cfg. A missing or malformed AU parameter is
// returned as an *au.ParamError.
func New(spec Spec, cfg au.Config, st store.Store) (*Iterator, error) {
	if len(spec.Aspects) == 0 {
		return nil, fmt.Errorf("iterator has no aspects")
	}
	it := &Iterator{spec: spec, store: st, covered: make(map[string]struct{})}
	for _, r := range spec.Roots {
		root, err := r.Expand(cfg)
		if err != nil {
			return nil, fmt.Errorf("expanding root %s: %w", r, err)
		}
		it.roots = append(it.roots, root)
	}
	if len(it.roots) == 0 {
		base, err := cfg.Require(au.ParamBaseURL)
		if err != nil {
			return nil, err
		}
		it.roots = []string{base}
	}
	if spec.Pattern.Format != "" {
		re, err := spec.Pattern.CompilePattern(cfg, spec.CaseInsensitive)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %s: %w", spec.Pattern, err)
		}
		it.pattern = re
	}
	for _, as := range spec.Aspects {
		a, err := as.Compile(cfg, spec.CaseInsensitive)
		if err != nil {
			return nil, err
		}
		it.aspects = append(it.aspects, a)
	}
	return it, nil
}

// Roots returns the expanded root URLs.
func (it *Iterator) Roots() []string {
	return it.roots
}

// Aspects returns the compiled aspects in declaration order.
func (it *Iterator) Aspects() []*Aspect {
	return it.aspects
}

// Stats returns the counts accumulated so far.
func (it *Iterator) Stats() Stats {
	return it.stats
}

// InScope reports whether url matches the inclusion pattern.
func (it *Iterator) InScope(url string) bool {
	return it.pattern == nil || it.pattern.MatchString(url)
}

// Match returns the first aspect matching url.
func (it *Iterator) Match(url string) (Match, bool) {
	return MatchAspects(it.aspects, url)
}

// Process runs one URL through the state machine and returns the record when
// the URL is the representative of an article.
func (it *Iterator) Process(ctx context.Context, url string) (*ArticleFiles, State) {
	it.stats.Scanned++
	if !it.InScope(url) {
		it.stats.OutOfScope++
		return nil, StateSkipped
	}

	m, ok := it.Match(url)
	if !ok {
		slog.Debug("no aspect matched", "url", url)
		it.stats.Unmatched++
		return nil, StateSkipped
	}
	matched := it.aspects[m.Aspect]
	if rule, skip := matched.skipped(m); skip {
		slog.Debug("skipping non-article url", "url", url, "group", rule.Group, "value", m.Group(rule.Group))
		it.stats.SentinelSkipped++
		return nil, StateSkipped
	}

	// Companions cannot always be computed backwards (an abstract URL need
	// not carry its PDF's id), so URLs already attached to a record count too.
	if _, ok := it.covered[url]; ok {
		slog.Debug("url already attached to an article", "url", url)
		it.stats.DuplicateSkipped++
		return nil, StateSkipped
	}

	// A higher-priority aspect's file for the same article emits the record.
	for i := 0; i < m.Aspect; i++ {
		for _, c := range Companions(m, it.aspects[i]) {
			if c != url && it.store.HasContent(ctx, c) {
				slog.Debug("article emitted from another url", "url", url, "companion", c)
				it.stats.DuplicateSkipped++
				return nil, StateSkipped
			}
		}
	}

	af := NewArticleFiles()
	for _, role := range matched.Roles {
		af.SetRoleURL(role, url)
	}
	for i, other := range it.aspects {
		if i == m.Aspect {
			continue
		}
		for _, c := range Companions(m, other) {
			if !it.store.HasContent(ctx, c) {
				continue
			}
			for _, role := range other.Roles {
				if !af.HasRole(role) {
					af.SetRoleURL(role, c)
				}
			}
			break
		}
	}

	derived := make([]string, 0, len(it.spec.RoleFromOtherRoles))
	for role := range it.spec.RoleFromOtherRoles {
		derived = append(derived, role)
	}
	sort.Strings(derived)
	for _, role := range derived {
		if af.HasRole(role) {
			continue
		}
		if _, u := af.FirstRoleURL(it.spec.RoleFromOtherRoles[role]...); u != "" {
			af.SetRoleURL(role, u)
		}
	}

	if len(it.spec.FullTextFromRoles) > 0 {
		_, full := af.FirstRoleURL(it.spec.FullTextFromRoles...)
		if full == "" {
			slog.Debug("no full text for article", "url", url, "roles", af.Roles())
			it.stats.Incomplete++
			return nil, StateSkipped
		}
		af.FullTextURL = full
	} else {
		af.FullTextURL = url
	}
	if len(it.spec.RequireRoles) > 0 {
		if r, _ := af.FirstRoleURL(it.spec.RequireRoles...); r == "" {
			slog.Debug("article lacks required roles", "url", url, "required", it.spec.RequireRoles)
			it.stats.Incomplete++
			return nil, StateSkipped
		}
	}

	for _, role := range af.Roles() {
		it.covered[af.RoleURL(role)] = struct{}{}
	}
	it.stats.Emitted++
	return af, StateEmitted
}

// Each lists every root in the store and calls fn for each assembled record.
// URLs reachable from more than one root are processed once. An error from
// fn or the store stops the scan.
func (it *Iterator) Each(ctx context.Context, fn func(*ArticleFiles) error) error {
	seen := make(map[string]struct{})
	for _, root := range it.roots {
		urls, err := it.store.List(ctx, root)
		if err != nil {
			return fmt.Errorf("listing %s: %w", root, err)
		}
		for _, u := range urls {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			af, state := it.Process(ctx, u)
			if state != StateEmitted {
				continue
			}
			if err := fn(af); err != nil {
				return err
			}
		}
	}
	return nil
}

// Collect returns every record Each would produce.
func (it *Iterator) Collect(ctx context.Context) ([]*ArticleFiles, error) {
	var out []*ArticleFiles
	err := it.Each(ctx, func(af *ArticleFiles) error {
		out = append(out, af)
		return nil
	})
	return out, err
}
