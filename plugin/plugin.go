// Package plugin ties the per-publisher strategies together: which URLs an
// archival unit crawls, how its articles are assembled, how their metadata
// is extracted and how their content is filtered for hashing.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/filter"
	"github.com/lehigh-university-libraries/auplugins/iterator"
	"github.com/lehigh-university-libraries/auplugins/links"
	"github.com/lehigh-university-libraries/auplugins/metadata"
	"github.com/lehigh-university-libraries/auplugins/normalize"
	"github.com/lehigh-university-libraries/auplugins/store"
)

// ErrUnknownPlugin is returned when a plugin ID is not registered.
var ErrUnknownPlugin = errors.New("unknown plugin")

// Parameter types.
const (
	ParamString = "string"
	ParamURL    = "url"
	ParamInt    = "int"
	ParamYear   = "year"
)

// ParamDescriptor declares one AU parameter the plugin reads.
type ParamDescriptor struct {
	Key         string `yaml:"key" json:"key"`
	DisplayName string `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
	Required    bool   `yaml:"required,omitempty" json:"required,omitempty"`
}

func (p ParamDescriptor) check(cfg au.Config) error {
	v, ok := cfg.Get(p.Key)
	if !ok {
		if p.Required {
			return &au.ParamError{Param: p.Key, Err: au.ErrMissingParam}
		}
		return nil
	}
	switch p.Type {
	case ParamURL:
		_, err := cfg.URL(p.Key)
		return err
	case ParamInt:
		_, err := cfg.Int(p.Key)
		return err
	case ParamYear:
		n, err := cfg.Int(p.Key)
		if err != nil {
			return err
		}
		if n < 1000 || n > 9999 {
			return &au.ParamError{Param: p.Key, Err: au.ErrInvalidParam, Detail: fmt.Sprintf("year %q out of range", v)}
		}
	}
	return nil
}

// CrawlRule includes or excludes URLs matching Pattern.
type CrawlRule struct {
	Include         bool
	Pattern         au.Template
	CaseInsensitive bool
}

// Include returns an including rule for the template string tmpl.
func Include(tmpl string) CrawlRule {
	return CrawlRule{Include: true, Pattern: au.MustParseTemplate(tmpl)}
}

// Exclude returns an excluding rule for the template string tmpl.
func Exclude(tmpl string) CrawlRule {
	return CrawlRule{Pattern: au.MustParseTemplate(tmpl)}
}

// Scope is a CrawlRule list compiled for one AU. The first matching rule
// decides; URLs matching no rule are excluded.
type Scope struct {
	rules []compiledRule
}

type compiledRule struct {
	include bool
	re      *regexp.Regexp
}

var _ links.Scope = (*Scope)(nil)

// Allow reports whether url is in the crawl.
func (s *Scope) Allow(url string) bool {
	for _, r := range s.rules {
		if r.re.MatchString(url) {
			return r.include
		}
	}
	return false
}

// Plugin is the complete strategy set for one publisher or platform.
type Plugin struct {
	ID        string
	Name      string
	Publisher string
	Params    []ParamDescriptor
	StartURLs []au.Template
	Rules     []CrawlRule
	Iterator  iterator.Spec

	// Metadata extractors by MIME type; "*" matches any type.
	Metadata map[string]*metadata.Extractor
	// MetadataRoles lists, in preference order, the article roles whose URL
	// metadata is extracted from. The full text URL is used when none is set.
	MetadataRoles []string

	// HashFilters by MIME type.
	HashFilters map[string]filter.Filter
	Normalizer  normalize.Normalizer
}

// DefaultMetadataRoles is used when a plugin sets no MetadataRoles.
var DefaultMetadataRoles = []string{
	iterator.RoleArticleMetadata,
	iterator.RoleFullTextXML,
	iterator.RoleFullTextHTML,
	iterator.RoleAbstract,
}

// CheckConfig verifies cfg against the declared parameters.
func (p *Plugin) CheckConfig(cfg au.Config) error {
	for _, d := range p.Params {
		if err := d.check(cfg); err != nil {
			return fmt.Errorf("plugin %s: %w", p.ID, err)
		}
	}
	return nil
}

// StartURLList expands the start URLs for cfg.
func (p *Plugin) StartURLList(cfg au.Config) ([]string, error) {
	out := make([]string, 0, len(p.StartURLs))
	for _, t := range p.StartURLs {
		u, err := t.Expand(cfg)
		if err != nil {
			return nil, fmt.Errorf("start url %s: %w", t, err)
		}
		out = append(out, u)
	}
	return out, nil
}

// Scope compiles the crawl rules for cfg.
func (p *Plugin) Scope(cfg au.Config) (*Scope, error) {
	s := &Scope{}
	for _, r := range p.Rules {
		re, err := r.Pattern.CompilePattern(cfg, r.CaseInsensitive)
		if err != nil {
			return nil, fmt.Errorf("crawl rule %s: %w", r.Pattern, err)
		}
		s.rules = append(s.rules, compiledRule{include: r.Include, re: re})
	}
	return s, nil
}

// NewIterator checks cfg and builds the article iterator over st.
func (p *Plugin) NewIterator(cfg au.Config, st store.Store) (*iterator.Iterator, error) {
	if err := p.CheckConfig(cfg); err != nil {
		return nil, err
	}
	return iterator.New(p.Iterator, cfg, st)
}

// NormalizeURL applies the plugin's normalizer, if any.
func (p *Plugin) NormalizeURL(raw string, cfg au.Config) string {
	if p.Normalizer == nil {
		return raw
	}
	return normalize.Chain{p.Normalizer}.Normalize(raw, cfg)
}

// LinkExtractor returns an extractor that normalizes links and keeps those
// in the AU's crawl scope.
func (p *Plugin) LinkExtractor(cfg au.Config) (*links.Extractor, error) {
	scope, err := p.Scope(cfg)
	if err != nil {
		return nil, err
	}
	e := &links.Extractor{Config: cfg}
	if p.Normalizer != nil {
		e.Normalizer = normalize.Chain{p.Normalizer}
	}
	if len(p.Rules) > 0 {
		e.Scope = scope
	}
	return e, nil
}

// Extractor returns the metadata extractor for mimeType.
func (p *Plugin) Extractor(mimeType string) (*metadata.Extractor, bool) {
	mt := baseMime(mimeType)
	if e, ok := p.Metadata[mt]; ok {
		return e, true
	}
	e, ok := p.Metadata["*"]
	return e, ok
}

// Filter returns the hash filter for mimeType, nil when content is hashed
// as is.
func (p *Plugin) Filter(mimeType string) filter.Filter {
	return p.HashFilters[baseMime(mimeType)]
}

// Hash returns the filtered content hash of url.
func (p *Plugin) Hash(ctx context.Context, st store.Store, url string) (string, error) {
	entry, err := st.Stat(ctx, url)
	if err != nil {
		return "", err
	}
	rc, err := st.Open(ctx, url)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return filter.Hash(ctx, p.Filter(entry.MimeType()), rc)
}

func baseMime(mt string) string {
	mt, _, _ = strings.Cut(mt, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
