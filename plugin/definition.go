package plugin

import (
	"fmt"
	"os"

	"cloudeng.io/errors"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/filter"
	"github.com/lehigh-university-libraries/auplugins/iterator"
	"github.com/lehigh-university-libraries/auplugins/mapping"
	"github.com/lehigh-university-libraries/auplugins/metadata"
	"github.com/lehigh-university-libraries/auplugins/normalize"
	"github.com/lehigh-university-libraries/auplugins/rules"
)

// Definition is the YAML form of a plugin, for platforms whose sites differ
// only in parameters (OJS, Drupal journals). Hooks, transforms, filters and
// normalizers are referenced by name.
type Definition struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	Publisher string            `yaml:"publisher,omitempty"`
	Params    []ParamDescriptor `yaml:"params"`
	StartURLs []au.Template     `yaml:"start_urls"`

	// CrawlRules are tried in order; the first match decides.
	CrawlRules []CrawlRuleDef `yaml:"crawl_rules"`

	Iterator      iterator.Spec            `yaml:"iterator"`
	Metadata      []MetadataDef            `yaml:"metadata"`
	MetadataRoles []string                 `yaml:"metadata_roles,omitempty"`
	HashFilters   map[string][]filter.Spec `yaml:"hash_filters,omitempty"`
	Normalizers   []normalize.Spec         `yaml:"normalizers,omitempty"`
}

// CrawlRuleDef sets exactly one of Include and Exclude.
type CrawlRuleDef struct {
	Include         *au.Template `yaml:"include,omitempty"`
	Exclude         *au.Template `yaml:"exclude,omitempty"`
	CaseInsensitive bool         `yaml:"case_insensitive,omitempty"`
}

// MetadataDef configures metadata extraction for some MIME types.
type MetadataDef struct {
	MIME []string `yaml:"mime"`

	// Scanners; the raw bags of all configured scanners are merged.
	HTMLMeta      bool                  `yaml:"html_meta,omitempty"`
	WholeDocument bool                  `yaml:"whole_document,omitempty"`
	Selectors     []metadata.Selector   `yaml:"selectors,omitempty"`
	JATS          bool                  `yaml:"jats,omitempty"`
	XPath         []metadata.XPathQuery `yaml:"xpath,omitempty"`
	Namespaces    map[string]string     `yaml:"namespaces,omitempty"`

	// CookMaps names embedded cook maps, merged in order; CookRules and
	// Fallbacks overlay them.
	CookMaps  []string           `yaml:"cook_maps"`
	CookRules []mapping.Rule     `yaml:"cook_rules,omitempty"`
	Fallbacks []mapping.Fallback `yaml:"fallbacks,omitempty"`

	Hooks     []string       `yaml:"hooks,omitempty"`
	Overrides *rules.RuleSet `yaml:"overrides,omitempty"`
}

// LoadDefinition reads a definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plugin definition: %w", err)
	}
	return ParseDefinition(data)
}

// ParseDefinition parses definition YAML.
func ParseDefinition(data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing plugin definition: %w", err)
	}
	return &d, nil
}

// Validate reports every problem in the definition at once.
func (d *Definition) Validate() error {
	var errs errors.M
	if d.ID == "" {
		errs.Append(fmt.Errorf("id is required"))
	}

	declared := map[string]bool{}
	for _, p := range d.Params {
		if p.Key == "" {
			errs.Append(fmt.Errorf("parameter without key"))
			continue
		}
		if declared[p.Key] {
			errs.Append(fmt.Errorf("parameter %s declared twice", p.Key))
		}
		declared[p.Key] = true
		switch p.Type {
		case "", ParamString, ParamURL, ParamInt, ParamYear:
		default:
			errs.Append(fmt.Errorf("parameter %s: unknown type %q", p.Key, p.Type))
		}
	}
	checkParams := func(where string, t au.Template) {
		for _, name := range t.Params() {
			if !declared[name] {
				errs.Append(fmt.Errorf("%s %s: undeclared parameter %s", where, t, name))
			}
		}
	}

	if len(d.StartURLs) == 0 {
		errs.Append(fmt.Errorf("no start_urls"))
	}
	for _, t := range d.StartURLs {
		checkParams("start url", t)
	}
	for i, r := range d.CrawlRules {
		switch {
		case (r.Include == nil) == (r.Exclude == nil):
			errs.Append(fmt.Errorf("crawl rule %d: set exactly one of include and exclude", i))
		case r.Include != nil:
			checkParams("crawl rule", *r.Include)
		default:
			checkParams("crawl rule", *r.Exclude)
		}
	}

	if len(d.Iterator.Aspects) == 0 {
		errs.Append(fmt.Errorf("iterator has no aspects"))
	}
	for _, t := range d.Iterator.Roots {
		checkParams("iterator root", t)
	}
	checkParams("iterator pattern", d.Iterator.Pattern)
	for _, a := range d.Iterator.Aspects {
		for _, t := range a.Patterns {
			checkParams("aspect pattern", t)
		}
	}

	for i, m := range d.Metadata {
		where := fmt.Sprintf("metadata %d", i)
		if len(m.MIME) == 0 {
			errs.Append(fmt.Errorf("%s: no mime types", where))
		}
		if _, err := m.build(); err != nil {
			errs.Append(fmt.Errorf("%s: %w", where, err))
		}
	}
	for mime, specs := range d.HashFilters {
		if _, err := filter.Build(specs); err != nil {
			errs.Append(fmt.Errorf("hash filters for %s: %w", mime, err))
		}
	}
	if _, err := normalize.Build(d.Normalizers); err != nil {
		errs.Append(err)
	}
	return errs.Err()
}

// CookMaps merges the named embedded cook maps. Later maps override earlier
// ones for the same raw key.
func CookMaps(names ...string) (*mapping.CookMap, error) {
	cm := &mapping.CookMap{}
	for _, name := range names {
		base, err := mapping.Lookup(name)
		if err != nil {
			return nil, err
		}
		cm = mapping.Merge(cm, base)
	}
	return cm, nil
}

// MustCookMaps is like CookMaps but panics, for publisher packages.
func MustCookMaps(names ...string) *mapping.CookMap {
	cm, err := CookMaps(names...)
	if err != nil {
		panic(err)
	}
	return cm
}

func (m MetadataDef) cookMap() (*mapping.CookMap, error) {
	cm, err := CookMaps(m.CookMaps...)
	if err != nil {
		return nil, err
	}
	if len(m.CookRules) > 0 || len(m.Fallbacks) > 0 {
		cm = mapping.Merge(cm, &mapping.CookMap{Rules: m.CookRules, Fallbacks: m.Fallbacks})
	}
	return cm, nil
}

func (m MetadataDef) build() (*metadata.Extractor, error) {
	var scanners metadata.MultiExtractor
	if m.HTMLMeta {
		scanners = append(scanners, &metadata.HTMLMetaExtractor{WholeDocument: m.WholeDocument})
	}
	if len(m.Selectors) > 0 {
		s, err := metadata.NewSelectorExtractor(m.Selectors)
		if err != nil {
			return nil, err
		}
		scanners = append(scanners, s)
	}
	queries := m.XPath
	if m.JATS {
		queries = append(append([]metadata.XPathQuery(nil), metadata.JATSQueries...), queries...)
	}
	if len(queries) > 0 {
		x, err := metadata.NewXPathExtractor(queries, m.Namespaces)
		if err != nil {
			return nil, err
		}
		scanners = append(scanners, x)
	}
	if len(scanners) == 0 {
		return nil, fmt.Errorf("no scanner configured")
	}

	cm, err := m.cookMap()
	if err != nil {
		return nil, err
	}
	if errs := metadata.CheckCookMap(cm); len(errs) > 0 {
		return nil, errs[0]
	}

	ex := &metadata.Extractor{CookMap: cm}
	if len(scanners) == 1 {
		ex.File = scanners[0]
	} else {
		ex.File = scanners
	}
	for _, name := range m.Hooks {
		h, ok := metadata.LookupHook(name)
		if !ok {
			return nil, fmt.Errorf("unknown hook %q", name)
		}
		ex.Hooks = append(ex.Hooks, h)
	}
	if m.Overrides != nil {
		if errs := m.Overrides.Validate(); len(errs) > 0 {
			return nil, errs[0]
		}
		ex.Overrides = append(ex.Overrides, m.Overrides)
	}
	return ex, nil
}

// Build validates the definition and turns it into a Plugin.
func Build(d *Definition) (*Plugin, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("plugin %s: %w", d.ID, err)
	}
	p := &Plugin{
		ID:            d.ID,
		Name:          d.Name,
		Publisher:     d.Publisher,
		Params:        d.Params,
		StartURLs:     d.StartURLs,
		Iterator:      d.Iterator,
		MetadataRoles: d.MetadataRoles,
		Metadata:      map[string]*metadata.Extractor{},
		HashFilters:   map[string]filter.Filter{},
	}
	for _, r := range d.CrawlRules {
		if r.Include != nil {
			p.Rules = append(p.Rules, CrawlRule{Include: true, Pattern: *r.Include, CaseInsensitive: r.CaseInsensitive})
		} else {
			p.Rules = append(p.Rules, CrawlRule{Pattern: *r.Exclude, CaseInsensitive: r.CaseInsensitive})
		}
	}
	for _, m := range d.Metadata {
		ex, err := m.build()
		if err != nil {
			return nil, err
		}
		for _, mt := range m.MIME {
			p.Metadata[baseMime(mt)] = ex
		}
	}
	for mt, specs := range d.HashFilters {
		chain, err := filter.Build(specs)
		if err != nil {
			return nil, err
		}
		p.HashFilters[baseMime(mt)] = chain
	}
	if len(d.Normalizers) > 0 {
		chain, err := normalize.Build(d.Normalizers)
		if err != nil {
			return nil, err
		}
		p.Normalizer = chain
	}
	return p, nil
}
