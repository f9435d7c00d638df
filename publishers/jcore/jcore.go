// Package jcore is the plugin for journals on the JCore platform. Issues live
// under base_url/year/journal_id/issue/ with one HTML page per article and the
// PDF under pdf/. Each issue also carries a table of contents (toc.html) and a
// full-issue PDF (pdf/vm.pdf), neither of which is an article.
package jcore

import (
	_ "embed"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/filter"
	"github.com/lehigh-university-libraries/auplugins/iterator"
	"github.com/lehigh-university-libraries/auplugins/metadata"
	"github.com/lehigh-university-libraries/auplugins/normalize"
	"github.com/lehigh-university-libraries/auplugins/plugin"
	"github.com/lehigh-university-libraries/auplugins/rules"
)

// ID is the registered plugin ID.
const ID = "jp.jcore.journal"

//go:embed overrides.yaml
var overridesYAML []byte

// Overrides loads the platform's override rules.
func Overrides() *rules.RuleSet {
	rs, err := rules.LoadRuleSetFromBytes(overridesYAML)
	if err != nil {
		panic(err)
	}
	return rs
}

// IteratorSpec classifies article HTML and PDF files inside an issue.
func IteratorSpec() iterator.Spec {
	return iterator.NewBuilder().
		Root(`"%s%d/%s/", base_url, year, journal_id`).
		Pattern(`"^%s%d/%s/[^/]+/(pdf/)?[^/]+\.(html|pdf)$", base_url, year, journal_id`).
		Aspect([]string{`"^(%s)(%d/%s/[^/]+)/([^/]+)\.html$", base_url, year, journal_id`}, []string{"${1}${2}/${3}.html"},
			iterator.RoleFullTextHTML, iterator.RoleAbstract, iterator.RoleArticleMetadata).
		SkipGroup(3, "toc", "index").
		Aspect([]string{`"^(%s)(%d/%s/[^/]+)/pdf/([^/]+)\.pdf$", base_url, year, journal_id`}, []string{"${1}${2}/pdf/${3}.pdf"},
			iterator.RoleFullTextPDF).
		SkipGroup(3, "vm").
		FullTextFrom(iterator.RoleFullTextHTML, iterator.RoleFullTextPDF).
		Spec()
}

// New builds the plugin.
func New() *plugin.Plugin {
	pageFilter, err := filter.NewHTMLNodeFilter(nil, []string{"div#header", "div#footer", "div.banner", "script"}, true)
	if err != nil {
		panic(err)
	}
	html := &metadata.Extractor{
		File:      &metadata.HTMLMetaExtractor{},
		CookMap:   plugin.MustCookMaps("dublincore", "highwire"),
		Hooks:     []metadata.Hook{metadata.DOIFromURL},
		Overrides: []metadata.Override{Overrides()},
	}
	return &plugin.Plugin{
		ID:   ID,
		Name: "JCore Journals",
		Params: []plugin.ParamDescriptor{
			{Key: au.ParamBaseURL, DisplayName: "Base URL", Type: plugin.ParamURL, Required: true},
			{Key: au.ParamJournalID, DisplayName: "Journal Identifier", Required: true},
			{Key: au.ParamYear, DisplayName: "Year", Type: plugin.ParamYear, Required: true},
		},
		StartURLs: []au.Template{au.MustParseTemplate(`"%slockss/%s/%d/", base_url, journal_id, year`)},
		Rules: []plugin.CrawlRule{
			plugin.Include(`"^%s.*\.(css|gif|jpe?g|png|js)$", base_url`),
			plugin.Include(`"^%slockss/%s/%d/", base_url, journal_id, year`),
			plugin.Include(`"^%s%d/%s/", base_url, year, journal_id`),
		},
		Iterator: IteratorSpec(),
		Metadata: map[string]*metadata.Extractor{"text/html": html},
		HashFilters: map[string]filter.Filter{
			"text/html":       filter.Chain{filter.Safe(pageFilter), filter.WhitespaceFilter{}},
			"application/pdf": filter.PDFTokenFilter{},
		},
		Normalizer: normalize.Chain{normalize.RemoveQueryArgs("lang", "sid"), normalize.MatchBaseScheme()},
	}
}

func init() {
	plugin.Register(New())
}
