// Package blackwell is the plugin for Wiley-Blackwell journals, whose
// articles live under DOI-keyed abs, full and pdf paths.
package blackwell

import (
	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/filter"
	"github.com/lehigh-university-libraries/auplugins/iterator"
	"github.com/lehigh-university-libraries/auplugins/metadata"
	"github.com/lehigh-university-libraries/auplugins/normalize"
	"github.com/lehigh-university-libraries/auplugins/plugin"
)

// ID is the registered plugin ID.
const ID = "com.blackwellpublishing.journal"

// Publisher fills records that declare none.
const Publisher = "Blackwell Publishing"

// Normalizer drops the cookieSet tracking argument the site appends to
// links once a session cookie is set.
func Normalizer() normalize.Normalizer {
	return normalize.Chain{
		normalize.RemoveQueryArgs("cookieSet"),
		normalize.MatchBaseScheme(),
	}
}

// IteratorSpec groups an article's full, pdf and abs pages.
func IteratorSpec() iterator.Spec {
	return iterator.NewBuilder().
		Root(`"%sdoi/", base_url`).
		Pattern(`"^%sdoi/(abs|full|pdf)/10\.[0-9]+/[^/?]+$", base_url`).
		Aspect([]string{`"^(%sdoi)/full/(10\.[0-9]+/[^/?]+)$", base_url`}, []string{"${1}/full/${2}"},
			iterator.RoleFullTextHTML).
		Aspect([]string{`"^(%sdoi)/pdf/(10\.[0-9]+/[^/?]+)$", base_url`}, []string{"${1}/pdf/${2}"},
			iterator.RoleFullTextPDF).
		Aspect([]string{`"^(%sdoi)/abs/(10\.[0-9]+/[^/?]+)$", base_url`}, []string{"${1}/abs/${2}"},
			iterator.RoleAbstract).
		FullTextFrom(iterator.RoleFullTextHTML, iterator.RoleFullTextPDF).
		RoleFrom(iterator.RoleArticleMetadata, iterator.RoleAbstract, iterator.RoleFullTextHTML).
		Spec()
}

// New builds the plugin.
func New() *plugin.Plugin {
	pageFilter, err := filter.NewHTMLNodeFilter(nil, []string{
		"script",
		"#cookieBanner",
		".article-tools",
		"#relatedArticles",
		"div.access-options",
	}, true)
	if err != nil {
		panic(err)
	}
	return &plugin.Plugin{
		ID:        ID,
		Name:      "Blackwell Publishing Journals",
		Publisher: Publisher,
		Params: []plugin.ParamDescriptor{
			{Key: au.ParamBaseURL, DisplayName: "Base URL", Type: plugin.ParamURL, Required: true},
			{Key: au.ParamJournalISSN, DisplayName: "Journal ISSN", Required: true},
			{Key: au.ParamVolumeName, DisplayName: "Volume Name", Required: true},
		},
		StartURLs: []au.Template{au.MustParseTemplate(`"%sclockss/%s/%s/manifest.html", base_url, journal_issn, volume_name`)},
		Rules: []plugin.CrawlRule{
			plugin.Exclude(`"^%sdoi/[^/]+/10\.[0-9]+/[^/]+/(citedby|references|suppinfo)", base_url`),
			plugin.Include(`"^%sclockss/%s/%s/", base_url, journal_issn, volume_name`),
			plugin.Include(`"^%sdoi/(abs|full|pdf)/10\.", base_url`),
			plugin.Include(`"^%s(templates|css|js|images)/", base_url`),
		},
		Iterator:      IteratorSpec(),
		MetadataRoles: []string{iterator.RoleArticleMetadata},
		Metadata: map[string]*metadata.Extractor{
			"text/html": {
				File:    &metadata.HTMLMetaExtractor{},
				CookMap: plugin.MustCookMaps("dublincore", "highwire"),
				Hooks: []metadata.Hook{
					metadata.DOIFromURL,
					metadata.SetIfAbsent(metadata.FieldPublisher, Publisher),
				},
			},
		},
		HashFilters: map[string]filter.Filter{
			"text/html":       filter.Chain{filter.Safe(pageFilter), filter.WhitespaceFilter{}},
			"application/pdf": filter.PDFTokenFilter{},
		},
		Normalizer: Normalizer(),
	}
}

func init() {
	plugin.Register(New())
}
