// Package aip is the plugin for AIP Publishing journals. Metadata comes from
// the JATS XML each article is delivered with.
package aip

import (
	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/filter"
	"github.com/lehigh-university-libraries/auplugins/iterator"
	"github.com/lehigh-university-libraries/auplugins/metadata"
	"github.com/lehigh-university-libraries/auplugins/normalize"
	"github.com/lehigh-university-libraries/auplugins/plugin"
	"github.com/lehigh-university-libraries/auplugins/rules"
)

// ID is the registered plugin ID.
const ID = "org.aip.journal"

// Publisher fills records whose XML lacks publisher-name.
const Publisher = "AIP Publishing"

// Overrides tidy values the XML gets wrong.
var Overrides = &rules.RuleSet{
	Name: "aip",
	Rules: []rules.Rule{
		{
			Name: "research-article-is-article",
			When: rules.Condition{Field: metadata.FieldArticleType, In: []string{"research-article", "rapid-communication", "review-article"}},
			Then: rules.Action{SetField: metadata.FieldArticleType, SetValue: "article", Force: true},
		},
		{
			Name: "drop-zero-issue",
			When: rules.Condition{Field: metadata.FieldIssue, Matches: `^0+$`},
			Then: rules.Action{SetField: metadata.FieldIssue, Remove: true},
		},
	},
}

// IteratorSpec groups an article's xml, full and pdf renditions, keyed by DOI.
func IteratorSpec() iterator.Spec {
	return iterator.NewBuilder().
		Root(`"%sdoi/", base_url`).
		Pattern(`"^%sdoi/(xml|full|pdf)/10\.1063/[^/]+$", base_url`).
		Aspect([]string{`"^(%sdoi)/xml/(10\.1063/[^/]+)$", base_url`}, []string{"${1}/xml/${2}"},
			iterator.RoleFullTextXML, iterator.RoleArticleMetadata).
		Aspect([]string{`"^(%sdoi)/full/(10\.1063/[^/]+)$", base_url`}, []string{"${1}/full/${2}"},
			iterator.RoleFullTextHTML).
		Aspect([]string{`"^(%sdoi)/pdf/(10\.1063/[^/]+)$", base_url`}, []string{"${1}/pdf/${2}"},
			iterator.RoleFullTextPDF).
		FullTextFrom(iterator.RoleFullTextHTML, iterator.RoleFullTextPDF, iterator.RoleFullTextXML).
		Spec()
}

// New builds the plugin.
func New() *plugin.Plugin {
	jats, err := metadata.NewXPathExtractor(metadata.JATSQueries, nil)
	if err != nil {
		panic(err)
	}
	xml := &metadata.Extractor{
		File:    jats,
		CookMap: plugin.MustCookMaps("jats"),
		Hooks: []metadata.Hook{
			metadata.SetIfAbsent(metadata.FieldPublisher, Publisher),
			metadata.DOIFromURL,
		},
		Overrides: []metadata.Override{Overrides},
	}
	html := &metadata.Extractor{
		File:      &metadata.HTMLMetaExtractor{},
		CookMap:   plugin.MustCookMaps("dublincore", "highwire"),
		Hooks:     xml.Hooks,
		Overrides: xml.Overrides,
	}
	xmlFilter, err := filter.NewXMLElementFilter("//processing-meta", "//article-meta/history")
	if err != nil {
		panic(err)
	}
	return &plugin.Plugin{
		ID:        ID,
		Name:      "AIP Publishing Journals",
		Publisher: Publisher,
		Params: []plugin.ParamDescriptor{
			{Key: au.ParamBaseURL, DisplayName: "Base URL", Type: plugin.ParamURL, Required: true},
			{Key: au.ParamJournalID, DisplayName: "Journal Identifier", Required: true},
			{Key: au.ParamVolumeName, DisplayName: "Volume Name", Required: true},
		},
		StartURLs: []au.Template{au.MustParseTemplate(`"%slockss/%s/%s/index.html", base_url, journal_id, volume_name`)},
		Rules: []plugin.CrawlRule{
			plugin.Exclude(`"^%sdoi/(xml|full|pdf)/10\.1063/[^/]+/(citedby|figures)", base_url`),
			plugin.Include(`"^%slockss/%s/%s/", base_url, journal_id, volume_name`),
			plugin.Include(`"^%sdoi/(xml|full|pdf)/10\.1063/", base_url`),
		},
		Iterator:      IteratorSpec(),
		MetadataRoles: []string{iterator.RoleArticleMetadata, iterator.RoleFullTextHTML},
		Metadata: map[string]*metadata.Extractor{
			"application/xml": xml,
			"text/xml":        xml,
			"text/html":       html,
		},
		HashFilters: map[string]filter.Filter{
			"application/xml": filter.Safe(xmlFilter),
			"text/xml":        filter.Safe(xmlFilter),
			"application/pdf": filter.PDFTokenFilter{},
		},
		Normalizer: normalize.Chain{normalize.ForceHTTPS(), normalize.SortQueryArgs()},
	}
}

func init() {
	plugin.Register(New())
}
