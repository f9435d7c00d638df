// Package nzma is the plugin for the New Zealand Medical Journal. Article
// pages rarely carry volume and issue tags, but every article URL names its
// issue as vol-NNN-no-NNNN.
package nzma

import (
	"regexp"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/filter"
	"github.com/lehigh-university-libraries/auplugins/iterator"
	"github.com/lehigh-university-libraries/auplugins/mapping"
	"github.com/lehigh-university-libraries/auplugins/metadata"
	"github.com/lehigh-university-libraries/auplugins/normalize"
	"github.com/lehigh-university-libraries/auplugins/plugin"
)

// ID is the registered plugin ID.
const ID = "nz.org.nzma.journal"

const (
	publisher    = "New Zealand Medical Association"
	journalTitle = "The New Zealand Medical Journal"
)

var volumeIssueRegex = regexp.MustCompile(`/vol-(\d+)-no-(\d+)(?:/|$)`)

// VolumeIssue returns the volume and issue numbers in u.
func VolumeIssue(u string) (volume, issue string, ok bool) {
	m := volumeIssueRegex.FindStringSubmatch(u)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// Hook fills volume and issue from the article URL and the journal's fixed
// names when the page does not declare them.
func Hook(hc metadata.HookContext, _ *metadata.RawBag, rec *metadata.Record) *metadata.Record {
	candidates := []string{hc.URL}
	if hc.Files != nil {
		candidates = append(candidates, hc.Files.FullTextURL)
	}
	for _, u := range candidates {
		if vol, iss, ok := VolumeIssue(u); ok {
			if !rec.Has(metadata.FieldVolume) {
				rec.Set(metadata.FieldVolume, vol)
			}
			if !rec.Has(metadata.FieldIssue) {
				rec.Set(metadata.FieldIssue, iss)
			}
			break
		}
	}
	if !rec.Has(metadata.FieldJournalTitle) {
		rec.Set(metadata.FieldJournalTitle, journalTitle)
	}
	if !rec.Has(metadata.FieldPublisher) {
		rec.Set(metadata.FieldPublisher, publisher)
	}
	return rec
}

// CookMap is the highwire map plus the site's own byline and date tags.
func CookMap() *mapping.CookMap {
	return mapping.Merge(plugin.MustCookMaps("highwire"), &mapping.CookMap{
		Name: "nzma",
		Rules: []mapping.Rule{
			{Raw: "byline", Field: metadata.FieldAuthor, Transform: "split_names,name"},
			{Raw: "published", Field: metadata.FieldDate, Transform: "date", Policy: mapping.PolicyFirst},
		},
	})
}

// New builds the plugin.
func New() *plugin.Plugin {
	byline, err := metadata.NewSelectorExtractor([]metadata.Selector{
		{Key: "byline", CSS: ".article-authors"},
		{Key: "published", CSS: "time.published", Attr: "datetime"},
	})
	if err != nil {
		panic(err)
	}
	return &plugin.Plugin{
		ID:        ID,
		Name:      "New Zealand Medical Journal",
		Publisher: publisher,
		Params: []plugin.ParamDescriptor{
			{Key: au.ParamBaseURL, DisplayName: "Base URL", Type: plugin.ParamURL, Required: true},
			{Key: au.ParamYear, DisplayName: "Year", Type: plugin.ParamYear, Required: true},
		},
		StartURLs: []au.Template{au.MustParseTemplate(`"%sjournal/read-the-journal/all-issues/lockss/%d", base_url, year`)},
		Rules: []plugin.CrawlRule{
			plugin.Include(`"^%sjournal/read-the-journal/all-issues/", base_url`),
			plugin.Include(`"^%s(assets|media)/", base_url`),
		},
		Iterator: iterator.NewBuilder().
			Root(`"%sjournal/read-the-journal/all-issues/", base_url`).
			Pattern(`"^%sjournal/read-the-journal/all-issues/[0-9]{4}-[0-9]{4}/%d/vol-[0-9]+-no-[0-9]+/[^/]+$", base_url, year`).
			Aspect([]string{`"^(%sjournal/read-the-journal/all-issues/[0-9]{4}-[0-9]{4}/%d/vol-[0-9]+-no-[0-9]+)/([^/.]+)$", base_url, year`},
				[]string{"${1}/${2}"}, iterator.RoleFullTextHTML, iterator.RoleArticleMetadata).
			Aspect([]string{`"^(%sjournal/read-the-journal/all-issues/[0-9]{4}-[0-9]{4}/%d/vol-[0-9]+-no-[0-9]+)/([^/.]+)\.pdf$", base_url, year`},
				[]string{"${1}/${2}.pdf"}, iterator.RoleFullTextPDF).
			FullTextFrom(iterator.RoleFullTextHTML, iterator.RoleFullTextPDF).
			Spec(),
		Metadata: map[string]*metadata.Extractor{
			"text/html": {
				File:    metadata.MultiExtractor{&metadata.HTMLMetaExtractor{}, byline},
				CookMap: CookMap(),
				Hooks:   []metadata.Hook{Hook},
			},
		},
		HashFilters: map[string]filter.Filter{
			"text/html":       filter.Chain{filter.Safe(mustNodeFilter()), filter.WhitespaceFilter{}},
			"application/pdf": filter.PDFTokenFilter{},
		},
		Normalizer: normalize.Chain{normalize.ForceHTTPS(), normalize.Purell(normalize.DefaultPurellFlags)},
	}
}

func mustNodeFilter() filter.Filter {
	f, err := filter.NewHTMLNodeFilter([]string{"article"}, []string{".share-tools", ".most-read"}, true)
	if err != nil {
		panic(err)
	}
	return f
}

func init() {
	metadata.RegisterHook("nzma_volume_issue", Hook)
	plugin.Register(New())
}
