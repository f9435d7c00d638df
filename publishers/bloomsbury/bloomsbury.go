// Package bloomsbury is the plugin for Bloomsbury Collections e-books, one
// AU per book, with one record per chapter.
package bloomsbury

import (
	"path"
	"strings"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/filter"
	"github.com/lehigh-university-libraries/auplugins/iterator"
	"github.com/lehigh-university-libraries/auplugins/metadata"
	"github.com/lehigh-university-libraries/auplugins/normalize"
	"github.com/lehigh-university-libraries/auplugins/plugin"
)

// ID is the registered plugin ID.
const ID = "com.bloomsburycollections.book"

// Publisher is forced on every record; the site's own tags name imprints.
const Publisher = "Bloomsbury Publishing"

// Hook forces the publisher, marks the record as a book chapter and derives
// the PDF file name from the ISBN and the chapter's PDF slug.
func Hook(hc metadata.HookContext, _ *metadata.RawBag, rec *metadata.Record) *metadata.Record {
	rec.Set(metadata.FieldPublisher, Publisher)
	rec.Set(metadata.FieldPublicationType, "book")
	if !rec.Has(metadata.FieldArticleType) {
		rec.Set(metadata.FieldArticleType, "bookchapter")
	}
	if !rec.Has(metadata.FieldISBN) && !rec.Has(metadata.FieldEISBN) {
		if v, ok := hc.Config.Get(au.ParamBookISBN); ok {
			if isbn, ok := metadata.NormalizeISBN(v); ok {
				rec.Set(metadata.FieldISBN, isbn)
			}
		}
	}
	if !rec.Has(metadata.FieldPDFFilename) {
		if name := pdfFilename(hc, rec); name != "" {
			rec.Set(metadata.FieldPDFFilename, name)
		}
	}
	return rec
}

func pdfFilename(hc metadata.HookContext, rec *metadata.Record) string {
	isbn := rec.Get(metadata.FieldEISBN)
	if isbn == "" {
		isbn = rec.Get(metadata.FieldISBN)
	}
	if isbn == "" {
		return ""
	}
	if hc.Files != nil {
		if u := hc.Files.RoleURL(iterator.RoleFullTextPDF); u != "" {
			return isbn + "_" + strings.TrimSuffix(path.Base(u), ".pdf") + ".pdf"
		}
	}
	return isbn + ".pdf"
}

// IteratorSpec pairs chapter PDFs with their landing pages.
func IteratorSpec() iterator.Spec {
	return iterator.NewBuilder().
		Pattern(`"^%s(book|pdf-download)/%s/[^/]+$", base_url, book_isbn`).
		Aspect([]string{`"^(%s)pdf-download/(%s)/([^/]+)\.pdf$", base_url, book_isbn`}, []string{"${1}pdf-download/${2}/${3}.pdf"},
			iterator.RoleFullTextPDF).
		SkipGroup(3, "front-matter", "back-matter", "index").
		Aspect([]string{`"^(%s)book/(%s)/([^/]+)$", base_url, book_isbn`}, []string{"${1}book/${2}/${3}"},
			iterator.RoleAbstract, iterator.RoleArticleMetadata).
		SkipGroup(3, "front-matter", "back-matter", "index").
		FullTextFrom(iterator.RoleFullTextPDF).
		Spec()
}

// New builds the plugin.
func New() *plugin.Plugin {
	page, err := filter.NewHTMLNodeFilter([]string{"main"}, []string{".related-content", ".user-access"}, true)
	if err != nil {
		panic(err)
	}
	return &plugin.Plugin{
		ID:        ID,
		Name:      "Bloomsbury Collections Books",
		Publisher: Publisher,
		Params: []plugin.ParamDescriptor{
			{Key: au.ParamBaseURL, DisplayName: "Base URL", Type: plugin.ParamURL, Required: true},
			{Key: au.ParamBookISBN, DisplayName: "Book ISBN", Required: true},
		},
		StartURLs: []au.Template{au.MustParseTemplate(`"%sbook/%s", base_url, book_isbn`)},
		Rules: []plugin.CrawlRule{
			plugin.Include(`"^%s(book|pdf-download)/%s(/|$)", base_url, book_isbn`),
			plugin.Include(`"^%s(assets|static)/", base_url`),
		},
		Iterator:      IteratorSpec(),
		MetadataRoles: []string{iterator.RoleArticleMetadata},
		Metadata: map[string]*metadata.Extractor{
			"text/html": {
				File:    &metadata.HTMLMetaExtractor{},
				CookMap: plugin.MustCookMaps("dublincore", "highwire"),
				Hooks:   []metadata.Hook{Hook},
			},
		},
		HashFilters: map[string]filter.Filter{
			"text/html":       filter.Chain{filter.Safe(page), filter.NewTagStripFilter()},
			"application/pdf": filter.PDFTokenFilter{},
		},
		Normalizer: normalize.Chain{normalize.ForceHTTPS(), normalize.RemoveQueryArgs("utm_source", "utm_medium")},
	}
}

func init() {
	metadata.RegisterHook("bloomsbury", Hook)
	plugin.Register(New())
}
