// Package metadata turns documents into cooked bibliographic records.
//
// A FileExtractor scans one document (HTML meta tags, CSS selectors or XPath
// queries) into a RawBag. Cook maps the bag through a mapping.CookMap into a
// Record of canonical fields, after which publisher hooks and override rules
// may adjust the result before it is emitted.
package metadata

import (
	"sort"
	"strings"
)

// Canonical field names.
const (
	FieldAccessURL        = "access.url"
	FieldDOI              = "doi"
	FieldISSN             = "issn"
	FieldEISSN            = "eissn"
	FieldISBN             = "isbn"
	FieldEISBN            = "eisbn"
	FieldVolume           = "volume"
	FieldIssue            = "issue"
	FieldStartPage        = "start_page"
	FieldEndPage          = "end_page"
	FieldDate             = "date"
	FieldArticleTitle     = "article.title"
	FieldAuthor           = "author"
	FieldJournalTitle     = "journal.title"
	FieldPublicationTitle = "publication.title"
	FieldPublisher        = "publisher"
	FieldProvider         = "provider"
	FieldKeywords         = "keywords"
	FieldAbstract         = "abstract"
	FieldLanguage         = "language"
	FieldArticleType      = "article.type"
	FieldPublicationType  = "publication.type"
	FieldCoverage         = "coverage"
	FieldPDFFilename      = "pdf.filename"
	FieldCopyrightYear    = "copyright.year"
	FieldItemNumber       = "item.number"
)

// Field describes a canonical field.
type Field struct {
	Name  string
	Multi bool
	// Identifier fields normalize their values and drop ones that fail
	// validation.
	normalize func(string) (string, bool)
}

// Normalize returns the value to store for v, or false when v is invalid.
func (f Field) Normalize(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	if f.normalize == nil {
		return v, true
	}
	return f.normalize(v)
}

var fields = map[string]Field{}

func define(name string, multi bool, normalize func(string) (string, bool)) {
	fields[name] = Field{Name: name, Multi: multi, normalize: normalize}
}

func init() {
	define(FieldAccessURL, false, nil)
	define(FieldDOI, false, NormalizeDOI)
	define(FieldISSN, false, NormalizeISSN)
	define(FieldEISSN, false, NormalizeISSN)
	define(FieldISBN, false, NormalizeISBN)
	define(FieldEISBN, false, NormalizeISBN)
	define(FieldVolume, false, nil)
	define(FieldIssue, false, nil)
	define(FieldStartPage, false, nil)
	define(FieldEndPage, false, nil)
	define(FieldDate, false, nil)
	define(FieldArticleTitle, false, nil)
	define(FieldAuthor, true, nil)
	define(FieldJournalTitle, false, nil)
	define(FieldPublicationTitle, false, nil)
	define(FieldPublisher, false, nil)
	define(FieldProvider, false, nil)
	define(FieldKeywords, true, nil)
	define(FieldAbstract, false, nil)
	define(FieldLanguage, false, nil)
	define(FieldArticleType, false, nil)
	define(FieldPublicationType, false, nil)
	define(FieldCoverage, false, nil)
	define(FieldPDFFilename, false, nil)
	define(FieldCopyrightYear, false, nil)
	define(FieldItemNumber, false, nil)
}

// LookupField returns the definition of a canonical field.
func LookupField(name string) (Field, bool) {
	f, ok := fields[name]
	return f, ok
}

// fieldFor returns the definition of name, treating unknown names as
// single-valued free text.
func fieldFor(name string) Field {
	if f, ok := fields[name]; ok {
		return f
	}
	return Field{Name: name}
}

// FieldNames returns every canonical field name in sorted order.
func FieldNames() []string {
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
