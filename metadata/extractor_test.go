package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/iterator"
	"github.com/lehigh-university-libraries/auplugins/mapping"
)

const articleHTML = `<!DOCTYPE html>
<html><head>
<title>Ignored</title>
<meta name="citation_title" content="Tidal &amp; Coastal Effects">
<meta name="citation_author" content="Jane Doe">
<meta name="citation_author" content="John Smith">
<meta name="citation_doi" content="doi:10.1111/j.1365-2958.2014.01.x">
<meta name="citation_pdf_url" content="http://www.example.com/2014/abc/01/pdf/art1.pdf">
<meta property="og:title" content="OG title">
<meta name="empty" content="">
<meta charset="utf-8">
</head>
<body>
<meta name="citation_volume" content="12">
<div class="meta"><span class="vol">Vol. 12</span><a class="pdf" href="/x.pdf">PDF</a></div>
<h1 class="title">  Tidal
  and Coastal </h1>
</body></html>`

func TestHTMLMetaExtractor(t *testing.T) {
	bag, err := (&HTMLMetaExtractor{}).Scan(context.Background(), strings.NewReader(articleHTML))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	wantKeys := []string{"citation_title", "citation_author", "citation_doi", "citation_pdf_url", "og:title"}
	keys := bag.Keys()
	if len(keys) != len(wantKeys) {
		t.Fatalf("keys: got %v, want %v", keys, wantKeys)
	}
	for i := range wantKeys {
		if keys[i] != wantKeys[i] {
			t.Errorf("key %d: got %q, want %q", i, keys[i], wantKeys[i])
		}
	}
	if got := bag.First("citation_title"); got != "Tidal & Coastal Effects" {
		t.Errorf("entity decoding: got %q", got)
	}
	if authors := bag.Get("citation_author"); len(authors) != 2 || authors[1] != "John Smith" {
		t.Errorf("authors: got %v", authors)
	}

	whole, err := (&HTMLMetaExtractor{WholeDocument: true}).Scan(context.Background(), strings.NewReader(articleHTML))
	if err != nil {
		t.Fatalf("Scan whole: %v", err)
	}
	if whole.First("citation_volume") != "12" {
		t.Errorf("body meta not scanned with WholeDocument")
	}
}

func TestSelectorExtractor(t *testing.T) {
	e, err := NewSelectorExtractor([]Selector{
		{Key: "title", CSS: "h1.title"},
		{Key: "pdf", CSS: "div.meta a.pdf", Attr: "href"},
		{Key: "missing", CSS: "span.nothing"},
	})
	if err != nil {
		t.Fatalf("NewSelectorExtractor: %v", err)
	}
	bag, err := e.Scan(context.Background(), strings.NewReader(articleHTML))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := bag.First("title"); got != "Tidal and Coastal" {
		t.Errorf("title: got %q", got)
	}
	if got := bag.First("pdf"); got != "/x.pdf" {
		t.Errorf("pdf: got %q", got)
	}
	if bag.Has("missing") {
		t.Error("unmatched selector produced a value")
	}

	if _, err := NewSelectorExtractor([]Selector{{Key: "bad", CSS: "div[["}}); err == nil {
		t.Error("expected error for invalid selector")
	}
}

const jatsXML = `<?xml version="1.0" encoding="UTF-8"?>
<article xmlns:xlink="http://www.w3.org/1999/xlink" article-type="research-article">
<front>
<journal-meta>
  <journal-title-group><journal-title>Journal of Applied Things</journal-title></journal-title-group>
  <issn pub-type="ppub">0021-8979</issn>
  <issn pub-type="epub">1089-7550</issn>
  <publisher><publisher-name>AIP Publishing</publisher-name></publisher>
</journal-meta>
<article-meta>
  <article-id pub-id-type="doi">10.1063/1.4861234</article-id>
  <title-group><article-title>Thin <italic>films</italic> at scale</article-title></title-group>
  <contrib-group>
    <contrib contrib-type="author"><name><surname>Doe</surname><given-names>Jane</given-names></name></contrib>
    <contrib contrib-type="author"><name><surname>Smith</surname><given-names>John A.</given-names></name></contrib>
    <contrib contrib-type="editor"><name><surname>Editor</surname><given-names>Ed</given-names></name></contrib>
  </contrib-group>
  <pub-date pub-type="epub"><day>5</day><month>3</month><year>2014</year></pub-date>
  <volume>115</volume>
  <issue>9</issue>
  <fpage>093501</fpage>
  <self-uri content-type="pdf" xlink:href="http://scitation.example.org/1.4861234.pdf"/>
  <kwd-group><kwd>films</kwd><kwd> scale </kwd></kwd-group>
</article-meta>
</front>
</article>`

func TestXPathExtractorJATS(t *testing.T) {
	x, err := NewXPathExtractor(JATSQueries, nil)
	if err != nil {
		t.Fatalf("NewXPathExtractor: %v", err)
	}
	bag, err := x.Scan(context.Background(), strings.NewReader(jatsXML))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	rec := Cook(bag, mustCookMap(t, "jats"))

	checks := map[string]string{
		FieldJournalTitle: "Journal of Applied Things",
		FieldISSN:         "0021-8979",
		FieldEISSN:        "1089-7550",
		FieldPublisher:    "AIP Publishing",
		FieldDOI:          "10.1063/1.4861234",
		FieldArticleTitle: "Thin films at scale",
		FieldDate:         "2014-03-05",
		FieldVolume:       "115",
		FieldIssue:        "9",
		FieldStartPage:    "093501",
		FieldArticleType:  "research-article",
		FieldAccessURL:    "http://scitation.example.org/1.4861234.pdf",
	}
	for f, want := range checks {
		if got := rec.Get(f); got != want {
			t.Errorf("%s: got %q, want %q", f, got, want)
		}
	}
	authors := rec.GetAll(FieldAuthor)
	if len(authors) != 2 || authors[0] != "Doe, Jane" || authors[1] != "Smith, John A." {
		t.Errorf("authors: got %v", authors)
	}
	if kw := rec.GetAll(FieldKeywords); len(kw) != 2 || kw[1] != "scale" {
		t.Errorf("keywords: got %v", kw)
	}
}

func TestXPathExtractorBadExpr(t *testing.T) {
	if _, err := NewXPathExtractor([]XPathQuery{{Key: "x", Expr: "//*["}}, nil); err == nil {
		t.Error("expected compile error")
	}
}

func TestExtractorPrecedence(t *testing.T) {
	cm := mustCookMap(t, "highwire")
	files := iterator.NewArticleFiles()
	files.FullTextURL = "http://www.example.com/doi/full/10.1111/abc.123"

	tests := []struct {
		name      string
		html      string
		hooks     []Hook
		overrides []Override
		field     string
		want      string
	}{
		{
			name:  "declared value beats default hook",
			html:  `<meta name="citation_publisher" content="Declared Press">`,
			hooks: []Hook{SetIfAbsent(FieldPublisher, "Default Press")},
			field: FieldPublisher,
			want:  "Declared Press",
		},
		{
			name:  "default hook fills absent value",
			html:  `<meta name="citation_title" content="T">`,
			hooks: []Hook{SetIfAbsent(FieldPublisher, "Default Press")},
			field: FieldPublisher,
			want:  "Default Press",
		},
		{
			name:  "forcing hook replaces declared value",
			html:  `<meta name="citation_publisher" content="Declared Press">`,
			hooks: []Hook{ForceValue(FieldPublisher, "Forced Press")},
			field: FieldPublisher,
			want:  "Forced Press",
		},
		{
			name:      "override runs after hooks",
			html:      `<meta name="citation_title" content="T">`,
			hooks:     []Hook{ForceValue(FieldPublisher, "Hook Press")},
			overrides: []Override{overrideFunc(func(r *Record) *Record { r.Set(FieldPublisher, "Rule Press"); return r })},
			field:     FieldPublisher,
			want:      "Rule Press",
		},
		{
			name:  "doi derived from url",
			html:  `<meta name="citation_title" content="T">`,
			hooks: []Hook{DOIFromURL},
			field: FieldDOI,
			want:  "10.1111/abc.123",
		},
		{
			name:  "access url defaults to full text",
			html:  `<meta name="citation_title" content="T">`,
			field: FieldAccessURL,
			want:  "http://www.example.com/doi/full/10.1111/abc.123",
		},
		{
			name:  "declared pdf url kept as access url",
			html:  `<meta name="citation_pdf_url" content="http://x/y.pdf">`,
			field: FieldAccessURL,
			want:  "http://x/y.pdf",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Extractor{File: &HTMLMetaExtractor{}, CookMap: cm, Hooks: tt.hooks, Overrides: tt.overrides}
			hc := HookContext{URL: "http://www.example.com/doi/abs/x", Files: files, Config: au.NewConfig(nil)}
			rec, err := e.Extract(context.Background(), strings.NewReader("<html><head>"+tt.html+"</head></html>"), hc)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if got := rec.Get(tt.field); got != tt.want {
				t.Errorf("%s: got %q, want %q", tt.field, got, tt.want)
			}
		})
	}
}

type overrideFunc func(*Record) *Record

func (f overrideFunc) Apply(r *Record) *Record { return f(r) }

func TestHooksCannotMutateEarlierRecord(t *testing.T) {
	var seen *Record
	capture := func(_ HookContext, _ *RawBag, rec *Record) *Record {
		seen = rec
		return nil
	}
	mutate := func(_ HookContext, _ *RawBag, rec *Record) *Record {
		rec.Set(FieldPublisher, "changed")
		return rec
	}
	e := &Extractor{CookMap: &mapping.CookMap{}, Hooks: []Hook{capture, mutate}}
	rec := e.Finish(HookContext{}, NewRawBag())
	if seen.Has(FieldPublisher) {
		t.Error("later hook mutated the record an earlier hook was given")
	}
	if rec.Get(FieldPublisher) != "changed" {
		t.Errorf("publisher: got %q", rec.Get(FieldPublisher))
	}
}

func TestMultiExtractor(t *testing.T) {
	sel, err := NewSelectorExtractor([]Selector{{Key: "citation_volume", CSS: "span.vol"}})
	if err != nil {
		t.Fatal(err)
	}
	m := MultiExtractor{&HTMLMetaExtractor{}, sel}
	bag, err := m.Scan(context.Background(), strings.NewReader(articleHTML))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if bag.First("citation_title") == "" || bag.First("citation_volume") != "Vol. 12" {
		t.Errorf("merged bag: title %q volume %q", bag.First("citation_title"), bag.First("citation_volume"))
	}
}

func TestJSONLinesEmitter(t *testing.T) {
	var buf bytes.Buffer
	em := NewJSONLinesEmitter(&buf)
	em.Extra = map[string]string{"au": "jcore&base_url~x"}

	rec := NewRecord()
	rec.Set(FieldArticleTitle, "One")
	rec.Add(FieldAuthor, "Doe, Jane")
	if err := em.Emit(rec); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec2 := NewRecord()
	rec2.Set(FieldDOI, "10.1234/x")
	if err := em.Emit(rec2); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := em.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 is not JSON: %v", err)
	}
	if first[FieldArticleTitle] != "One" || first["au"] != "jcore&base_url~x" {
		t.Errorf("line 1: %v", first)
	}
	if authors, ok := first[FieldAuthor].([]any); !ok || len(authors) != 1 {
		t.Errorf("author should be a list: %v", first[FieldAuthor])
	}
}
