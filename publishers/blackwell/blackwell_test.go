package blackwell

import (
	"context"
	"testing"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/iterator"
	"github.com/lehigh-university-libraries/auplugins/metadata"
	"github.com/lehigh-university-libraries/auplugins/plugin"
	"github.com/lehigh-university-libraries/auplugins/store"
)

const base = "http://onlinelibrary.example.com/"

func config() au.Config {
	return au.NewConfig(map[string]string{
		au.ParamBaseURL:     base,
		au.ParamJournalISSN: "1467-8519",
		au.ParamVolumeName:  "28",
	})
}

func TestNormalizerStripsCookieSet(t *testing.T) {
	n := Normalizer()
	tests := []struct {
		in, want string
	}{
		{base + "page?cookieSet=1&other=2", base + "page?other=2"},
		{base + "doi/pdf/10.1111/j.1467-8519.2014.01.x?cookieSet=1", base + "doi/pdf/10.1111/j.1467-8519.2014.01.x"},
		{base + "page?other=2", base + "page?other=2"},
	}
	for _, tt := range tests {
		got := n.Normalize(tt.in, config())
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := n.Normalize(got, config()); again != got {
			t.Errorf("not idempotent: %q then %q", got, again)
		}
	}
}

const absPage = `<html><head>
<meta name="citation_title" content="Consent and Its Discontents">
<meta name="citation_author" content="Smith, Jane">
<meta name="citation_author" content="Doe, John">
<meta name="citation_journal_title" content="Bioethics">
<meta name="citation_volume" content="28">
</head><body></body></html>`

func TestExtractArticles(t *testing.T) {
	doi1 := "10.1111/j.1467-8519.2014.01.x"
	doi2 := "10.1111/j.1467-8519.2014.02.x"
	st := store.NewMemory().
		Add(base+"doi/full/"+doi1, "text/html", "<html>full</html>").
		Add(base+"doi/pdf/"+doi1, "application/pdf", "%PDF").
		Add(base+"doi/abs/"+doi1, "text/html", absPage).
		Add(base+"doi/pdf/"+doi2, "application/pdf", "%PDF").
		Add(base+"doi/abs/"+doi2, "text/html", absPage).
		Add(base+"doi/abs/10.1111/j.1467-8519.2014.03.x", "text/html", absPage)

	p, err := plugin.Get(ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	it, err := p.NewIterator(config(), st)
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	arts, err := it.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(arts) != 2 {
		t.Fatalf("got %d articles: %v", len(arts), arts)
	}
	if got := arts[0].FullTextURL; got != base+"doi/full/"+doi1 {
		t.Errorf("first full text: %q", got)
	}
	if got := arts[1].FullTextURL; got != base+"doi/pdf/"+doi2 {
		t.Errorf("second full text: %q", got)
	}
	if got := arts[0].RoleURL(iterator.RoleArticleMetadata); got != base+"doi/abs/"+doi1 {
		t.Errorf("metadata role: %q", got)
	}
	if s := it.Stats(); s.Incomplete != 1 {
		t.Errorf("abstract-only article should be incomplete: %+v", s)
	}

	rec, err := p.ExtractArticle(context.Background(), config(), st, arts[1])
	if err != nil {
		t.Fatalf("ExtractArticle: %v", err)
	}
	want := map[string]string{
		metadata.FieldDOI:          doi2,
		metadata.FieldPublisher:    Publisher,
		metadata.FieldArticleTitle: "Consent and Its Discontents",
		metadata.FieldAccessURL:    base + "doi/pdf/" + doi2,
	}
	for f, v := range want {
		if got := rec.Get(f); got != v {
			t.Errorf("%s: got %q, want %q", f, got, v)
		}
	}
	if got := rec.GetAll(metadata.FieldAuthor); len(got) != 2 || got[0] != "Smith, Jane" {
		t.Errorf("authors: %v", got)
	}
}
