package links

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/normalize"
)

const toc = `<html><head>
<link rel="stylesheet" href="/css/site.css">
<meta http-equiv="refresh" content="30; URL='/2014/abc/01/'">
</head><body>
<a href="art1.html#top">Article 1</a>
<a href="art1.html">Article 1 again</a>
<a href="pdf/art1.pdf?cookieSet=1">PDF</a>
<a href="mailto:editor@example.com">mail</a>
<a href="javascript:void(0)">js</a>
<img src="//cdn.example.net/logo.png">
<iframe src="http://ads.example.org/frame"></iframe>
</body></html>`

func TestExtract(t *testing.T) {
	e := &Extractor{}
	got, err := e.Extract(context.Background(), "http://www.example.com/2014/abc/01/toc.html", strings.NewReader(toc))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []string{
		"http://www.example.com/css/site.css",
		"http://www.example.com/2014/abc/01/",
		"http://www.example.com/2014/abc/01/art1.html",
		"http://www.example.com/2014/abc/01/pdf/art1.pdf?cookieSet=1",
		"http://cdn.example.net/logo.png",
		"http://ads.example.org/frame",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v\nwant %v", got, want)
	}
}

func TestExtractBaseNormalizeAndScope(t *testing.T) {
	page := `<html><head><base href="https://www.example.com/content/"></head><body>
<a href="a.html?cookieSet=1&x=2">a</a>
<a href="a.html?x=2">a</a>
<a href="http://other.example.org/b.html">b</a>
</body></html>`
	e := &Extractor{
		Normalizer: normalize.RemoveQueryArgs("cookieSet"),
		Config:     au.NewConfig(map[string]string{au.ParamBaseURL: "https://www.example.com/"}),
		Scope: ScopeFunc(func(u string) bool {
			return strings.HasPrefix(u, "https://www.example.com/")
		}),
	}
	got, err := e.Extract(context.Background(), "https://www.example.com/index.html", strings.NewReader(page))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []string{"https://www.example.com/content/a.html?x=2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRefreshURL(t *testing.T) {
	tests := map[string]string{
		"5; url=/next":       "/next",
		`0;URL="a.html"`:     "a.html",
		"10":                 "",
		"5; target=/x":       "",
		"5; URL = 'b.html' ": "b.html",
	}
	for in, want := range tests {
		if got := refreshURL(in); got != want {
			t.Errorf("refreshURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractBadPageURL(t *testing.T) {
	if _, err := (&Extractor{}).Extract(context.Background(), "http://[::1", strings.NewReader("")); err == nil {
		t.Error("expected error")
	}
}
