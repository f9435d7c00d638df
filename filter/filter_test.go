package filter

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
)

const page = `<html><head><title>Article</title></head><body>
<div id="ad">Buy now! session=123</div>
<!-- generated 2014-01-01 12:00 -->
<div class="content"><h1>Title</h1><p>Body   text.</p></div>
<div class="footer">Visited 5 times</div>
</body></html>`

func TestHTMLNodeFilterRemove(t *testing.T) {
	f, err := NewHTMLNodeFilter(nil, []string{"#ad", ".footer"}, true)
	if err != nil {
		t.Fatalf("NewHTMLNodeFilter: %v", err)
	}
	out, err := f.Apply(context.Background(), []byte(page))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s := string(out)
	for _, gone := range []string{"Buy now", "Visited", "generated"} {
		if strings.Contains(s, gone) {
			t.Errorf("output still contains %q: %s", gone, s)
		}
	}
	if !strings.Contains(s, "<h1>Title</h1>") {
		t.Errorf("content dropped: %s", s)
	}
}

func TestHTMLNodeFilterInclude(t *testing.T) {
	f, err := NewHTMLNodeFilter([]string{".content"}, nil, false)
	if err != nil {
		t.Fatalf("NewHTMLNodeFilter: %v", err)
	}
	out, err := f.Apply(context.Background(), []byte(page))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := `<div class="content"><h1>Title</h1><p>Body   text.</p></div>` + "\n"
	if string(out) != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestHTMLNodeFilterBadSelector(t *testing.T) {
	if _, err := NewHTMLNodeFilter(nil, []string{"div[["}, false); err == nil {
		t.Error("expected selector error")
	}
}

func TestTagStripFilter(t *testing.T) {
	f := NewTagStripFilter()
	out, err := f.Apply(context.Background(), []byte("<p>Fish &amp;  <b>chips</b></p>\n<p>again</p>"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if string(out) != "Fish & chips again" {
		t.Errorf("got %q", out)
	}
}

func TestReplaceAndWhitespace(t *testing.T) {
	ctx := context.Background()
	c := Chain{
		ReplaceFilter{Pattern: regexp.MustCompile(`session=\w+`)},
		ReplaceFilter{Old: "Buy", New: "Sell"},
		WhitespaceFilter{},
	}
	out, err := c.Apply(ctx, []byte("  Buy now!\n\tsession=abc  "))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if string(out) != "Sell now!" {
		t.Errorf("got %q", out)
	}
}

func TestXMLElementFilter(t *testing.T) {
	f, err := NewXMLElementFilter("//processing-meta", "./article/front/article-meta/history")
	if err != nil {
		t.Fatalf("NewXMLElementFilter: %v", err)
	}
	in := `<article><processing-meta tagset="x"/><front><article-meta><history><date>2014</date></history><volume>3</volume></article-meta></front></article>`
	out, err := f.Apply(context.Background(), []byte(in))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s := string(out)
	if strings.Contains(s, "processing-meta") || strings.Contains(s, "history") {
		t.Errorf("elements not removed: %s", s)
	}
	if !strings.Contains(s, "<volume>3</volume>") {
		t.Errorf("volume lost: %s", s)
	}
	if _, err := f.Apply(context.Background(), []byte("<a attr=></a>")); err == nil {
		t.Error("expected parse error")
	}
}

func TestPDFTokenFilter(t *testing.T) {
	a := []byte("%PDF-1.4\n/CreationDate (D:20140101120000Z) /ModDate(D:20140101120000Z)\ntrailer << /ID [<AB12> <CD34>] >>\n<xmpMM:InstanceID>uuid:1</xmpMM:InstanceID>")
	b := []byte("%PDF-1.4\n/CreationDate (D:20150505000000Z) /ModDate(D:20150505000000Z)\ntrailer << /ID [<FF00> <0011>] >>\n<xmpMM:InstanceID>uuid:2</xmpMM:InstanceID>")
	ctx := context.Background()
	ha, err := Hash(ctx, PDFTokenFilter{}, strings.NewReader(string(a)))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	hb, err := Hash(ctx, PDFTokenFilter{}, strings.NewReader(string(b)))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if ha != hb {
		t.Errorf("filtered hashes differ: %s vs %s", ha, hb)
	}
	raw, _ := Hash(ctx, nil, strings.NewReader(string(a)))
	if raw == ha {
		t.Error("unfiltered hash should differ from filtered")
	}
	if len(ha) != 16 {
		t.Errorf("hash length: got %d", len(ha))
	}
}

func TestSafe(t *testing.T) {
	failing := Func(func(context.Context, []byte) ([]byte, error) { return nil, errors.New("bad content") })
	out, err := Safe(failing).Apply(context.Background(), []byte("keep"))
	if err != nil || string(out) != "keep" {
		t.Errorf("Safe: got %q, %v", out, err)
	}
	if _, err := (Chain{failing}).Apply(context.Background(), []byte("x")); err == nil {
		t.Error("unwrapped failure should propagate")
	}
}

func TestChainHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Chain{WhitespaceFilter{}}).Apply(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestBuild(t *testing.T) {
	chain, err := Build([]Spec{
		{Name: "html_remove", Args: []string{"#ad"}},
		{Name: "strip_tags"},
		{Name: "regex_replace", Args: []string{`\d+ times`}},
		{Name: "whitespace"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out, err := chain.Apply(context.Background(), []byte(page))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s := string(out)
	if strings.ContainsAny(s, "<>") || strings.Contains(s, "Buy") || !strings.HasSuffix(s, "Body text. Visited") {
		t.Errorf("got %q", s)
	}

	for _, bad := range [][]Spec{
		{{Name: "nope"}},
		{{Name: "html_remove"}},
		{{Name: "replace", Args: []string{"a"}}},
		{{Name: "regex_replace", Args: []string{"("}}},
		{{Name: "whitespace", Args: []string{"x"}}},
	} {
		if _, err := Build(bad); err == nil {
			t.Errorf("Build(%v): expected error", bad)
		}
	}
}

func TestBuildSafeByDefault(t *testing.T) {
	malformed := []byte("<a attr=></a>")
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{name: "default passes content through", spec: Spec{Name: "xml_remove", Args: []string{"//b"}}},
		{name: "strict fails", spec: Spec{Name: "xml_remove", Args: []string{"//b"}, Strict: true}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, err := Build([]Spec{tt.spec})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			out, err := chain.Apply(context.Background(), malformed)
			if tt.wantErr {
				if err == nil {
					t.Error("expected parse error")
				}
				return
			}
			if err != nil || string(out) != string(malformed) {
				t.Errorf("got %q, %v; want content unchanged", out, err)
			}
		})
	}
}

func TestHashWidth(t *testing.T) {
	for _, in := range []string{"", "a", "Body text."} {
		sum, err := Hash(context.Background(), nil, strings.NewReader(in))
		if err != nil {
			t.Fatalf("Hash(%q): %v", in, err)
		}
		if len(sum) != 16 || strings.Trim(sum, "0123456789abcdef") != "" {
			t.Errorf("Hash(%q) = %q, want 16 lowercase hex digits", in, sum)
		}
	}
	a, _ := Hash(context.Background(), nil, strings.NewReader("a"))
	b, _ := Hash(context.Background(), nil, strings.NewReader("b"))
	if a == b {
		t.Error("distinct content hashed equal")
	}
}
