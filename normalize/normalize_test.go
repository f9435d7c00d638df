package normalize

import (
	"regexp"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/auplugins/au"
)

func cfgWithBase(base string) au.Config {
	return au.NewConfig(map[string]string{au.ParamBaseURL: base})
}

func TestRemoveQueryArgs(t *testing.T) {
	n := RemoveQueryArgs("cookieSet", "utm_source")
	cfg := cfgWithBase("http://onlinelibrary.example.com/")
	tests := []struct {
		in, want string
	}{
		{"http://onlinelibrary.example.com/page?cookieSet=1&other=2", "http://onlinelibrary.example.com/page?other=2"},
		{"http://onlinelibrary.example.com/page?cookieSet=1", "http://onlinelibrary.example.com/page"},
		{"http://onlinelibrary.example.com/page?a=1&cookieSet=1&b=%20x#top", "http://onlinelibrary.example.com/page?a=1&b=%20x#top"},
		{"http://onlinelibrary.example.com/page?utm_source=feed&z=1&a=2", "http://onlinelibrary.example.com/page?z=1&a=2"},
		{"http://onlinelibrary.example.com/page", "http://onlinelibrary.example.com/page"},
		{"http://onlinelibrary.example.com/page?cookieSetX=1", "http://onlinelibrary.example.com/page?cookieSetX=1"},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.in, cfg); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestForceHTTPSOnlyOwnHost(t *testing.T) {
	n := ForceHTTPS()
	cfg := cfgWithBase("https://www.example.com/")
	tests := []struct {
		in, want string
	}{
		{"http://www.example.com/a", "https://www.example.com/a"},
		{"http://WWW.EXAMPLE.COM:80/a", "https://WWW.EXAMPLE.COM/a"},
		{"https://www.example.com/a", "https://www.example.com/a"},
		{"http://cdn.example.net/a.css", "http://cdn.example.net/a.css"},
		{"http://example.com/a", "http://example.com/a"},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.in, cfg); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchBaseScheme(t *testing.T) {
	n := MatchBaseScheme()
	if got := n.Normalize("https://journal.example.org/x", cfgWithBase("http://journal.example.org/")); got != "http://journal.example.org/x" {
		t.Errorf("to http: got %q", got)
	}
	if got := n.Normalize("http://journal.example.org/x", cfgWithBase("https://journal.example.org/")); got != "https://journal.example.org/x" {
		t.Errorf("to https: got %q", got)
	}
	if got := n.Normalize("http://other.example.org/x", cfgWithBase("https://journal.example.org/")); got != "http://other.example.org/x" {
		t.Errorf("other host: got %q", got)
	}
}

func TestAddWWW(t *testing.T) {
	n := AddWWW()
	cfg := cfgWithBase("http://www.example.com/")
	tests := []struct {
		in, want string
	}{
		{"http://example.com/a", "http://www.example.com/a"},
		{"http://www.example.com/a", "http://www.example.com/a"},
		{"http://sub.example.com/a", "http://sub.example.com/a"},
		{"http://other.org/a", "http://other.org/a"},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.in, cfg); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := n.Normalize("http://example.com/a", cfgWithBase("http://example.com/")); got != "http://example.com/a" {
		t.Errorf("base without www must not add it: got %q", got)
	}
}

func TestStrip(t *testing.T) {
	cfg := cfgWithBase("http://www.example.com/")
	s := StripSubstring(";jsessionid=")
	if got := s.Normalize("http://www.example.com/a;jsessionid=?x=1", cfg); got != "http://www.example.com/a?x=1" {
		t.Errorf("StripSubstring: got %q", got)
	}
	p := StripPattern(regexp.MustCompile(`;jsessionid=[0-9A-F]+`))
	if got := p.Normalize("http://www.example.com/a;jsessionid=ABC123?x=1", cfg); got != "http://www.example.com/a?x=1" {
		t.Errorf("StripPattern: got %q", got)
	}
	nested := StripSubstring("ab")
	if got := nested.Normalize("aabb", cfg); got != "" {
		t.Errorf("nested strip: got %q", got)
	}
}

func TestPurell(t *testing.T) {
	n := Purell(DefaultPurellFlags)
	got := n.Normalize("HTTP://WWW.Example.COM:80/a%7eb", au.Config{})
	if got != "http://www.example.com/a~b" {
		t.Errorf("Purell: got %q", got)
	}
	if bad := "http://[::1"; n.Normalize(bad, au.Config{}) != bad {
		t.Error("unparsable URL should be returned unchanged")
	}
}

func TestBadBaseURLReturnsInput(t *testing.T) {
	bad := au.NewConfig(map[string]string{au.ParamBaseURL: "::not a url"})
	in := "http://www.example.com/a"
	for name, n := range map[string]Normalizer{
		"force_https":       ForceHTTPS(),
		"add_www":           AddWWW(),
		"match_base_scheme": MatchBaseScheme(),
	} {
		if got := n.Normalize(in, bad); got != in {
			t.Errorf("%s: got %q, want input unchanged", name, got)
		}
		if got := n.Normalize(in, au.Config{}); got != in {
			t.Errorf("%s without base_url: got %q", name, got)
		}
	}
}

func TestChainRecoversPanics(t *testing.T) {
	boom := Func(func(string, au.Config) string { panic("boom") })
	c := Chain{boom, RemoveQueryArgs("x")}
	if got := c.Normalize("http://a.example/?x=1&y=2", au.Config{}); got != "http://a.example/?y=2" {
		t.Errorf("got %q", got)
	}
}

func TestStripPatternDeepNesting(t *testing.T) {
	cfg := cfgWithBase("http://www.example.com/")
	p := StripPattern(regexp.MustCompile(`\(s\)`))
	tests := []struct {
		depth int
		want  string
	}{
		{depth: 1, want: "http://www.example.com/a"},
		{depth: 8, want: "http://www.example.com/a"},
		{depth: 40, want: "http://www.example.com/a"},
	}
	for _, tt := range tests {
		in := "http://www.example.com/a" + strings.Repeat("(", tt.depth) + "s" + strings.Repeat(")", tt.depth)
		got := p.Normalize(in, cfg)
		if got != tt.want {
			t.Errorf("depth %d: got %q, want %q", tt.depth, got, tt.want)
		}
		if again := p.Normalize(got, cfg); again != got {
			t.Errorf("depth %d: second pass changed %q to %q", tt.depth, got, again)
		}
	}
}

func TestIdempotence(t *testing.T) {
	cfg := cfgWithBase("https://www.example.com/")
	chain, err := Build([]Spec{
		{Name: "remove_query_args", Args: []string{"cookieSet"}},
		{Name: "add_www"},
		{Name: "force_https"},
		{Name: "strip_pattern", Args: []string{`;jsessionid=\w+`}},
		{Name: "purell"},
		{Name: "sort_query_args"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	samples := []string{
		"http://example.com/page?cookieSet=1&other=2",
		"HTTP://Example.com:80/a;jsessionid=XYZ?b=2&a=1",
		"https://www.example.com/doi/abs/10.1111/x.y",
		"http://cdn.other.net/style.css?v=3",
		"http://example.com/?cookieSet=1",
		"not a url",
		"",
	}
	for _, s := range samples {
		once := chain.Normalize(s, cfg)
		twice := chain.Normalize(once, cfg)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	bad := [][]Spec{
		{{Name: "nope"}},
		{{Name: "remove_query_args"}},
		{{Name: "force_https", Args: []string{"x"}}},
		{{Name: "strip_pattern", Args: []string{"("}}},
	}
	for _, specs := range bad {
		if _, err := Build(specs); err == nil {
			t.Errorf("Build(%v): expected error", specs)
		}
	}
}
