package iterator

import (
	"context"
	"errors"
	"testing"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/store"
)

const issue = "http://www.example.com/2014/abc/01/"

func issueSpec() Spec {
	return Spec{
		Roots:   []au.Template{au.MustParseTemplate(`"%s%d/%s/", base_url, year, journal_id`)},
		Pattern: au.MustParseTemplate(`"^%s%d/%s/[^/]+/(pdf/|suppl/)?[^/]+\.(html|pdf)$", base_url, year, journal_id`),
		Aspects: []AspectSpec{
			{
				Patterns:     []au.Template{au.MustParseTemplate(`"^(%s)(%d/%s/[^/]+)/([^/]+)\.html$", base_url, year, journal_id`)},
				Replacements: []string{"${1}${2}/${3}.html"},
				Roles:        []string{RoleFullTextHTML, RoleAbstract, RoleArticleMetadata},
				Skip:         []SkipRule{{Group: 3, Values: []string{"toc", "index"}}},
			},
			{
				Patterns:     []au.Template{au.MustParseTemplate(`"^(%s)(%d/%s/[^/]+)/pdf/([^/]+)\.pdf$", base_url, year, journal_id`)},
				Replacements: []string{"${1}${2}/pdf/${3}.pdf"},
				Roles:        []string{RoleFullTextPDF},
				Skip:         []SkipRule{{Group: 3, Values: []string{"vm"}}},
			},
		},
		FullTextFromRoles: []string{RoleFullTextHTML, RoleFullTextPDF},
	}
}

func issueConfig() au.Config {
	return au.NewConfig(map[string]string{
		au.ParamBaseURL:   "http://www.example.com/",
		au.ParamYear:      "2014",
		au.ParamJournalID: "abc",
	})
}

func issueStore() *store.Memory {
	return store.NewMemory().
		Add(issue+"art1.html", "text/html", "<html>1</html>").
		Add(issue+"pdf/art1.pdf", "application/pdf", "%PDF-1").
		Add(issue+"art2.html", "text/html", "<html>2</html>").
		Add(issue+"pdf/art3.pdf", "application/pdf", "%PDF-3").
		Add(issue+"toc.html", "text/html", "<html>toc</html>").
		Add(issue+"pdf/vm.pdf", "application/pdf", "%PDF-vm").
		Add(issue+"suppl/data.pdf", "application/pdf", "%PDF-s").
		Add(issue+"notes.txt", "text/plain", "notes").
		Add("http://www.example.com/2015/abc/01/art9.html", "text/html", "<html>9</html>")
}

func newIssueIterator(t *testing.T) *Iterator {
	t.Helper()
	it, err := New(issueSpec(), issueConfig(), issueStore())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return it
}

func TestCollect(t *testing.T) {
	it := newIssueIterator(t)
	got, err := it.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	want := []struct {
		full  string
		roles map[string]string
	}{
		{
			full: issue + "art1.html",
			roles: map[string]string{
				RoleFullTextHTML:    issue + "art1.html",
				RoleAbstract:        issue + "art1.html",
				RoleArticleMetadata: issue + "art1.html",
				RoleFullTextPDF:     issue + "pdf/art1.pdf",
			},
		},
		{
			full: issue + "art2.html",
			roles: map[string]string{
				RoleFullTextHTML:    issue + "art2.html",
				RoleAbstract:        issue + "art2.html",
				RoleArticleMetadata: issue + "art2.html",
			},
		},
		{
			full: issue + "pdf/art3.pdf",
			roles: map[string]string{
				RoleFullTextPDF: issue + "pdf/art3.pdf",
			},
		},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d: %v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].FullTextURL != w.full {
			t.Errorf("record %d: full text %q, want %q", i, got[i].FullTextURL, w.full)
		}
		roles := got[i].RoleMap()
		if len(roles) != len(w.roles) {
			t.Errorf("record %d: roles %v, want %v", i, roles, w.roles)
		}
		for r, u := range w.roles {
			if roles[r] != u {
				t.Errorf("record %d: role %s = %q, want %q", i, r, roles[r], u)
			}
		}
	}

	st := it.Stats()
	wantStats := Stats{Scanned: 8, OutOfScope: 1, Unmatched: 1, SentinelSkipped: 2, DuplicateSkipped: 1, Emitted: 3}
	if st != wantStats {
		t.Errorf("Stats: got %+v, want %+v", st, wantStats)
	}
	if st.Skipped() != 5 {
		t.Errorf("Skipped: got %d", st.Skipped())
	}
}

func TestProcessSentinels(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"table of contents", issue + "toc.html"},
		{"table of contents upper case", issue + "TOC.html"},
		{"full issue pdf", issue + "pdf/vm.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := newIssueIterator(t)
			af, state := it.Process(context.Background(), tt.url)
			if af != nil || state != StateSkipped {
				t.Errorf("got %v, %s; want no record", af, state)
			}
			if it.Stats().SentinelSkipped != 1 {
				t.Errorf("SentinelSkipped: got %d", it.Stats().SentinelSkipped)
			}
		})
	}
}

func TestProcessUnmatched(t *testing.T) {
	it := newIssueIterator(t)
	it.pattern = nil
	for _, u := range []string{
		issue + "suppl/data.pdf",
		"http://www.example.com/",
		"not a url at all",
		"",
	} {
		af, state := it.Process(context.Background(), u)
		if af != nil || state != StateSkipped {
			t.Errorf("%q: got %v, %s; want skipped", u, af, state)
		}
	}
	if got := it.Stats().Unmatched; got != 4 {
		t.Errorf("Unmatched: got %d, want 4", got)
	}
}

func TestCompanionRoundTrip(t *testing.T) {
	it := newIssueIterator(t)
	urls := []string{
		issue + "art1.html",
		issue + "pdf/art1.pdf",
		issue + "pdf/art3.pdf",
		issue + "toc.html",
	}
	for _, u := range urls {
		m, ok := it.Match(u)
		if !ok {
			t.Fatalf("%s: no match", u)
		}
		own := it.Aspects()[m.Aspect]
		for _, c := range Companions(m, own) {
			if c != u {
				t.Errorf("%s: own companion %q differs", u, c)
			}
			m2, ok := it.Match(c)
			if !ok || m2.Aspect != m.Aspect {
				t.Errorf("%s: companion %q re-matched aspect %d", u, c, m2.Aspect)
			}
		}
		for i, other := range it.Aspects() {
			for _, c := range Companions(m, other) {
				back, ok := it.Match(c)
				if !ok || back.Aspect != i {
					t.Errorf("%s: companion %q for aspect %d re-matched %v", u, c, i, back.Aspect)
					continue
				}
				for _, rc := range Companions(back, own) {
					if rc != u {
						t.Errorf("%s: round trip through %q gave %q", u, c, rc)
					}
				}
			}
		}
	}
}

func TestMatchGroups(t *testing.T) {
	it := newIssueIterator(t)
	m, ok := it.Match(issue + "pdf/art7.pdf")
	if !ok {
		t.Fatal("no match")
	}
	if m.Aspect != 1 {
		t.Errorf("Aspect: got %d, want 1", m.Aspect)
	}
	groups := m.Groups()
	want := []string{issue + "pdf/art7.pdf", "http://www.example.com/", "2014/abc/01", "art7"}
	if len(groups) != len(want) {
		t.Fatalf("Groups: got %v", groups)
	}
	for i := range want {
		if groups[i] != want[i] {
			t.Errorf("group %d: got %q, want %q", i, groups[i], want[i])
		}
	}
	if m.Group(9) != "" {
		t.Error("out of range group should be empty")
	}
}

func TestRoleDerivationAndRequiredRoles(t *testing.T) {
	spec := Spec{
		Aspects: []AspectSpec{
			{
				Patterns:     []au.Template{au.MustParseTemplate(`"^(%s)article/view/(\d+)$", base_url`)},
				Replacements: []string{"${1}article/view/${2}"},
				Roles:        []string{RoleAbstract},
			},
			{
				Patterns:     []au.Template{au.MustParseTemplate(`"^(%s)article/download/(\d+)$", base_url`)},
				Replacements: []string{"${1}article/download/${2}"},
				Roles:        []string{RoleFullTextPDF},
			},
		},
		RoleFromOtherRoles: map[string][]string{
			RoleArticleMetadata: {RoleAbstract, RoleFullTextPDF},
		},
		RequireRoles: []string{RoleFullTextPDF},
	}
	base := "http://journals.example.org/"
	st := store.NewMemory().
		Add(base+"article/view/1", "text/html", "a").
		Add(base+"article/download/1", "application/pdf", "p").
		Add(base+"article/view/2", "text/html", "abstract only")
	cfg := au.NewConfig(map[string]string{au.ParamBaseURL: base})

	it, err := New(spec, cfg, st)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if roots := it.Roots(); len(roots) != 1 || roots[0] != base {
		t.Errorf("Roots: got %v, want base_url", roots)
	}
	got, err := it.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1: %v", len(got), got)
	}
	af := got[0]
	if af.FullTextURL != base+"article/view/1" {
		t.Errorf("FullTextURL: got %q", af.FullTextURL)
	}
	if af.RoleURL(RoleArticleMetadata) != base+"article/view/1" {
		t.Errorf("derived metadata role: got %q", af.RoleURL(RoleArticleMetadata))
	}
	if af.RoleURL(RoleFullTextPDF) != base+"article/download/1" {
		t.Errorf("pdf role: got %q", af.RoleURL(RoleFullTextPDF))
	}
	if it.Stats().Incomplete != 1 {
		t.Errorf("Incomplete: got %d, want 1", it.Stats().Incomplete)
	}
}

func TestNewMissingParam(t *testing.T) {
	cfg := au.NewConfig(map[string]string{au.ParamBaseURL: "http://www.example.com/"})
	_, err := New(issueSpec(), cfg, store.NewMemory())
	var pe *au.ParamError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParamError, got %v", err)
	}
	if pe.Param != au.ParamYear {
		t.Errorf("Param: got %q", pe.Param)
	}
	if !errors.Is(err, au.ErrMissingParam) {
		t.Error("expected ErrMissingParam")
	}
}

func TestCompileRejectsBadSkipGroup(t *testing.T) {
	spec := issueSpec()
	spec.Aspects[1].Skip = []SkipRule{{Group: 7, Values: []string{"vm"}}}
	if _, err := New(spec, issueConfig(), store.NewMemory()); err == nil {
		t.Error("expected error for skip group out of range")
	}
}

func TestEachStopsOnError(t *testing.T) {
	it := newIssueIterator(t)
	stop := errors.New("stop")
	calls := 0
	err := it.Each(context.Background(), func(*ArticleFiles) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("got %v after %d calls", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newIssueIterator(t).Each(ctx, func(*ArticleFiles) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled context: got %v", err)
	}
}

func TestStateString(t *testing.T) {
	if StateSkipped.String() != "skipped" || State(42).String() != "State(42)" {
		t.Errorf("unexpected State strings")
	}
}

func TestBuilderMatchesSpec(t *testing.T) {
	spec := NewBuilder().
		Root(`"%s%d/%s/", base_url, year, journal_id`).
		Pattern(`"^%s%d/%s/[^/]+/(pdf/|suppl/)?[^/]+\.(html|pdf)$", base_url, year, journal_id`).
		Aspect([]string{`"^(%s)(%d/%s/[^/]+)/([^/]+)\.html$", base_url, year, journal_id`}, []string{"${1}${2}/${3}.html"},
			RoleFullTextHTML, RoleAbstract, RoleArticleMetadata).
		SkipGroup(3, "toc", "index").
		Aspect([]string{`"^(%s)(%d/%s/[^/]+)/pdf/([^/]+)\.pdf$", base_url, year, journal_id`}, []string{"${1}${2}/pdf/${3}.pdf"},
			RoleFullTextPDF).
		SkipGroup(3, "vm").
		FullTextFrom(RoleFullTextHTML, RoleFullTextPDF).
		Spec()

	it, err := New(spec, issueConfig(), issueStore())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := it.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want, err := newIssueIterator(t).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].String() != want[i].String() {
			t.Errorf("record %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestAttachedURLNotReemitted(t *testing.T) {
	// view/N cannot name the galley id of download/N/M
	spec := Spec{
		Aspects: []AspectSpec{
			{
				Patterns:     []au.Template{au.MustParseTemplate(`"^(%sarticle)/download/(\d+)/(\d+)$", base_url`)},
				Replacements: []string{"${1}/download/${2}/${3}"},
				Roles:        []string{RoleFullTextPDF},
			},
			{
				Patterns:     []au.Template{au.MustParseTemplate(`"^(%sarticle)/view/(\d+)$", base_url`)},
				Replacements: []string{"${1}/view/${2}"},
				Roles:        []string{RoleAbstract},
			},
		},
		FullTextFromRoles: []string{RoleFullTextPDF, RoleAbstract},
	}
	base := "http://journals.example.org/"
	st := store.NewMemory().
		Add(base+"article/download/5/9", "application/pdf", "p").
		Add(base+"article/view/5", "text/html", "a").
		Add(base+"article/view/6", "text/html", "b")

	it, err := New(spec, au.NewConfig(map[string]string{au.ParamBaseURL: base}), st)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := it.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2: %v", len(got), got)
	}
	if got[0].FullTextURL != base+"article/download/5/9" || got[0].RoleURL(RoleAbstract) != base+"article/view/5" {
		t.Errorf("record 0: %s", got[0])
	}
	if got[1].FullTextURL != base+"article/view/6" || got[1].HasRole(RoleFullTextPDF) {
		t.Errorf("record 1: %s", got[1])
	}
	if st := it.Stats(); st.DuplicateSkipped != 1 {
		t.Errorf("DuplicateSkipped: got %d, want 1", st.DuplicateSkipped)
	}
}
