package iterator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/auplugins/au"
)

// SkipRule drops a matched URL when capture group Group equals one of Values
// (case-insensitively). It is how tables of contents ("toc") and full-issue
// PDFs ("vm") that share an article's URL shape are kept out.
type SkipRule struct {
	Group  int      `yaml:"group" json:"group"`
	Values []string `yaml:"values" json:"values"`
}

// AspectSpec is the AU-independent definition of an aspect. Patterns are
// templates so they may embed AU parameters; a pattern without arguments is
// used as a literal regular expression.
type AspectSpec struct {
	Patterns     []au.Template `yaml:"patterns" json:"patterns"`
	Replacements []string      `yaml:"replacements,omitempty" json:"replacements,omitempty"`
	Roles        []string      `yaml:"roles" json:"roles"`
	Skip         []SkipRule    `yaml:"skip,omitempty" json:"skip,omitempty"`
}

// Aspect is an AspectSpec compiled against one AU.
type Aspect struct {
	Patterns     []*regexp.Regexp
	Replacements []string
	Roles        []string
	Skip         []SkipRule
}

// Compile expands the aspect's patterns against cfg.
func (s AspectSpec) Compile(cfg au.Config, caseInsensitive bool) (*Aspect, error) {
	if len(s.Patterns) == 0 {
		return nil, fmt.Errorf("aspect %v has no patterns", s.Roles)
	}
	if len(s.Roles) == 0 {
		return nil, fmt.Errorf("aspect %v has no roles", s.Patterns)
	}
	a := &Aspect{
		Replacements: s.Replacements,
		Roles:        s.Roles,
		Skip:         s.Skip,
	}
	for _, p := range s.Patterns {
		re, err := p.CompilePattern(cfg, caseInsensitive)
		if err != nil {
			return nil, fmt.Errorf("aspect %v: %w", s.Roles, err)
		}
		for _, rule := range s.Skip {
			if rule.Group < 1 || rule.Group > re.NumSubexp() {
				return nil, fmt.Errorf("aspect %v: skip group %d out of range for %s", s.Roles, rule.Group, re)
			}
		}
		a.Patterns = append(a.Patterns, re)
	}
	return a, nil
}

// Match is the result of matching a URL against an aspect list.
type Match struct {
	URL     string
	Aspect  int
	Pattern *regexp.Regexp
	indexes []int
}

// Group returns capture group n, or "" when it did not participate.
func (m Match) Group(n int) string {
	if 2*n+1 >= len(m.indexes) || m.indexes[2*n] < 0 {
		return ""
	}
	return m.URL[m.indexes[2*n]:m.indexes[2*n+1]]
}

// Groups returns all capture groups, group 0 first.
func (m Match) Groups() []string {
	out := make([]string, len(m.indexes)/2)
	for i := range out {
		out[i] = m.Group(i)
	}
	return out
}

// Replace applies a replacement template to the matched URL. The text before
// and after the match is kept, as with a replace-first on the URL.
func (m Match) Replace(template string) string {
	var dst []byte
	dst = m.Pattern.ExpandString(dst, template, m.URL, m.indexes)
	return m.URL[:m.indexes[0]] + string(dst) + m.URL[m.indexes[1]:]
}

// MatchAspects returns the first aspect, in declaration order, with a pattern
// matching url.
func MatchAspects(aspects []*Aspect, url string) (Match, bool) {
	for i, a := range aspects {
		for _, re := range a.Patterns {
			if idx := re.FindStringSubmatchIndex(url); idx != nil {
				return Match{URL: url, Aspect: i, Pattern: re, indexes: idx}, true
			}
		}
	}
	return Match{}, false
}

// Companions returns the candidate URLs for target computed from m.
func Companions(m Match, target *Aspect) []string {
	out := make([]string, 0, len(target.Replacements))
	for _, r := range target.Replacements {
		out = append(out, m.Replace(r))
	}
	return out
}

// skipped reports whether a skip rule of the matched aspect fires.
func (a *Aspect) skipped(m Match) (SkipRule, bool) {
	for _, rule := range a.Skip {
		g := m.Group(rule.Group)
		for _, v := range rule.Values {
			if strings.EqualFold(g, v) {
				return rule, true
			}
		}
	}
	return SkipRule{}, false
}
