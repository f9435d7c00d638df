package iterator

import "github.com/lehigh-university-libraries/auplugins/au"

// Builder assembles a Spec in code, for publishers written in Go.
//
//	spec := iterator.NewBuilder().
//		Pattern(`"^%sdoi/(abs|full|pdf)/", base_url`).
//		Aspect([]string{`"^(%sdoi)/full/(.+)$", base_url`}, []string{"${1}/full/${2}"}, RoleFullTextHTML).
//		Aspect([]string{`"^(%sdoi)/pdf/(.+)$", base_url`}, []string{"${1}/pdf/${2}"}, RoleFullTextPDF).
//		FullTextFrom(RoleFullTextHTML, RoleFullTextPDF).
//		Spec()
//
// Template strings use the au.ParseTemplate form; a malformed one panics,
// since builders run from init with literal arguments.
type Builder struct {
	spec Spec
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Root adds a root template.
func (b *Builder) Root(tmpl string) *Builder {
	b.spec.Roots = append(b.spec.Roots, au.MustParseTemplate(tmpl))
	return b
}

// Pattern sets the inclusion pattern.
func (b *Builder) Pattern(tmpl string) *Builder {
	b.spec.Pattern = au.MustParseTemplate(tmpl)
	return b
}

// CaseInsensitive makes the inclusion and aspect patterns ignore case.
func (b *Builder) CaseInsensitive() *Builder {
	b.spec.CaseInsensitive = true
	return b
}

// Aspect appends an aspect. Patterns are templates; replacements use Go
// regexp expansion syntax.
func (b *Builder) Aspect(patterns, replacements []string, roles ...string) *Builder {
	as := AspectSpec{Replacements: replacements, Roles: roles}
	for _, p := range patterns {
		as.Patterns = append(as.Patterns, au.MustParseTemplate(p))
	}
	b.spec.Aspects = append(b.spec.Aspects, as)
	return b
}

// SkipGroup attaches a sentinel rule to the last added aspect.
func (b *Builder) SkipGroup(group int, values ...string) *Builder {
	if n := len(b.spec.Aspects); n > 0 {
		b.spec.Aspects[n-1].Skip = append(b.spec.Aspects[n-1].Skip, SkipRule{Group: group, Values: values})
	}
	return b
}

// FullTextFrom sets the full text role preference.
func (b *Builder) FullTextFrom(roles ...string) *Builder {
	b.spec.FullTextFromRoles = roles
	return b
}

// RoleFrom derives role from the first populated role in from.
func (b *Builder) RoleFrom(role string, from ...string) *Builder {
	if b.spec.RoleFromOtherRoles == nil {
		b.spec.RoleFromOtherRoles = make(map[string][]string)
	}
	b.spec.RoleFromOtherRoles[role] = from
	return b
}

// Require drops records without any of roles.
func (b *Builder) Require(roles ...string) *Builder {
	b.spec.RequireRoles = roles
	return b
}

// Spec returns the assembled Spec.
func (b *Builder) Spec() Spec {
	return b.spec
}
