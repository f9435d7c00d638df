// Package iterator groups the URLs of an archival unit into logical articles.
//
// Each URL under the AU's scope is classified by an ordered list of aspects
// (regular expressions tagged with roles such as full-text HTML, full-text PDF
// or abstract). The first aspect that matches a URL wins; replacement
// templates from the other aspects compute where the article's companion
// files would live, and the content store tells which of them exist.
package iterator

import (
	"sort"
	"strings"
)

// Article roles.
const (
	RoleFullTextHTML       = "FullTextHtml"
	RoleFullTextPDF        = "FullTextPdfFile"
	RoleFullTextPDFLanding = "FullTextPdfLanding"
	RoleFullTextXML        = "FullTextXml"
	RoleAbstract           = "Abstract"
	RoleArticleMetadata    = "ArticleMetadata"
	RoleCitation           = "Citation"
	RoleReferences         = "References"
	RoleSupplementary      = "SupplementaryMaterials"
	RoleIssueMetadata      = "IssueMetadata"
)

// ArticleFiles is one logical article: a representative full-text URL plus
// at most one URL per role.
type ArticleFiles struct {
	FullTextURL string
	roles       map[string]string
}

// NewArticleFiles creates an empty record.
func NewArticleFiles() *ArticleFiles {
	return &ArticleFiles{roles: make(map[string]string)}
}

// RoleURL returns the URL for role, or "".
func (af *ArticleFiles) RoleURL(role string) string {
	return af.roles[role]
}

// SetRoleURL sets the URL for role, replacing any previous value.
func (af *ArticleFiles) SetRoleURL(role, url string) {
	af.roles[role] = url
}

// HasRole reports whether role is populated.
func (af *ArticleFiles) HasRole(role string) bool {
	return af.roles[role] != ""
}

// FirstRoleURL returns the URL of the first populated role in roles.
func (af *ArticleFiles) FirstRoleURL(roles ...string) (string, string) {
	for _, r := range roles {
		if u := af.roles[r]; u != "" {
			return r, u
		}
	}
	return "", ""
}

// Roles returns the populated roles in sorted order.
func (af *ArticleFiles) Roles() []string {
	out := make([]string, 0, len(af.roles))
	for r, u := range af.roles {
		if u != "" {
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out
}

// RoleMap returns a copy of the role to URL mapping.
func (af *ArticleFiles) RoleMap() map[string]string {
	out := make(map[string]string, len(af.roles))
	for r, u := range af.roles {
		if u != "" {
			out[r] = u
		}
	}
	return out
}

// IsEmpty reports whether no role is populated.
func (af *ArticleFiles) IsEmpty() bool {
	return len(af.Roles()) == 0
}

func (af *ArticleFiles) String() string {
	var b strings.Builder
	b.WriteString("[ArticleFiles full=")
	b.WriteString(af.FullTextURL)
	for _, r := range af.Roles() {
		b.WriteString(" ")
		b.WriteString(r)
		b.WriteString("=")
		b.WriteString(af.roles[r])
	}
	b.WriteString("]")
	return b.String()
}
