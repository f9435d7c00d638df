package metadata

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTagRegex     = regexp.MustCompile(`<[^>]*>`)
	htmlCommentRegex = regexp.MustCompile(`<!--[\s\S]*?-->`)
	multiSpaceRegex  = regexp.MustCompile(`\s+`)
	brTagRegex       = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockEndRegex    = regexp.MustCompile(`(?i)</(?:p|div|li|h[1-6]|blockquote|tr|title|sec)>`)
)

// StripHTML removes markup from a metadata value and decodes entities.
// Block ends and line breaks become spaces, then whitespace is collapsed.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	s = htmlCommentRegex.ReplaceAllString(s, "")
	s = blockEndRegex.ReplaceAllString(s, " ")
	s = brTagRegex.ReplaceAllString(s, " ")
	s = htmlTagRegex.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return NormalizeWhitespace(s)
}

// NormalizeWhitespace collapses runs of whitespace to single spaces and trims.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(multiSpaceRegex.ReplaceAllString(s, " "))
}

// Name is a personal name split into parts.
type Name struct {
	Given  string
	Middle string
	Family string
	Prefix string
	Suffix string
}

var (
	nameSuffixes = []string{"Jr.", "Jr", "Sr.", "Sr", "III", "II", "IV", "PhD", "Ph.D.", "MD", "M.D.", "Esq.", "Esq"}

	// nobiliary particles
	namePrefixes = []string{"van", "von", "de", "del", "della", "di", "da", "le", "la", "du", "des", "den", "der", "ter", "ten"}

	invertedNameRegex = regexp.MustCompile(`^([^,]+),\s*(.+)$`)
)

// ParseName splits "First Middle Last" or "Last, First Middle" forms.
func ParseName(name string) (Name, bool) {
	name = NormalizeWhitespace(name)
	if name == "" {
		return Name{}, false
	}

	var n Name
	if m := invertedNameRegex.FindStringSubmatch(name); m != nil {
		n.Family = strings.TrimSpace(m[1])
		rest := strings.TrimSpace(m[2])
		rest, n.Suffix = cutNameSuffix(rest)
		parts := strings.Fields(rest)
		if len(parts) > 0 {
			n.Given = parts[0]
		}
		if len(parts) > 1 {
			n.Middle = strings.Join(parts[1:], " ")
		}
		return n, true
	}

	name, n.Suffix = cutNameSuffix(name)
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return Name{}, false
	case 1:
		n.Family = parts[0]
		return n, true
	}

	familyStart := len(parts) - 1
	if familyStart > 1 && isNamePrefix(parts[familyStart-1]) {
		n.Prefix = parts[familyStart-1]
		familyStart--
	}
	n.Family = strings.Join(parts[familyStart:], " ")
	n.Given = parts[0]
	if familyStart > 1 {
		n.Middle = strings.Join(parts[1:familyStart], " ")
	}
	return n, true
}

// Inverted renders "Family, Given Middle, Suffix".
func (n Name) Inverted() string {
	out := n.Family
	given := strings.TrimSpace(n.Given + " " + n.Middle)
	if given != "" {
		out += ", " + given
	}
	if n.Suffix != "" {
		out += ", " + n.Suffix
	}
	return out
}

// NormalizeName returns name in inverted form, or the cleaned input when it
// cannot be parsed.
func NormalizeName(name string) string {
	n, ok := ParseName(name)
	if !ok {
		return NormalizeWhitespace(name)
	}
	return n.Inverted()
}

func cutNameSuffix(name string) (string, string) {
	for _, suffix := range nameSuffixes {
		if strings.HasSuffix(name, ", "+suffix) {
			return strings.TrimSuffix(name, ", "+suffix), suffix
		}
		if strings.HasSuffix(name, " "+suffix) {
			return strings.TrimSuffix(name, " "+suffix), suffix
		}
	}
	return name, ""
}

func isNamePrefix(word string) bool {
	lower := strings.ToLower(word)
	for _, p := range namePrefixes {
		if lower == p {
			return true
		}
	}
	return false
}

// SplitNames splits a string holding several names on semicolons, pipes or
// " and " (the last only when no comma suggests inverted names).
func SplitNames(names string) []string {
	if names == "" {
		return nil
	}
	var parts []string
	switch {
	case strings.Contains(names, ";"):
		parts = strings.Split(names, ";")
	case strings.Contains(names, "|"):
		parts = strings.Split(names, "|")
	case strings.Contains(names, " and ") && !strings.Contains(names, ","):
		parts = strings.Split(names, " and ")
	default:
		parts = []string{names}
	}
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
