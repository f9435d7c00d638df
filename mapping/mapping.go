// Package mapping provides cook maps: ordered tables mapping raw metadata keys
// scanned from a document onto canonical record fields.
package mapping

// Value policies.
const (
	// PolicyReplace lets a later value overwrite an earlier one.
	PolicyReplace = "replace"
	// PolicyFirst keeps the first non-empty value seen.
	PolicyFirst = "first"
	// PolicyAppend accumulates values in document order.
	PolicyAppend = "append"
)

// CookMap is a complete raw-key to field mapping for one document flavour.
type CookMap struct {
	// Name is the cook map identifier
	Name string `yaml:"name" json:"name"`

	// Description provides human-readable documentation
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Rules are applied in order
	Rules []Rule `yaml:"rules" json:"rules"`

	// Fallbacks fill fields still empty after every rule has run
	Fallbacks []Fallback `yaml:"fallbacks,omitempty" json:"fallbacks,omitempty"`
}

// Rule maps one raw key onto a canonical field.
type Rule struct {
	// Raw is the raw key as scanned (meta name, selector key or XPath key)
	Raw string `yaml:"raw" json:"raw"`

	// Field is the canonical field name (e.g., "article.title", "author")
	Field string `yaml:"field" json:"field"`

	// Transform is a comma-separated list of value transforms applied in
	// order (e.g., "split,trim")
	Transform string `yaml:"transform,omitempty" json:"transform,omitempty"`

	// Policy is one of replace, first or append. Empty picks append for
	// multi-valued fields and replace otherwise.
	Policy string `yaml:"policy,omitempty" json:"policy,omitempty"`

	// Delimiter for the split transform, ";" when empty
	Delimiter string `yaml:"delimiter,omitempty" json:"delimiter,omitempty"`
}

// Fallback copies the first populated From field into Field when Field is
// empty.
type Fallback struct {
	Field string   `yaml:"field" json:"field"`
	From  []string `yaml:"from" json:"from"`
}

// SplitDelimiter returns the delimiter with a default.
func (r Rule) SplitDelimiter() string {
	if r.Delimiter != "" {
		return r.Delimiter
	}
	return ";"
}

// RawKeys returns the distinct raw keys in rule order.
func (m *CookMap) RawKeys() []string {
	seen := make(map[string]bool, len(m.Rules))
	var keys []string
	for _, r := range m.Rules {
		if !seen[r.Raw] {
			seen[r.Raw] = true
			keys = append(keys, r.Raw)
		}
	}
	return keys
}

// RulesFor returns the rules reading raw key.
func (m *CookMap) RulesFor(raw string) []Rule {
	var out []Rule
	for _, r := range m.Rules {
		if r.Raw == raw {
			out = append(out, r)
		}
	}
	return out
}

// FieldsFor returns every raw key that targets field.
func (m *CookMap) FieldsFor(field string) []string {
	var out []string
	for _, r := range m.Rules {
		if r.Field == field {
			out = append(out, r.Raw)
		}
	}
	return out
}
