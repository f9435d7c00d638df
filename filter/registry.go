package filter

import (
	"fmt"
	"regexp"
	"sort"
)

// Spec names a filter and its arguments in a plugin definition.
type Spec struct {
	Name string   `yaml:"name" json:"name"`
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`
	// Strict lets a failure abort the hash. By default a failing filter
	// passes content through unchanged.
	Strict bool `yaml:"strict,omitempty" json:"strict,omitempty"`
}

// Factory builds a filter from definition arguments.
type Factory func(args []string) (Filter, error)

var factories = map[string]Factory{
	"html_remove": func(args []string) (Filter, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("needs at least one selector")
		}
		return NewHTMLNodeFilter(nil, args, true)
	},
	"html_include": func(args []string) (Filter, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("needs at least one selector")
		}
		return NewHTMLNodeFilter(args, nil, true)
	},
	"strip_tags": func(args []string) (Filter, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("takes no arguments")
		}
		return NewTagStripFilter(), nil
	},
	"whitespace": func(args []string) (Filter, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("takes no arguments")
		}
		return WhitespaceFilter{}, nil
	},
	"replace": func(args []string) (Filter, error) {
		if len(args) != 2 || args[0] == "" {
			return nil, fmt.Errorf("takes a non-empty old string and a new string")
		}
		return ReplaceFilter{Old: args[0], New: args[1]}, nil
	},
	"regex_replace": func(args []string) (Filter, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("takes a pattern and an optional replacement")
		}
		re, err := regexp.Compile(args[0])
		if err != nil {
			return nil, err
		}
		f := ReplaceFilter{Pattern: re}
		if len(args) == 2 {
			f.New = args[1]
		}
		return f, nil
	},
	"xml_remove": func(args []string) (Filter, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("needs at least one path")
		}
		return NewXMLElementFilter(args...)
	},
	"pdf_tokens": func(args []string) (Filter, error) {
		f := PDFTokenFilter{}
		for _, a := range args {
			re, err := regexp.Compile(a)
			if err != nil {
				return nil, err
			}
			f.Extra = append(f.Extra, re)
		}
		return f, nil
	},
}

// Names lists the filters a definition may reference.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build resolves specs into a Chain. Each filter is wrapped with Safe unless
// its spec is Strict.
func Build(specs []Spec) (Chain, error) {
	chain := make(Chain, 0, len(specs))
	for _, s := range specs {
		factory, ok := factories[s.Name]
		if !ok {
			return nil, fmt.Errorf("unknown filter %q", s.Name)
		}
		f, err := factory(s.Args)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", s.Name, err)
		}
		if !s.Strict {
			f = Safe(f)
		}
		chain = append(chain, f)
	}
	return chain, nil
}
