package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Spec names a normalizer and its arguments in a plugin definition.
type Spec struct {
	Name string   `yaml:"name" json:"name"`
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// Factory builds a normalizer from definition arguments.
type Factory func(args []string) (Normalizer, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{
		"remove_query_args": func(args []string) (Normalizer, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("remove_query_args needs at least one argument name")
			}
			return RemoveQueryArgs(args...), nil
		},
		"sort_query_args":   noArgs(SortQueryArgs),
		"force_https":       noArgs(ForceHTTPS),
		"match_base_scheme": noArgs(MatchBaseScheme),
		"add_www":           noArgs(AddWWW),
		"purell":            noArgs(func() Normalizer { return Purell(DefaultPurellFlags) }),
		"strip_substring": func(args []string) (Normalizer, error) {
			if len(args) != 1 || args[0] == "" {
				return nil, fmt.Errorf("strip_substring takes one non-empty argument")
			}
			return StripSubstring(args[0]), nil
		},
		"strip_pattern": func(args []string) (Normalizer, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("strip_pattern takes one argument")
			}
			re, err := regexp.Compile(args[0])
			if err != nil {
				return nil, fmt.Errorf("strip_pattern: %w", err)
			}
			return StripPattern(re), nil
		},
	}
)

func noArgs(fn func() Normalizer) Factory {
	return func(args []string) (Normalizer, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("takes no arguments, got %v", args)
		}
		return fn(), nil
	}
}

// Register adds a named factory so plugin definitions can reference it.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("normalize: %q registered twice", name))
	}
	factories[name] = f
}

// Names lists the registered normalizer names.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build resolves specs into a Chain.
func Build(specs []Spec) (Chain, error) {
	mu.RLock()
	defer mu.RUnlock()
	chain := make(Chain, 0, len(specs))
	for _, s := range specs {
		f, ok := factories[s.Name]
		if !ok {
			return nil, fmt.Errorf("unknown normalizer %q", s.Name)
		}
		n, err := f(s.Args)
		if err != nil {
			return nil, fmt.Errorf("normalizer %s: %w", s.Name, err)
		}
		chain = append(chain, n)
	}
	return chain, nil
}
