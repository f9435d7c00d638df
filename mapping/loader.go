package mapping

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed cookmaps/*.yaml
var embeddedCookMaps embed.FS

// Registry holds loaded cook maps by name.
type Registry struct {
	mu   sync.RWMutex
	maps map[string]*CookMap
}

// NewRegistry creates a registry with the embedded cook maps loaded.
func NewRegistry() (*Registry, error) {
	r := &Registry{maps: make(map[string]*CookMap)}

	entries, err := embeddedCookMaps.ReadDir("cookmaps")
	if err != nil {
		return nil, fmt.Errorf("reading embedded cook maps: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := embeddedCookMaps.ReadFile("cookmaps/" + entry.Name())
		if err != nil {
			return nil, err
		}
		cm, err := ParseCookMap(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if cm.Name == "" {
			cm.Name = strings.TrimSuffix(entry.Name(), ".yaml")
		}
		r.maps[cm.Name] = cm
	}
	return r, nil
}

var defaultRegistry = sync.OnceValues(NewRegistry)

// Default returns the process-wide registry of embedded cook maps.
func Default() (*Registry, error) {
	return defaultRegistry()
}

// Lookup finds a cook map in the default registry.
func Lookup(name string) (*CookMap, error) {
	reg, err := Default()
	if err != nil {
		return nil, err
	}
	cm, ok := reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown cook map %q", name)
	}
	return cm, nil
}

// LoadCookMap loads a cook map from a file path.
func LoadCookMap(path string) (*CookMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cook map file: %w", err)
	}
	cm, err := ParseCookMap(data)
	if err != nil {
		return nil, err
	}
	if cm.Name == "" {
		cm.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return cm, nil
}

// ParseCookMap parses cook map YAML.
func ParseCookMap(data []byte) (*CookMap, error) {
	var cm CookMap
	if err := yaml.Unmarshal(data, &cm); err != nil {
		return nil, fmt.Errorf("parsing cook map YAML: %w", err)
	}
	for i, r := range cm.Rules {
		if r.Raw == "" || r.Field == "" {
			return nil, fmt.Errorf("rule %d: raw and field are required", i)
		}
		switch r.Policy {
		case "", PolicyReplace, PolicyFirst, PolicyAppend:
		default:
			return nil, fmt.Errorf("rule %d (%s): unknown policy %q", i, r.Raw, r.Policy)
		}
	}
	return &cm, nil
}

// Get retrieves a cook map by name.
func (r *Registry) Get(name string) (*CookMap, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cm, ok := r.maps[name]
	return cm, ok
}

// Register adds a cook map, replacing any with the same name.
func (r *Registry) Register(cm *CookMap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maps[cm.Name] = cm
}

// List returns all registered cook map names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.maps))
	for name := range r.maps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFromDirectory loads every *.yaml cook map in dir.
func (r *Registry) LoadFromDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading cook map directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		cm, err := LoadCookMap(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
		r.Register(cm)
	}
	return nil
}

// Merge overlays custom on base. Rules of custom replace every base rule
// reading the same raw key and follow the remaining base rules; fallbacks for
// the same field are replaced likewise.
func Merge(base, custom *CookMap) *CookMap {
	merged := &CookMap{
		Name:        custom.Name,
		Description: custom.Description,
	}
	if merged.Name == "" {
		merged.Name = base.Name
	}
	if merged.Description == "" {
		merged.Description = base.Description
	}

	overridden := make(map[string]bool, len(custom.Rules))
	for _, r := range custom.Rules {
		overridden[r.Raw] = true
	}
	for _, r := range base.Rules {
		if !overridden[r.Raw] {
			merged.Rules = append(merged.Rules, r)
		}
	}
	merged.Rules = append(merged.Rules, custom.Rules...)

	replaced := make(map[string]bool, len(custom.Fallbacks))
	for _, f := range custom.Fallbacks {
		replaced[f.Field] = true
	}
	for _, f := range base.Fallbacks {
		if !replaced[f.Field] {
			merged.Fallbacks = append(merged.Fallbacks, f)
		}
	}
	merged.Fallbacks = append(merged.Fallbacks, custom.Fallbacks...)

	return merged
}
