package plugin

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed definitions/*.yaml
var embeddedDefinitions embed.FS

// EmbeddedDefinitions parses the definitions compiled into the binary.
func EmbeddedDefinitions() ([]*Definition, error) {
	entries, err := embeddedDefinitions.ReadDir("definitions")
	if err != nil {
		return nil, fmt.Errorf("reading embedded definitions: %w", err)
	}
	var defs []*Definition
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := embeddedDefinitions.ReadFile("definitions/" + entry.Name())
		if err != nil {
			return nil, err
		}
		d, err := ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// LoadFromDirectory builds and registers every *.yaml definition in dir.
func (r *Registry) LoadFromDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading definitions directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		d, err := LoadDefinition(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
		p, err := Build(d)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
		r.Register(p)
	}
	return nil
}

func init() {
	defs, err := EmbeddedDefinitions()
	if err != nil {
		panic(err)
	}
	for _, d := range defs {
		p, err := Build(d)
		if err != nil {
			panic(err)
		}
		Register(p)
	}
}
