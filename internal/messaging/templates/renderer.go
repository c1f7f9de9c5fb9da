package templates

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"
)

// Set is a group of named message templates parsed once with strict
// missing-key semantics.
type Set struct {
	root *template.Template
}

// NewSet parses every template in defs. Parse failures are reported by name.
func NewSet(defs map[string]string) (*Set, error) {
	root := template.New("").Option("missingkey=error")
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if defs[name] == "" {
			return nil, fmt.Errorf("templates: %s: template text required", name)
		}
		if _, err := root.New(name).Parse(defs[name]); err != nil {
			return nil, fmt.Errorf("templates: parse %s: %w", name, err)
		}
	}
	return &Set{root: root}, nil
}

// Has reports whether name was defined.
func (s *Set) Has(name string) bool {
	return s.root.Lookup(name) != nil
}

// Render executes the named template with data.
func (s *Set) Render(name string, data any) (string, error) {
	t := s.root.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("templates: unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: execute %s: %w", name, err)
	}
	return buf.String(), nil
}
