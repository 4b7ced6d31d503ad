// Package ops loads a library of named GraphQL operations from a YAML file so
// that frequently used queries can be invoked by name instead of pasted
// inline.
package ops

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Operation is a single named operation in the library.
type Operation struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Kind        string  `yaml:"kind,omitempty"`
	Document    string  `yaml:"document"`
	Cost        float64 `yaml:"cost,omitempty"`
}

// Library holds named operations keyed by name.
type Library struct {
	ops map[string]Operation
}

type libraryFile struct {
	Operations []Operation `yaml:"operations"`
}

// Load parses a library from YAML bytes.
func Load(source string, data []byte) (*Library, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("ops library %s is empty", source)
	}

	var file libraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse ops library %s: %w", source, err)
	}

	lib := &Library{ops: make(map[string]Operation, len(file.Operations))}
	for i, op := range file.Operations {
		name := strings.TrimSpace(op.Name)
		if name == "" {
			return nil, fmt.Errorf("ops library %s: operation %d missing name", source, i)
		}
		if strings.TrimSpace(op.Document) == "" {
			return nil, fmt.Errorf("ops library %s: operation %q missing document", source, name)
		}
		if op.Kind == "" {
			op.Kind = inferKind(op.Document)
		}
		if op.Kind != "query" && op.Kind != "mutation" {
			return nil, fmt.Errorf("ops library %s: operation %q has unsupported kind %q", source, name, op.Kind)
		}
		if _, exists := lib.ops[name]; exists {
			return nil, fmt.Errorf("ops library %s: duplicate operation %q", source, name)
		}
		op.Name = name
		lib.ops[name] = op
	}

	return lib, nil
}

// LoadFile reads and parses a library from a YAML file on disk.
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- Library path is user-provided
	if err != nil {
		return nil, fmt.Errorf("read ops library %s: %w", path, err)
	}
	return Load(path, data)
}

// Get returns the named operation.
func (l *Library) Get(name string) (Operation, bool) {
	if l == nil {
		return Operation{}, false
	}
	op, ok := l.ops[name]
	return op, ok
}

// List returns all operations sorted by name.
func (l *Library) List() []Operation {
	if l == nil {
		return nil
	}
	out := make([]Operation, 0, len(l.ops))
	for _, op := range l.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of operations in the library.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.ops)
}

// inferKind classifies a document by its leading keyword. Documents starting
// with a selection set shorthand count as queries.
func inferKind(document string) string {
	trimmed := strings.TrimSpace(document)
	if strings.HasPrefix(trimmed, "mutation") {
		rest := trimmed[len("mutation"):]
		if rest == "" || !isNameChar(rest[0]) {
			return "mutation"
		}
	}
	return "query"
}

func isNameChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
