package diagnostic

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/uiresolve/pkg/core"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

// TemplateFile is the on-disk shape of a template table.
type TemplateFile struct {
	Internal map[string]string `yaml:"internal"`
	Public   map[string]string `yaml:"public"`
}

// Templates holds parsed message templates keyed by kind.
type Templates struct {
	byKind map[core.Kind]*template.Template
	source map[core.Kind]string
}

var funcs = template.FuncMap{
	"trace": func(frames []core.Frame) string {
		lines := make([]string, len(frames))
		for i, f := range frames {
			lines[i] = "    at " + f.String()
		}
		return strings.Join(lines, "\n")
	},
}

// ParseTemplates parses a YAML template table. Every key must name a kind of
// the section's family.
func ParseTemplates(data []byte) (*Templates, error) {
	var file TemplateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	t := &Templates{
		byKind: make(map[core.Kind]*template.Template),
		source: make(map[core.Kind]string),
	}
	if err := t.add(file.Internal, core.FamilyInternal); err != nil {
		return nil, err
	}
	if err := t.add(file.Public, core.FamilyPublic); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Templates) add(section map[string]string, family core.Family) error {
	for code, text := range section {
		kind, ok := core.ParseKind(code)
		if !ok {
			return fmt.Errorf("%s templates: unknown kind %q", family, code)
		}
		if kind.Family() != family {
			return fmt.Errorf("%s templates: kind %q belongs to %s", family, code, kind.Family())
		}
		tmpl, err := template.New(code).Funcs(funcs).Option("missingkey=zero").Parse(text)
		if err != nil {
			return fmt.Errorf("%s templates: %s: %w", family, code, err)
		}
		t.byKind[kind] = tmpl
		t.source[kind] = text
	}
	return nil
}

// LoadTemplates reads a template table from path, or the built-in table when
// path is empty.
func LoadTemplates(path string) (*Templates, error) {
	if path == "" {
		return ParseTemplates(defaultTemplatesYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	return ParseTemplates(data)
}

// MustLoadTemplates is LoadTemplates for program startup; it panics on failure.
func MustLoadTemplates(path string) *Templates {
	t, err := LoadTemplates(path)
	if err != nil {
		panic(err)
	}
	return t
}

var (
	defaultOnce      sync.Once
	defaultTemplates *Templates
)

// DefaultTemplates returns the built-in table, parsed once.
func DefaultTemplates() *Templates {
	defaultOnce.Do(func() {
		defaultTemplates = MustLoadTemplates("")
	})
	return defaultTemplates
}

// Source returns the raw template text for kind.
func (t *Templates) Source(kind core.Kind) (string, bool) {
	s, ok := t.source[kind]
	return s, ok
}

// Kinds returns the kinds that have a template, in kind order.
func (t *Templates) Kinds() []core.Kind {
	kinds := make([]core.Kind, 0, len(t.byKind))
	for k := range t.byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (t *Templates) lookup(kind core.Kind) *template.Template {
	if t == nil {
		return nil
	}
	return t.byKind[kind]
}
