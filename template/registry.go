// Package template provides a registry of named template sources, used to
// resolve {% include %}, {% import %} and {% extends %} during inference.
package template

import (
	"fmt"

	"github.com/tmplschema/tmplschema/ast"
	"github.com/tmplschema/tmplschema/parse"
)

// Template is a named template together with its parse tree.
type Template struct {
	Name string
	Text string
	Node *ast.TemplateNode
}

// Registry is a collection of parsed templates keyed by name.
type Registry struct {
	Templates []Template
	byName    map[string]int
}

// Add parses the given source and registers it under the given name.
func (r *Registry) Add(name, text string) error {
	if r.byName == nil {
		r.byName = make(map[string]int)
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("template %q is already registered", name)
	}
	node, err := parse.Template(name, text)
	if err != nil {
		return err
	}
	r.byName[name] = len(r.Templates)
	r.Templates = append(r.Templates, Template{Name: name, Text: text, Node: node})
	return nil
}

// Template returns the named template, or nil.
func (r *Registry) Template(name string) *Template {
	if i, ok := r.byName[name]; ok {
		return &r.Templates[i]
	}
	return nil
}

// Source resolves a template name to its source text.  Its signature matches
// the loader the inference engine expects.
func (r *Registry) Source(name string) (string, bool) {
	var t = r.Template(name)
	if t == nil {
		return "", false
	}
	return t.Text, true
}
