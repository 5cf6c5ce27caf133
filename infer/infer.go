package infer

import (
	"github.com/tmplschema/tmplschema/ast"
	"github.com/tmplschema/tmplschema/parse"
	"github.com/tmplschema/tmplschema/shape"
)

// engine carries one inference run.  It is pure over its inputs: the AST, the
// configuration and the loader.
type engine struct {
	cfg    *Config
	tmpl   *ast.TemplateNode
	macros map[string]*Macro
	depth  int
}

// FromTemplate infers the context structure a parsed template expects.  The
// result is a dictionary of free variables; a merge conflict aborts the run.
func FromTemplate(tmpl *ast.TemplateNode, cfg *Config) (*shape.Dict, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	var e = &engine{cfg: cfg, tmpl: tmpl, macros: make(map[string]*Macro)}
	var sc = newScope()
	frag, err := e.visitStmts(tmpl.Body, sc)
	if err != nil {
		return nil, err
	}

	// Conditionally assigned names may still need to come from the context.
	for name, sh := range sc.frames[0] {
		if !sh.Meta().MayBeDefined {
			continue
		}
		var entry = shape.NewDict(nil)
		entry.Set(name, sh)
		if frag, err = e.mergeFrags(frag, entry); err != nil {
			return nil, err
		}
	}

	return postProcess(frag), nil
}

// postProcess removes variables whose value is statically determined from
// literals: they never need to be supplied externally.
func postProcess(d *shape.Dict) *shape.Dict {
	for name, sh := range d.Fields {
		var m = sh.Meta()
		if m.Constant && !m.MayBeDefined {
			delete(d.Fields, name)
			continue
		}
		if child, ok := sh.(*shape.Dict); ok {
			postProcess(child)
		}
	}
	return d
}

// lineOf reports the source line a node's evidence belongs to.
func (e *engine) lineOf(node ast.Node) int {
	if node == nil || e.tmpl == nil {
		return 0
	}
	return e.tmpl.LineOf(node.Position())
}

// sub derives an engine for a template rendered in the current run (include,
// extends); macros remain shared.
func (e *engine) sub(tmpl *ast.TemplateNode) *engine {
	return &engine{cfg: e.cfg, tmpl: tmpl, macros: e.macros, depth: e.depth + 1}
}

// subIsolated derives an engine with its own macro registry, for imports.
func (e *engine) subIsolated(tmpl *ast.TemplateNode) *engine {
	return &engine{cfg: e.cfg, tmpl: tmpl, macros: make(map[string]*Macro), depth: e.depth + 1}
}

// loadTemplate fetches and parses another template through the configured
// loader.  A missing template contributes no constraint; a recursion past
// MaxDepth is an error.
func (e *engine) loadTemplate(name string, at ast.Node) (*ast.TemplateNode, error) {
	if e.cfg.Loader == nil {
		return nil, nil
	}
	if e.depth >= e.cfg.MaxDepth {
		return nil, &InvalidExpressionError{at, e.lineOf(at), "template nesting too deep"}
	}
	src, ok := e.cfg.Loader(name)
	if !ok {
		return nil, nil
	}
	return parse.Template(name, src)
}

// Merge helpers ----------

func (e *engine) merge(a, b shape.Shape) (shape.Shape, error) {
	return shape.MergeWith(a, b, e.cfg.mergeOpts())
}

func (e *engine) mergeWeakShapes(a, b shape.Shape) (shape.Shape, error) {
	var o = e.cfg.mergeOpts()
	o.Weak = true
	return shape.MergeWith(a, b, o)
}

func (e *engine) mergeFrags(a, b *shape.Dict) (*shape.Dict, error) {
	return shape.MergeDicts(a, b, e.cfg.mergeOpts())
}

func (e *engine) mergeFragsWeak(a, b *shape.Dict) (*shape.Dict, error) {
	var o = e.cfg.mergeOpts()
	o.Weak = true
	return shape.MergeDicts(a, b, o)
}

// mergeRtypes merges the result types of two operands.  Addition and
// subtraction require both sides to already agree on a kind.
func (e *engine) mergeRtypes(a, b shape.Shape, op string) (shape.Shape, error) {
	if op == "+" || op == "-" {
		_, aUnknown := a.(*shape.Unknown)
		_, bUnknown := b.(*shape.Unknown)
		if a.Kind() != b.Kind() && !aUnknown && !bUnknown {
			return nil, &shape.MergeError{Fst: a, Snd: b}
		}
	}
	return e.merge(a, b)
}
