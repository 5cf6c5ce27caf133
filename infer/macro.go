package infer

import (
	"github.com/tmplschema/tmplschema/ast"
	"github.com/tmplschema/tmplschema/shape"
)

// Macro is the small IR recorded for a {% macro %} definition: the parameter
// structures accumulated from the body, and the body's free variables.
type Macro struct {
	Name   string
	Params []MacroParam
	Frag   *shape.Dict // external free variables of the macro body
}

// MacroParam is a single parameter slot.
type MacroParam struct {
	Name       string
	Shape      shape.Shape
	HasDefault bool
}

func (m *Macro) param(name string) *MacroParam {
	for i := range m.Params {
		if m.Params[i].Name == name {
			return &m.Params[i]
		}
	}
	return nil
}

// visitMacroDef infers a macro body with its parameters locally bound,
// records the macro and returns the body's free variables.  The body must
// render with the surrounding context, so its free variables contribute at
// the definition site.
func (e *engine) visitMacroDef(n *ast.MacroNode, sc *scope, name string) (*shape.Dict, error) {
	var frag = shape.NewDict(nil)
	sc.push()
	for _, p := range n.Params {
		var start shape.Shape = shape.NewUnknown(p.Name, e.lineOf(p))
		if p.Default != nil {
			drt, dfrag, err := e.visitExpr(p.Default, exprContext(shape.NewUnknown("", e.lineOf(p.Default))))
			if err != nil {
				return nil, err
			}
			dfrag, err = e.resolve(dfrag, sc)
			if err != nil {
				return nil, err
			}
			if frag, err = e.mergeFrags(frag, dfrag); err != nil {
				return nil, err
			}
			drt.Meta().Label = p.Name
			start = drt
		}
		sc.bind(p.Name, start)
	}

	bodyFrag, err := e.visitStmts(n.Body.Nodes, sc)
	if err != nil {
		return nil, err
	}
	var frame = sc.pop()

	var macro = &Macro{Name: name, Frag: bodyFrag.Clone().(*shape.Dict)}
	for _, p := range n.Params {
		macro.Params = append(macro.Params, MacroParam{
			Name:       p.Name,
			Shape:      frame[p.Name],
			HasDefault: p.Default != nil,
		})
	}
	e.macros[name] = macro

	return e.mergeFrags(frag, bodyFrag)
}

// visitMacroCall typechecks a call against a recorded macro: each argument is
// visited with the structure the parameter slot accumulated, and the body's
// free variables merge in at the call site.
func (e *engine) visitMacroCall(n *ast.CallNode, m *Macro, ctx context) (shape.Shape, *shape.Dict, error) {
	var line = e.lineOf(n)
	if err := e.meet(ctx, shape.NewScalar(""), n); err != nil {
		return nil, nil, err
	}

	var frag = shape.NewDict(nil)
	for i, arg := range n.Args {
		var expected shape.Shape
		if i < len(m.Params) {
			expected = cleanParam(m.Params[i].Shape, e.lineOf(arg))
		} else {
			expected = shape.NewUnknown("", e.lineOf(arg))
		}
		_, afrag, err := e.visitExpr(arg, exprContext(expected))
		if err != nil {
			return nil, nil, err
		}
		if frag, err = e.mergeFrags(frag, afrag); err != nil {
			return nil, nil, err
		}
	}
	for _, kwarg := range n.Kwargs {
		var expected shape.Shape = shape.NewUnknown("", e.lineOf(kwarg))
		if p := m.param(kwarg.Key); p != nil {
			expected = cleanParam(p.Shape, e.lineOf(kwarg))
		}
		_, kfrag, err := e.visitExpr(kwarg.Value, exprContext(expected))
		if err != nil {
			return nil, nil, err
		}
		if frag, err = e.mergeFrags(frag, kfrag); err != nil {
			return nil, nil, err
		}
	}

	frag, err := e.mergeFrags(frag, m.Frag.Clone().(*shape.Dict))
	if err != nil {
		return nil, nil, err
	}
	return shape.NewPrim(shape.PrimString, "", line), frag, nil
}

// cleanParam clones a parameter structure as an expectation for a call-site
// argument, shedding the flags that belong to the definition site.
func cleanParam(s shape.Shape, line int) shape.Shape {
	if s == nil {
		return shape.NewUnknown("", line)
	}
	var c = s.Clone()
	*c.Meta() = shape.MetaInfo{}
	c.Meta().AddLine(line)
	return c
}
