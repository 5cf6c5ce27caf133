package infer

import (
	"github.com/tmplschema/tmplschema/ast"
	"github.com/tmplschema/tmplschema/shape"
)

// visitStmts walks a statement list, threading the scope through it and
// accumulating the fragment of free external variables.
func (e *engine) visitStmts(nodes []ast.Node, sc *scope) (*shape.Dict, error) {
	var frag = shape.NewDict(nil)
	for _, node := range nodes {
		f, err := e.visitStmt(node, sc)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		if frag, err = e.mergeFrags(frag, f); err != nil {
			return nil, err
		}
	}
	return frag, nil
}

func (e *engine) visitStmt(node ast.Node, sc *scope) (*shape.Dict, error) {
	switch n := node.(type) {
	case *ast.TextNode:
		return nil, nil
	case *ast.ListNode:
		return e.visitStmts(n.Nodes, sc)
	case *ast.OutputNode:
		_, frag, err := e.visitExpr(n.Expr, context{
			expected: shape.NewScalar("", e.lineOf(n.Expr)),
			ret:      shape.NewScalar(""),
		})
		if err != nil {
			return nil, err
		}
		return e.resolve(frag, sc)
	case *ast.IfNode:
		return e.visitIf(n, sc)
	case *ast.ForNode:
		return e.visitFor(n, sc)
	case *ast.SetNode:
		return e.visitSet(n, sc)
	case *ast.SetBlockNode:
		frag, err := e.visitStmts(n.Body.Nodes, sc)
		if err != nil {
			return nil, err
		}
		var bound = shape.NewPrim(shape.PrimString, n.Name, e.lineOf(n))
		bound.Constant = true
		sc.rebind(n.Name, bound)
		return frag, nil
	case *ast.WithNode:
		return e.visitWith(n, sc)
	case *ast.MacroNode:
		return e.visitMacroDef(n, sc, n.Name)
	case *ast.IncludeNode:
		return e.visitInclude(n, sc)
	case *ast.ImportNode:
		return e.visitImport(n, sc)
	case *ast.FromImportNode:
		return e.visitFromImport(n, sc)
	case *ast.FilterBlockNode:
		return e.visitFilterBlock(n, sc)
	case *ast.BlockNode:
		return e.visitStmts(n.Body.Nodes, sc)
	case *ast.ExtendsNode:
		return e.visitExtends(n, sc)
	}
	var line = e.lineOf(node)
	return nil, &UnexpectedExpressionError{
		Expected: shape.NewUnknown("", line),
		Actual:   shape.NewUnknown("", line),
		Node:     node,
		Line:     line,
	}
}

// resolve reconciles a fragment with the scope: names with a local binding
// merge their evidence into the binding and leave the fragment, so only true
// free variables remain.
func (e *engine) resolve(frag *shape.Dict, sc *scope) (*shape.Dict, error) {
	for _, name := range frag.Keys() {
		binding, ok := sc.lookup(name)
		if !ok {
			continue
		}
		merged, err := e.merge(binding, frag.Field(name))
		if err != nil {
			return nil, err
		}
		sc.rebind(name, merged)
		delete(frag.Fields, name)
	}
	return frag, nil
}

// visitIf walks each branch against a copy of the scope and joins the
// results.  When the first condition is a definedness test, all branch
// fragments (elif and else included) join strictly and their reads stay
// required; otherwise branch-only reads become optional.  Names bound in a branch
// that does not cover all paths become optional bindings.
func (e *engine) visitIf(n *ast.IfNode, sc *scope) (*shape.Dict, error) {
	var frag = shape.NewDict(nil)
	var branchFrags []*shape.Dict
	var branchScopes []*scope
	var hasElse bool
	var weak = true

	for i, cond := range n.Conds {
		if cond.Cond == nil {
			hasElse = true
		} else {
			_, cfrag, err := e.visitExpr(cond.Cond, exprContext(e.condExpected(e.lineOf(cond.Cond))))
			if err != nil {
				return nil, err
			}
			if cfrag, err = e.resolve(cfrag, sc); err != nil {
				return nil, err
			}
			if frag, err = e.mergeFrags(frag, cfrag); err != nil {
				return nil, err
			}
			if i == 0 && isDefinednessTest(cond.Cond) {
				weak = false
			}
		}
		var sc2 = sc.clone()
		bfrag, err := e.visitStmts(cond.Body.Nodes, sc2)
		if err != nil {
			return nil, err
		}
		branchFrags = append(branchFrags, bfrag)
		branchScopes = append(branchScopes, sc2)
	}

	joined, err := e.joinFrags(branchFrags, weak, hasElse)
	if err != nil {
		return nil, err
	}
	if frag, err = e.mergeFrags(frag, joined); err != nil {
		return nil, err
	}

	e.markDefinedness(n, branchFrags, frag)

	if err := e.joinScopes(sc, branchScopes, hasElse); err != nil {
		return nil, err
	}
	return frag, nil
}

// joinFrags merges the per-branch read fragments.  Under a weak join, a
// variable read in only some branches (or under an else-less if) becomes
// optional.
func (e *engine) joinFrags(frags []*shape.Dict, weak, hasElse bool) (*shape.Dict, error) {
	var folded = shape.NewDict(nil)
	var err error
	for i, f := range frags {
		if i == 0 {
			folded = f
			continue
		}
		if weak {
			folded, err = shape.MergeDicts(folded, f, shape.Opts{Weak: true, ExtendScalar: e.cfg.PackageObjectCanBeExtended})
		} else {
			folded, err = e.mergeFrags(folded, f)
		}
		if err != nil {
			return nil, err
		}
	}
	if weak && !hasElse {
		// the implicit empty else branch proves every read optional
		folded, err = shape.MergeDicts(folded, shape.NewDict(nil), shape.Opts{Weak: true, ExtendScalar: e.cfg.PackageObjectCanBeExtended})
		if err != nil {
			return nil, err
		}
	}
	return folded, nil
}

// markDefinedness handles the definedness special case: in
// {% if x is undefined %}...{% endif %}, an x occurring in the guarded branch
// may be given a value there, so it is not required of the context.  For an
// `is defined` guard the alternative is everything past the guarded branch:
// every elif body and the else, which only run when x is missing.
func (e *engine) markDefinedness(n *ast.IfNode, branchFrags []*shape.Dict, frag *shape.Dict) {
	test, ok := n.Conds[0].Cond.(*ast.TestNode)
	if !ok {
		return
	}
	vn, ok := test.Expr.(*ast.VarNode)
	if !ok {
		return
	}
	var lookup []*shape.Dict
	switch test.Name {
	case "undefined":
		lookup = branchFrags[:1]
	case "defined":
		lookup = branchFrags[1:]
	}
	for _, bfrag := range lookup {
		if bfrag.Field(vn.Name) == nil {
			continue
		}
		if entry := frag.Field(vn.Name); entry != nil {
			entry.Meta().MayBeDefined = true
		}
		return
	}
}

// joinScopes folds branch bindings back into the pre-branch scope.  A name
// newly bound in a branch becomes an optional binding unless every path
// including an else bound it.
func (e *engine) joinScopes(sc *scope, branches []*scope, hasElse bool) error {
	for level := range sc.frames {
		var fresh = make(map[string][]shape.Shape)
		for _, b := range branches {
			if level >= len(b.frames) {
				continue
			}
			for name, sh := range b.frames[level] {
				if existing, ok := sc.frames[level][name]; ok {
					merged, err := e.merge(existing, sh)
					if err != nil {
						return err
					}
					sc.frames[level][name] = merged
				} else {
					fresh[name] = append(fresh[name], sh)
				}
			}
		}
		for name, shs := range fresh {
			var merged = shs[0]
			var err error
			for _, sh := range shs[1:] {
				if merged, err = e.merge(merged, sh); err != nil {
					return err
				}
			}
			if !(hasElse && len(shs) == len(branches)) {
				merged.Meta().MayBeDefined = true
			}
			sc.frames[level][name] = merged
		}
	}
	return nil
}

func isDefinednessTest(cond ast.Node) bool {
	test, ok := cond.(*ast.TestNode)
	if !ok {
		return false
	}
	if _, ok := test.Expr.(*ast.VarNode); !ok {
		return false
	}
	return test.Name == "defined" || test.Name == "undefined"
}

// visitFor binds the loop targets and the loop pseudo-variable in a pushed
// frame, infers the body, and feeds the accumulated target structure back
// into the iterable as a list-element expectation.
func (e *engine) visitFor(n *ast.ForNode, sc *scope) (*shape.Dict, error) {
	var line = e.lineOf(n)
	sc.push()
	for _, v := range n.Vars {
		sc.bind(v, shape.NewUnknown(v, line))
	}
	sc.bind("loop", loopShape(line))

	bodyFrag, err := e.visitStmts(n.Body.Nodes, sc)
	if err != nil {
		sc.pop()
		return nil, err
	}
	var frame = sc.pop()

	var target shape.Shape
	if len(n.Vars) == 1 {
		target = frame[n.Vars[0]]
	} else {
		var items = make([]shape.Shape, len(n.Vars))
		for i, v := range n.Vars {
			items[i] = frame[v]
		}
		target = shape.NewTuple(items, line)
	}

	iterRt, iterFrag, err := e.visitExpr(n.Iter, context{
		expected: shape.NewList(target, line),
		ret:      shape.NewUnknown(""),
	})
	if err != nil {
		return nil, err
	}
	if iterFrag, err = e.resolve(iterFrag, sc); err != nil {
		return nil, err
	}
	if _, err = e.merge(iterRt, shape.NewList(target.Clone(), line)); err != nil {
		return nil, err
	}

	frag, err := e.mergeFrags(iterFrag, bodyFrag)
	if err != nil {
		return nil, err
	}
	if n.IfEmpty != nil {
		elseFrag, err := e.visitStmts(n.IfEmpty.Nodes, sc)
		if err != nil {
			return nil, err
		}
		if frag, err = e.mergeFrags(frag, elseFrag); err != nil {
			return nil, err
		}
	}
	return frag, nil
}

// loopShape predefines the loop pseudo-variable for a single iteration
// frame.  previtem and nextitem stay unknown; their element structure is not
// folded into the loop target.
func loopShape(line int) shape.Shape {
	var num = func() shape.Shape { return shape.NewPrim(shape.PrimNumber, "", line) }
	var boolean = func() shape.Shape { return shape.NewPrim(shape.PrimBool, "", line) }
	return shape.NewDict(map[string]shape.Shape{
		"index":     num(),
		"index0":    num(),
		"revindex":  num(),
		"revindex0": num(),
		"first":     boolean(),
		"last":      boolean(),
		"length":    num(),
		"depth":     num(),
		"depth0":    num(),
		"cycle":     shape.NewScalar("", line),
		"previtem":  shape.NewUnknown("", line),
		"nextitem":  shape.NewUnknown("", line),
	}, line)
}

// visitSet binds assignment targets.  Bound values are constant; reads that
// happened before the assignment keep the name in the free fragment.
func (e *engine) visitSet(n *ast.SetNode, sc *scope) (*shape.Dict, error) {
	var line = e.lineOf(n)
	if len(n.Names) == 1 {
		rt, frag, err := e.visitExpr(n.Expr, exprContext(shape.NewUnknown("", line)))
		if err != nil {
			return nil, err
		}
		if frag, err = e.resolve(frag, sc); err != nil {
			return nil, err
		}
		rt.Meta().Constant = true
		rt.Meta().Label = n.Names[0]
		sc.rebind(n.Names[0], rt)
		return frag, nil
	}

	if tup, ok := n.Expr.(*ast.TupleLiteralNode); ok {
		if len(tup.Items) != len(n.Names) {
			return nil, &InvalidExpressionError{n, line,
				"number of items in left side is different from right side"}
		}
		var frag = shape.NewDict(nil)
		for i, name := range n.Names {
			rt, ifrag, err := e.visitExpr(tup.Items[i], exprContext(shape.NewUnknown("", e.lineOf(tup.Items[i]))))
			if err != nil {
				return nil, err
			}
			if ifrag, err = e.resolve(ifrag, sc); err != nil {
				return nil, err
			}
			if frag, err = e.mergeFrags(frag, ifrag); err != nil {
				return nil, err
			}
			rt.Meta().Constant = true
			rt.Meta().Label = name
			sc.rebind(name, rt)
		}
		return frag, nil
	}

	// unpacking a non-literal value: the right side must be a tuple of the
	// target arity, but nothing more is known about the slots
	var items = make([]shape.Shape, len(n.Names))
	for i := range items {
		items[i] = shape.NewUnknown(n.Names[i], line)
	}
	_, frag, err := e.visitExpr(n.Expr, exprContext(shape.NewTuple(items, line)))
	if err != nil {
		return nil, err
	}
	if frag, err = e.resolve(frag, sc); err != nil {
		return nil, err
	}
	for _, name := range n.Names {
		var bound = shape.NewUnknown(name, line)
		bound.Constant = true
		sc.rebind(name, bound)
	}
	return frag, nil
}

func (e *engine) visitWith(n *ast.WithNode, sc *scope) (*shape.Dict, error) {
	var frag = shape.NewDict(nil)
	var values = make([]shape.Shape, len(n.Names))
	for i, expr := range n.Exprs {
		rt, efrag, err := e.visitExpr(expr, exprContext(shape.NewUnknown("", e.lineOf(expr))))
		if err != nil {
			return nil, err
		}
		if efrag, err = e.resolve(efrag, sc); err != nil {
			return nil, err
		}
		if frag, err = e.mergeFrags(frag, efrag); err != nil {
			return nil, err
		}
		rt.Meta().Label = n.Names[i]
		values[i] = rt
	}
	sc.push()
	for i, name := range n.Names {
		sc.bind(name, values[i])
	}
	bodyFrag, err := e.visitStmts(n.Body.Nodes, sc)
	sc.pop()
	if err != nil {
		return nil, err
	}
	return e.mergeFrags(frag, bodyFrag)
}

func (e *engine) visitFilterBlock(n *ast.FilterBlockNode, sc *scope) (*shape.Dict, error) {
	var frag = shape.NewDict(nil)
	for _, arg := range n.Args {
		_, afrag, err := e.visitExpr(arg, exprContext(shape.NewUnknown("", e.lineOf(arg))))
		if err != nil {
			return nil, err
		}
		if afrag, err = e.resolve(afrag, sc); err != nil {
			return nil, err
		}
		if frag, err = e.mergeFrags(frag, afrag); err != nil {
			return nil, err
		}
	}
	bodyFrag, err := e.visitStmts(n.Body.Nodes, sc)
	if err != nil {
		return nil, err
	}
	return e.mergeFrags(frag, bodyFrag)
}

// Cross-template statements ----------

func (e *engine) visitInclude(n *ast.IncludeNode, sc *scope) (*shape.Dict, error) {
	path, ok := literalString(n.Template)
	if !ok {
		// a dynamic template name is itself context data
		_, frag, err := e.visitExpr(n.Template, exprContext(shape.NewScalar("", e.lineOf(n.Template))))
		if err != nil {
			return nil, err
		}
		return e.resolve(frag, sc)
	}
	sub, err := e.loadTemplate(path, n)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, nil
	}
	// the included template renders against the current scope
	child := e.sub(sub)
	return child.visitStmts(sub.Body, sc)
}

func (e *engine) visitImport(n *ast.ImportNode, sc *scope) (*shape.Dict, error) {
	path, ok := literalString(n.Template)
	if !ok {
		_, frag, err := e.visitExpr(n.Template, exprContext(shape.NewScalar("", e.lineOf(n.Template))))
		if err != nil {
			return nil, err
		}
		return e.resolve(frag, sc)
	}
	sub, err := e.loadTemplate(path, n)
	if err != nil || sub == nil {
		return nil, err
	}

	child := e.subIsolated(sub)
	csc := newScope()
	if _, err := child.visitStmts(sub.Body, csc); err != nil {
		return nil, err
	}

	var fields = make(map[string]shape.Shape)
	for mname, m := range child.macros {
		e.macros[n.Target+"."+mname] = m
		fields[mname] = shape.NewPrim(shape.PrimString, mname, e.lineOf(n))
	}
	for name, sh := range csc.frames[0] {
		fields[name] = sh
	}
	sc.bind(n.Target, shape.NewDict(fields, e.lineOf(n)))
	return nil, nil
}

func (e *engine) visitFromImport(n *ast.FromImportNode, sc *scope) (*shape.Dict, error) {
	path, ok := literalString(n.Template)
	if !ok {
		_, frag, err := e.visitExpr(n.Template, exprContext(shape.NewScalar("", e.lineOf(n.Template))))
		if err != nil {
			return nil, err
		}
		return e.resolve(frag, sc)
	}
	sub, err := e.loadTemplate(path, n)
	if err != nil || sub == nil {
		return nil, err
	}

	child := e.subIsolated(sub)
	csc := newScope()
	if _, err := child.visitStmts(sub.Body, csc); err != nil {
		return nil, err
	}

	for i, name := range n.Names {
		var alias = n.Aliases[i]
		if m, ok := child.macros[name]; ok {
			e.macros[alias] = m
			sc.bind(alias, shape.NewPrim(shape.PrimString, alias, e.lineOf(n)))
			continue
		}
		if sh, ok := csc.frames[0][name]; ok {
			sc.bind(alias, sh)
			continue
		}
		sc.bind(alias, shape.NewUnknown(alias, e.lineOf(n)))
	}
	return nil, nil
}

func (e *engine) visitExtends(n *ast.ExtendsNode, sc *scope) (*shape.Dict, error) {
	path, ok := literalString(n.Template)
	if !ok {
		_, frag, err := e.visitExpr(n.Template, exprContext(shape.NewScalar("", e.lineOf(n.Template))))
		if err != nil {
			return nil, err
		}
		return e.resolve(frag, sc)
	}
	sub, err := e.loadTemplate(path, n)
	if err != nil || sub == nil {
		return nil, err
	}
	// the parent renders against the current scope, which holds the child's
	// assignments made before the extends tag; the child's blocks are visited
	// where they appear in the child and do not replace the parent's blocks
	child := e.sub(sub)
	return child.visitStmts(sub.Body, sc)
}

func literalString(node ast.Node) (string, bool) {
	if str, ok := node.(*ast.StringNode); ok {
		return str.Value, true
	}
	return "", false
}
