package infer

import (
	"fmt"
	"strconv"

	"github.com/tmplschema/tmplschema/ast"
	"github.com/tmplschema/tmplschema/shape"
)

// visitExpr returns the type an expression produces and the fragment of free
// variables it reads.  The context carries the structure the expression's
// syntactic position demands; evidence flows downward through it and the
// derived structure flows back up.
func (e *engine) visitExpr(node ast.Node, ctx context) (shape.Shape, *shape.Dict, error) {
	var line = e.lineOf(node)
	switch n := node.(type) {

	// Literals ----------

	case *ast.NullNode:
		return e.visitConst(n, ctx, shape.PrimNull, "none")
	case *ast.BoolNode:
		return e.visitConst(n, ctx, shape.PrimBool, n.String())
	case *ast.IntNode:
		return e.visitConst(n, ctx, shape.PrimNumber, n.String())
	case *ast.FloatNode:
		return e.visitConst(n, ctx, shape.PrimNumber, n.String())
	case *ast.StringNode:
		return e.visitConst(n, ctx, shape.PrimString, n.Value)

	case *ast.ListLiteralNode:
		return e.visitListLiteral(n, ctx)
	case *ast.TupleLiteralNode:
		return e.visitTupleLiteral(n, ctx)
	case *ast.DictLiteralNode:
		if err := e.meet(ctx, shape.NewDict(nil), n); err != nil {
			return nil, nil, err
		}
		var items = make([][2]ast.Node, len(n.Items))
		for i, item := range n.Items {
			items[i] = [2]ast.Node{item.Key, item.Value}
		}
		return e.visitDictItems(n, ctx, items)

	// References ----------

	case *ast.VarNode:
		var frag = shape.NewDict(nil)
		frag.Set(n.Name, ctx.predicted(n.Name, line))
		return ctx.result(n.Name, line), frag, nil

	case *ast.GetAttrNode:
		var fields = map[string]shape.Shape{n.Attr: ctx.predicted(n.Attr, line)}
		return e.visitExpr(n.Expr, ctx.withExpected(shape.NewDict(fields, line)))

	case *ast.GetItemNode:
		return e.visitGetItem(n, ctx)

	// Application ----------

	case *ast.FilterNode:
		return e.visitFilter(n, ctx)
	case *ast.TestNode:
		return e.visitTest(n, ctx)
	case *ast.CallNode:
		return e.visitCall(n, ctx)
	case *ast.CondNode:
		return e.visitCond(n, ctx)

	// Operators ----------

	case *ast.AddNode:
		return e.visitArith(&n.BinaryOpNode, ctx)
	case *ast.SubNode:
		return e.visitArith(&n.BinaryOpNode, ctx)
	case *ast.MulNode:
		return e.visitArith(&n.BinaryOpNode, ctx)
	case *ast.DivNode:
		return e.visitArith(&n.BinaryOpNode, ctx)
	case *ast.FloorDivNode:
		return e.visitArith(&n.BinaryOpNode, ctx)
	case *ast.ModNode:
		return e.visitArith(&n.BinaryOpNode, ctx)
	case *ast.PowNode:
		return e.visitArith(&n.BinaryOpNode, ctx)

	case *ast.ConcatNode:
		return e.visitConcat(&n.BinaryOpNode, ctx)

	case *ast.EqNode:
		return e.visitCompare(&n.BinaryOpNode, ctx)
	case *ast.NotEqNode:
		return e.visitCompare(&n.BinaryOpNode, ctx)
	case *ast.GtNode:
		return e.visitCompare(&n.BinaryOpNode, ctx)
	case *ast.GteNode:
		return e.visitCompare(&n.BinaryOpNode, ctx)
	case *ast.LtNode:
		return e.visitCompare(&n.BinaryOpNode, ctx)
	case *ast.LteNode:
		return e.visitCompare(&n.BinaryOpNode, ctx)

	case *ast.InNode:
		return e.visitIn(&n.BinaryOpNode, ctx)

	case *ast.AndNode:
		return e.visitBool(&n.BinaryOpNode, ctx)
	case *ast.OrNode:
		return e.visitBool(&n.BinaryOpNode, ctx)

	case *ast.NotNode:
		var operand = e.condExpected(line)
		_, frag, err := e.visitExpr(n.Arg, exprContext(operand))
		if err != nil {
			return nil, nil, err
		}
		return shape.NewPrim(shape.PrimBool, "", line), frag, nil

	case *ast.NegateNode:
		_, frag, err := e.visitExpr(n.Arg, exprContext(shape.NewPrim(shape.PrimNumber, "", line)))
		if err != nil {
			return nil, nil, err
		}
		return shape.NewPrim(shape.PrimNumber, "", line), frag, nil

	case *ast.SliceNode:
		frag, err := e.visitSliceParts(n)
		if err != nil {
			return nil, nil, err
		}
		return shape.NewUnknown("", line), frag, nil
	}

	return nil, nil, &UnexpectedExpressionError{
		Expected: ctx.predicted("", line),
		Actual:   shape.NewUnknown("", line),
		Node:     node,
		Line:     line,
	}
}

func (e *engine) visitConst(node ast.Node, ctx context, prim shape.Prim, value string) (shape.Shape, *shape.Dict, error) {
	var line = e.lineOf(node)
	if err := e.meet(ctx, shape.NewScalar(""), node); err != nil {
		return nil, nil, err
	}
	var rtype = shape.NewPrim(prim, "", line)
	rtype.Constant = true
	rtype.Value = value
	return rtype, shape.NewDict(nil), nil
}

func (e *engine) visitListLiteral(n *ast.ListLiteralNode, ctx context) (shape.Shape, *shape.Dict, error) {
	var line = e.lineOf(n)
	if err := e.meet(ctx, shape.NewList(shape.NewUnknown("")), n); err != nil {
		return nil, nil, err
	}
	merged, err := e.merge(shape.NewList(shape.NewUnknown(""), line), ctx.predicted("", line))
	if err != nil {
		return nil, nil, err
	}
	var elemExpected = merged.(*shape.List).Elem

	var frag = shape.NewDict(nil)
	var elem shape.Shape
	for _, item := range n.Items {
		irt, ifrag, err := e.visitExpr(item, exprContext(elemExpected.Clone()))
		if err != nil {
			return nil, nil, err
		}
		if frag, err = e.mergeFrags(frag, ifrag); err != nil {
			return nil, nil, err
		}
		if elem == nil {
			elem = irt
		} else if elem, err = e.merge(elem, irt); err != nil {
			return nil, nil, err
		}
	}
	if elem == nil {
		elem = shape.NewUnknown("", line)
	}
	var rtype = shape.NewList(elem, line)
	rtype.Constant = true
	return rtype, frag, nil
}

func (e *engine) visitTupleLiteral(n *ast.TupleLiteralNode, ctx context) (shape.Shape, *shape.Dict, error) {
	var line = e.lineOf(n)
	if err := e.meet(ctx, &shape.Tuple{MayGrow: true}, n); err != nil {
		return nil, nil, err
	}
	var frag = shape.NewDict(nil)
	var items = make([]shape.Shape, len(n.Items))
	for i, item := range n.Items {
		irt, ifrag, err := e.visitExpr(item, exprContext(shape.NewUnknown("", e.lineOf(item))))
		if err != nil {
			return nil, nil, err
		}
		if frag, err = e.mergeFrags(frag, ifrag); err != nil {
			return nil, nil, err
		}
		items[i] = irt
	}
	var rtype = shape.NewTuple(items, line)
	rtype.Constant = true
	return rtype, frag, nil
}

// visitDictItems is the common logic behind dict literals and dict(k=v)
// calls.  String and integer literal keys contribute named fields (dict(k=v)
// passes its keyword names as string keys); any other key expression is
// visited as a scalar and contributes no field.
func (e *engine) visitDictItems(node ast.Node, ctx context, items [][2]ast.Node) (shape.Shape, *shape.Dict, error) {
	var line = e.lineOf(node)
	var rtype = shape.NewDict(nil, line)
	rtype.Constant = true
	var frag = shape.NewDict(nil)
	for _, kv := range items {
		var key, value = kv[0], kv[1]
		vrt, vfrag, err := e.visitExpr(value, exprContext(shape.NewUnknown("", e.lineOf(value))))
		if err != nil {
			return nil, nil, err
		}
		if frag, err = e.mergeFrags(frag, vfrag); err != nil {
			return nil, nil, err
		}
		switch key := key.(type) {
		case *ast.StringNode:
			rtype.Set(key.Value, vrt)
		case *ast.IntNode:
			rtype.Set(key.String(), vrt)
		default:
			_, kfrag, err := e.visitExpr(key, exprContext(shape.NewScalar("", e.lineOf(key))))
			if err != nil {
				return nil, nil, err
			}
			if frag, err = e.mergeFrags(frag, kfrag); err != nil {
				return nil, nil, err
			}
		}
	}
	return rtype, frag, nil
}

// visitGetItem infers subscript access.  String literal indexes behave like
// attribute access; integer and variable indexes are configurable.
func (e *engine) visitGetItem(n *ast.GetItemNode, ctx context) (shape.Shape, *shape.Dict, error) {
	var line = e.lineOf(n)
	var idxFrag = shape.NewDict(nil)
	var predicted shape.Shape

	switch idx := n.Index.(type) {
	case *ast.StringNode:
		predicted = shape.NewDict(map[string]shape.Shape{idx.Value: ctx.predicted(idx.Value, line)}, line)

	case *ast.IntNode:
		switch e.cfg.TypeOfIntIndexed {
		case IndexedList:
			predicted = shape.NewList(ctx.predicted("", line), line)
		case IndexedDictionary:
			predicted = shape.NewDict(map[string]shape.Shape{strconv.FormatInt(idx.Value, 10): ctx.predicted("", line)}, line)
		case IndexedTuple:
			if idx.Value < 0 {
				predicted = shape.NewList(ctx.predicted("", line), line)
				break
			}
			var items = make([]shape.Shape, idx.Value+1)
			for i := range items {
				items[i] = shape.NewUnknown("", line)
			}
			items[idx.Value] = ctx.predicted("", line)
			var tup = shape.NewTuple(items, line)
			tup.MayGrow = true
			predicted = tup
		default: // any
			predicted = shape.NewUnknown("", line)
		}

	case *ast.SliceNode:
		var err error
		if idxFrag, err = e.visitSliceParts(idx); err != nil {
			return nil, nil, err
		}
		merged, err := e.merge(shape.NewList(shape.NewUnknown(""), line), ctx.predicted("", line))
		if err != nil {
			predicted = shape.NewList(shape.NewUnknown("", line), line)
		} else {
			predicted = merged
		}

	default:
		_, frag, err := e.visitExpr(n.Index, exprContext(shape.NewScalar("", e.lineOf(n.Index))))
		if err != nil {
			return nil, nil, err
		}
		idxFrag = frag
		switch e.cfg.TypeOfVarIndexed {
		case IndexedList:
			predicted = shape.NewList(ctx.predicted("", line), line)
		case IndexedDictionary:
			predicted = shape.NewDict(nil, line)
		default: // any
			predicted = shape.NewUnknown("", line)
		}
	}

	rtype, frag, err := e.visitExpr(n.Expr, ctx.withExpected(predicted))
	if err != nil {
		return nil, nil, err
	}
	if frag, err = e.mergeFrags(frag, idxFrag); err != nil {
		return nil, nil, err
	}
	return rtype, frag, nil
}

func (e *engine) visitSliceParts(n *ast.SliceNode) (*shape.Dict, error) {
	var frag = shape.NewDict(nil)
	for _, part := range []ast.Node{n.Start, n.Stop, n.Step} {
		if part == nil {
			continue
		}
		_, pfrag, err := e.visitExpr(part, exprContext(shape.NewPrim(shape.PrimNumber, "", e.lineOf(part))))
		if err != nil {
			return nil, err
		}
		if frag, err = e.mergeFrags(frag, pfrag); err != nil {
			return nil, err
		}
	}
	return frag, nil
}

// visitFilter applies a filter's registered signature: the input expectation
// flows into the filtered expression, and the result kind decides what the
// whole application produces.
func (e *engine) visitFilter(n *ast.FilterNode, ctx context) (shape.Shape, *shape.Dict, error) {
	var line = e.lineOf(n)
	var sig = e.filterSignature(n.Name)
	if sig == nil {
		if e.cfg.RaiseOnInvalidFilterArgument {
			return nil, nil, &InvalidExpressionError{n, line, fmt.Sprintf("unknown filter %q", n.Name)}
		}
		return e.visitUnknownFilter(n, line)
	}
	if e.cfg.RaiseOnInvalidFilterArgument && len(n.Args) > len(sig.Args) {
		return nil, nil, &InvalidExpressionError{n, line,
			fmt.Sprintf("filter %q accepts at most %d arguments", n.Name, len(sig.Args))}
	}

	var frag = shape.NewDict(nil)
	var inputCtx context
	var rtype shape.Shape // nil: the input visit's result is the result
	var argsStart int

	switch sig.Result {
	case ResultScalar, ResultString, ResultNumber:
		if err := e.meet(ctx, shape.NewScalar(""), n); err != nil {
			return nil, nil, err
		}
		var prim = shape.PrimAny
		if sig.Result == ResultString {
			prim = shape.PrimString
		} else if sig.Result == ResultNumber {
			prim = shape.PrimNumber
		}
		inputCtx = context{expected: e.filterInput(sig, line), ret: shape.NewPrim(prim, "")}
		rtype = shape.NewPrim(prim, "", line)

	case ResultSame:
		if err := e.meet(ctx, shape.NewScalar(""), n); err != nil {
			return nil, nil, err
		}
		inputCtx = ctx.withExpected(ctx.predicted("", line))

	case ResultElement:
		inputCtx = ctx.withExpected(shape.NewList(ctx.predicted("", line), line))

	case ResultList:
		if err := e.meet(ctx, shape.NewList(shape.NewUnknown("")), n); err != nil {
			return nil, nil, err
		}
		merged, err := e.merge(shape.NewList(shape.NewUnknown(""), line), ctx.predicted("", line))
		if err != nil {
			return nil, nil, err
		}
		inputCtx = ctx.withExpected(merged)

	case ResultPartition:
		var inner = shape.NewList(shape.NewUnknown(""), line)
		if err := e.meet(ctx, shape.NewList(inner), n); err != nil {
			return nil, nil, err
		}
		merged, err := e.merge(shape.NewList(shape.NewList(shape.NewUnknown(""), line), line), ctx.predicted("", line))
		if err != nil {
			return nil, nil, err
		}
		inputCtx = ctx.withExpected(merged.(*shape.List).Elem)

	case ResultDictToList:
		var pair = shape.NewTuple([]shape.Shape{shape.NewScalar(""), shape.NewUnknown("")})
		if err := e.meet(ctx, shape.NewList(pair), n); err != nil {
			return nil, nil, err
		}
		inputCtx = ctx.withExpected(shape.NewDict(nil, line))

	case ResultChars:
		if err := e.meet(ctx, shape.NewList(shape.NewScalar("")), n); err != nil {
			return nil, nil, err
		}
		merged, err := e.merge(shape.NewList(shape.NewScalar("", line), line), ctx.predicted("", line))
		if err != nil {
			return nil, nil, err
		}
		inputCtx = ctx.withExpected(merged.(*shape.List).Elem)

	case ResultDefault:
		if len(n.Args) == 0 {
			return nil, nil, &InvalidExpressionError{n, line, "default filter requires an argument"}
		}
		drt, dfrag, err := e.visitExpr(n.Args[0], exprContext(shape.NewUnknown("", e.lineOf(n.Args[0]))))
		if err != nil {
			return nil, nil, err
		}
		if frag, err = e.mergeFrags(frag, dfrag); err != nil {
			return nil, nil, err
		}
		input, err := e.merge(ctx.predicted("", line), drt)
		if err != nil {
			return nil, nil, err
		}
		input.Meta().UsedWithDefault = true
		inputCtx = ctx.withExpected(input)
		argsStart = 1

	case ResultAttr:
		if len(n.Args) == 1 {
			if str, ok := n.Args[0].(*ast.StringNode); ok {
				var fields = map[string]shape.Shape{str.Value: ctx.predicted(str.Value, line)}
				inputCtx = ctx.withExpected(shape.NewDict(fields, line))
				argsStart = 1
				break
			}
		}
		inputCtx = exprContext(shape.NewUnknown("", line))
		rtype = shape.NewUnknown("", line)
	}

	irt, ifrag, err := e.visitExpr(n.Expr, inputCtx)
	if err != nil {
		return nil, nil, err
	}
	if frag, err = e.mergeFrags(ifrag, frag); err != nil {
		return nil, nil, err
	}
	if rtype == nil {
		rtype = irt
	}

	for i, arg := range n.Args {
		if i < argsStart {
			continue
		}
		var expected shape.Shape = shape.NewUnknown("", e.lineOf(arg))
		if i < len(sig.Args) {
			expected = argExpected(sig.Args[i], e.lineOf(arg))
		} else if e.cfg.RaiseOnInvalidFilterArgument {
			return nil, nil, &InvalidExpressionError{arg, e.lineOf(arg),
				fmt.Sprintf("unexpected argument to filter %q", n.Name)}
		}
		_, afrag, err := e.visitExpr(arg, exprContext(expected))
		if err != nil {
			return nil, nil, err
		}
		if frag, err = e.mergeFrags(frag, afrag); err != nil {
			return nil, nil, err
		}
	}
	frag, err = e.visitKwargs(frag, n.Kwargs)
	if err != nil {
		return nil, nil, err
	}
	return rtype, frag, nil
}

// visitUnknownFilter degrades gracefully: the result is unknown and the input
// is constrained only by what its own sub-structure demands.
func (e *engine) visitUnknownFilter(n *ast.FilterNode, line int) (shape.Shape, *shape.Dict, error) {
	_, frag, err := e.visitExpr(n.Expr, exprContext(shape.NewUnknown("", line)))
	if err != nil {
		return nil, nil, err
	}
	for _, arg := range n.Args {
		_, afrag, err := e.visitExpr(arg, exprContext(shape.NewUnknown("", e.lineOf(arg))))
		if err != nil {
			return nil, nil, err
		}
		if frag, err = e.mergeFrags(frag, afrag); err != nil {
			return nil, nil, err
		}
	}
	frag, err = e.visitKwargs(frag, n.Kwargs)
	if err != nil {
		return nil, nil, err
	}
	return shape.NewUnknown("", line), frag, nil
}

func (e *engine) visitKwargs(frag *shape.Dict, kwargs []*ast.KwargNode) (*shape.Dict, error) {
	for _, kwarg := range kwargs {
		_, kfrag, err := e.visitExpr(kwarg.Value, exprContext(shape.NewUnknown("", e.lineOf(kwarg))))
		if err != nil {
			return nil, err
		}
		if frag, err = e.mergeFrags(frag, kfrag); err != nil {
			return nil, err
		}
	}
	return frag, nil
}

// filterInput builds the expectation a scalar-producing filter places on its
// input.
func (e *engine) filterInput(sig *FilterSignature, line int) shape.Shape {
	switch sig.Input {
	case InputScalar:
		return shape.NewScalar("", line)
	case InputString:
		return shape.NewPrim(shape.PrimString, "", line)
	case InputNumber:
		return shape.NewPrim(shape.PrimNumber, "", line)
	case InputDict:
		return shape.NewDict(nil, line)
	case InputList:
		var elem shape.Shape
		switch sig.Elem {
		case ElemScalar:
			elem = shape.NewScalar("", line)
		case ElemString:
			elem = shape.NewPrim(shape.PrimString, "", line)
		case ElemNumber:
			elem = shape.NewPrim(shape.PrimNumber, "", line)
		default:
			elem = shape.NewUnknown("", line)
		}
		return shape.NewList(elem, line)
	}
	return shape.NewUnknown("", line)
}

func argExpected(kind ArgKind, line int) shape.Shape {
	switch kind {
	case ArgScalar:
		return shape.NewScalar("", line)
	case ArgString:
		return shape.NewPrim(shape.PrimString, "", line)
	case ArgNumber:
		return shape.NewPrim(shape.PrimNumber, "", line)
	case ArgBool:
		return shape.NewPrim(shape.PrimBool, "", line)
	}
	return shape.NewUnknown("", line)
}

// visitTest types a test application.  The result is always a boolean; the
// definedness tests additionally flip the tested variable's required flag.
func (e *engine) visitTest(n *ast.TestNode, ctx context) (shape.Shape, *shape.Dict, error) {
	var line = e.lineOf(n)
	var predicted shape.Shape
	switch {
	case scalarTests[n.Name]:
		if err := e.meet(ctx, shape.NewScalar(""), n); err != nil {
			return nil, nil, err
		}
		predicted = shape.NewScalar("", line)
	case knownTests[n.Name]:
		predicted = shape.NewUnknown("", line)
	default:
		return nil, nil, &InvalidExpressionError{n, line, fmt.Sprintf("unknown test %q", n.Name)}
	}

	_, frag, err := e.visitExpr(n.Expr, context{
		expected: predicted,
		ret:      shape.NewPrim(shape.PrimBool, ""),
	})
	if err != nil {
		return nil, nil, err
	}

	if n.Name == "divisibleby" {
		if len(n.Args) == 0 {
			return nil, nil, &InvalidExpressionError{n, line, "divisibleby must have an argument"}
		}
		_, afrag, err := e.visitExpr(n.Args[0], exprContext(shape.NewPrim(shape.PrimNumber, "", e.lineOf(n.Args[0]))))
		if err != nil {
			return nil, nil, err
		}
		if frag, err = e.mergeFrags(afrag, frag); err != nil {
			return nil, nil, err
		}
	} else {
		for _, arg := range n.Args {
			_, afrag, err := e.visitExpr(arg, exprContext(shape.NewUnknown("", e.lineOf(arg))))
			if err != nil {
				return nil, nil, err
			}
			if frag, err = e.mergeFrags(frag, afrag); err != nil {
				return nil, nil, err
			}
		}
	}

	// `x is defined` / `x is undefined` mark x as optional in the context.
	if vn, ok := n.Expr.(*ast.VarNode); ok {
		var effective = n.Name
		if n.Negated {
			switch effective {
			case "defined":
				effective = "undefined"
			case "undefined":
				effective = "defined"
			}
		}
		if entry := frag.Field(vn.Name); entry != nil {
			switch effective {
			case "defined":
				entry.Meta().CheckedAsDefined = true
			case "undefined":
				entry.Meta().CheckedAsUndefined = true
			}
		}
	}
	return shape.NewPrim(shape.PrimBool, "", line), frag, nil
}

// visitCond types an inline condition.  Free variables read in only one
// branch become optional; a definedness test on the condition marks the
// tested name as possibly defined.
func (e *engine) visitCond(n *ast.CondNode, ctx context) (shape.Shape, *shape.Dict, error) {
	_, condFrag, err := e.visitExpr(n.Cond, exprContext(e.condExpected(e.lineOf(n.Cond))))
	if err != nil {
		return nil, nil, err
	}
	trt, tfrag, err := e.visitExpr(n.TrueExpr, ctx)
	if err != nil {
		return nil, nil, err
	}
	var rtype = trt
	var ffrag = shape.NewDict(nil)
	if n.FalseExpr != nil {
		frt, frag2, err := e.visitExpr(n.FalseExpr, ctx)
		if err != nil {
			return nil, nil, err
		}
		ffrag = frag2
		if rtype, err = e.mergeWeakShapes(trt, frt); err != nil {
			return nil, nil, err
		}
	}

	joined, err := e.mergeFragsWeak(tfrag, ffrag)
	if err != nil {
		return nil, nil, err
	}
	frag, err := e.mergeFrags(condFrag, joined)
	if err != nil {
		return nil, nil, err
	}

	if test, ok := n.Cond.(*ast.TestNode); ok && (test.Name == "defined" || test.Name == "undefined") {
		if vn, ok := test.Expr.(*ast.VarNode); ok {
			if entry := frag.Field(vn.Name); entry != nil {
				entry.Meta().MayBeDefined = true
			}
		}
	}
	return rtype, frag, nil
}

// visitCall types a call expression: a bound macro, a builtin global, or an
// unknown callable which degrades to a scalar with unconstrained arguments.
func (e *engine) visitCall(n *ast.CallNode, ctx context) (shape.Shape, *shape.Dict, error) {
	var line = e.lineOf(n)
	if key, ok := macroKey(n.Callee); ok {
		if m := e.macros[key]; m != nil {
			return e.visitMacroCall(n, m, ctx)
		}
	}
	if vn, ok := n.Callee.(*ast.VarNode); ok {
		switch vn.Name {
		case "range":
			if err := e.meet(ctx, shape.NewList(shape.NewUnknown("")), n); err != nil {
				return nil, nil, err
			}
			var frag = shape.NewDict(nil)
			for _, arg := range n.Args {
				_, afrag, err := e.visitExpr(arg, exprContext(shape.NewPrim(shape.PrimNumber, "", e.lineOf(arg))))
				if err != nil {
					return nil, nil, err
				}
				if frag, err = e.mergeFrags(frag, afrag); err != nil {
					return nil, nil, err
				}
			}
			return shape.NewList(shape.NewPrim(shape.PrimNumber, ""), line), frag, nil

		case "lipsum":
			if err := e.meet(ctx, shape.NewScalar(""), n); err != nil {
				return nil, nil, err
			}
			var frag = shape.NewDict(nil)
			for _, arg := range n.Args {
				_, afrag, err := e.visitExpr(arg, exprContext(shape.NewScalar("", e.lineOf(arg))))
				if err != nil {
					return nil, nil, err
				}
				if frag, err = e.mergeFrags(frag, afrag); err != nil {
					return nil, nil, err
				}
			}
			frag, err := e.visitKwargs(frag, n.Kwargs)
			if err != nil {
				return nil, nil, err
			}
			return shape.NewScalar("", line), frag, nil

		case "dict":
			if err := e.meet(ctx, shape.NewDict(nil), n); err != nil {
				return nil, nil, err
			}
			if len(n.Args) > 0 {
				return nil, nil, &InvalidExpressionError{n, line, "dict accepts only keyword arguments"}
			}
			var items = make([][2]ast.Node, len(n.Kwargs))
			for i, kwarg := range n.Kwargs {
				items[i] = [2]ast.Node{
					&ast.StringNode{kwarg.Pos, "'" + kwarg.Key + "'", kwarg.Key},
					kwarg.Value,
				}
			}
			return e.visitDictItems(n, ctx, items)
		}
	}

	// Unknown callable: scalar-producing, argument structure unconstrained.
	var frag = shape.NewDict(nil)
	for _, arg := range n.Args {
		_, afrag, err := e.visitExpr(arg, exprContext(shape.NewUnknown("", e.lineOf(arg))))
		if err != nil {
			return nil, nil, err
		}
		if frag, err = e.mergeFrags(frag, afrag); err != nil {
			return nil, nil, err
		}
	}
	frag, err := e.visitKwargs(frag, n.Kwargs)
	if err != nil {
		return nil, nil, err
	}
	return shape.NewScalar("", line), frag, nil
}

// macroKey extracts the registry key of a call target: a bare name or an
// import alias access like forms.input.
func macroKey(callee ast.Node) (string, bool) {
	switch callee := callee.(type) {
	case *ast.VarNode:
		return callee.Name, true
	case *ast.GetAttrNode:
		if base, ok := callee.Expr.(*ast.VarNode); ok {
			return base.Name + "." + callee.Attr, true
		}
	}
	return "", false
}

func (e *engine) visitArith(n *ast.BinaryOpNode, ctx context) (shape.Shape, *shape.Dict, error) {
	var ret = shape.NewPrim(shape.PrimNumber, "")
	lrt, lfrag, err := e.visitExpr(n.Arg1, context{expected: shape.NewScalar("", e.lineOf(n.Arg1)), ret: ret})
	if err != nil {
		return nil, nil, err
	}
	rrt, rfrag, err := e.visitExpr(n.Arg2, context{expected: shape.NewScalar("", e.lineOf(n.Arg2)), ret: ret})
	if err != nil {
		return nil, nil, err
	}
	frag, err := e.mergeFrags(lfrag, rfrag)
	if err != nil {
		return nil, nil, err
	}
	rtype, err := e.mergeRtypes(lrt, rrt, n.Name)
	if err != nil {
		return nil, nil, err
	}
	return rtype, frag, nil
}

func (e *engine) visitConcat(n *ast.BinaryOpNode, ctx context) (shape.Shape, *shape.Dict, error) {
	var line = e.lineOf(n)
	if err := e.meet(ctx, shape.NewScalar(""), n); err != nil {
		return nil, nil, err
	}
	var frag = shape.NewDict(nil)
	for _, arg := range []ast.Node{n.Arg1, n.Arg2} {
		_, afrag, err := e.visitExpr(arg, exprContext(shape.NewPrim(shape.PrimString, "", e.lineOf(arg))))
		if err != nil {
			return nil, nil, err
		}
		if frag, err = e.mergeFrags(frag, afrag); err != nil {
			return nil, nil, err
		}
	}
	return shape.NewPrim(shape.PrimString, "", line), frag, nil
}

func (e *engine) visitCompare(n *ast.BinaryOpNode, ctx context) (shape.Shape, *shape.Dict, error) {
	var line = e.lineOf(n)
	_, lfrag, err := e.visitExpr(n.Arg1, exprContext(shape.NewScalar("", e.lineOf(n.Arg1))))
	if err != nil {
		return nil, nil, err
	}
	_, rfrag, err := e.visitExpr(n.Arg2, exprContext(shape.NewScalar("", e.lineOf(n.Arg2))))
	if err != nil {
		return nil, nil, err
	}
	frag, err := e.mergeFrags(lfrag, rfrag)
	if err != nil {
		return nil, nil, err
	}
	return shape.NewPrim(shape.PrimBool, "", line), frag, nil
}

// visitIn types a membership check: the container side is unconstrained
// because strings, lists and dictionaries all support it.
func (e *engine) visitIn(n *ast.BinaryOpNode, ctx context) (shape.Shape, *shape.Dict, error) {
	var line = e.lineOf(n)
	_, lfrag, err := e.visitExpr(n.Arg1, exprContext(shape.NewUnknown("", e.lineOf(n.Arg1))))
	if err != nil {
		return nil, nil, err
	}
	_, rfrag, err := e.visitExpr(n.Arg2, exprContext(shape.NewUnknown("", e.lineOf(n.Arg2))))
	if err != nil {
		return nil, nil, err
	}
	frag, err := e.mergeFrags(lfrag, rfrag)
	if err != nil {
		return nil, nil, err
	}
	return shape.NewPrim(shape.PrimBool, "", line), frag, nil
}

// visitBool types and/or: both operands receive the outer expectation and the
// result merges them strictly.
func (e *engine) visitBool(n *ast.BinaryOpNode, ctx context) (shape.Shape, *shape.Dict, error) {
	var operand = ctx
	if e.cfg.BooleanConditions {
		operand = ctx.withExpected(shape.NewScalar("", e.lineOf(n)))
	}
	lrt, lfrag, err := e.visitExpr(n.Arg1, operand)
	if err != nil {
		return nil, nil, err
	}
	rrt, rfrag, err := e.visitExpr(n.Arg2, operand)
	if err != nil {
		return nil, nil, err
	}
	frag, err := e.mergeFrags(lfrag, rfrag)
	if err != nil {
		return nil, nil, err
	}
	rtype, err := e.merge(lrt, rrt)
	if err != nil {
		return nil, nil, err
	}
	return rtype, frag, nil
}

// condExpected is the expectation placed on condition operands, governed by
// the BooleanConditions option.
func (e *engine) condExpected(line int) shape.Shape {
	if e.cfg.BooleanConditions {
		return shape.NewScalar("", line)
	}
	return shape.NewUnknown("", line)
}
