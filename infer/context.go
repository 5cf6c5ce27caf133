package infer

import (
	"github.com/tmplschema/tmplschema/ast"
	"github.com/tmplschema/tmplschema/shape"
)

// context carries the bidirectional state of the expression visitor:
//
// expected is the structure the current node must have, derived from its
// syntactic position and refined on the way down.  For example in
// {{ data.field }} the Name node "data" is visited with an expected
// Dictionary containing a "field" key.
//
// ret is the prototype of the value the whole expression produces.  It is
// instantiated at the innermost Name node and carried back up, so the result
// of {{ xs|first }} printed as text is a scalar even though the evidence it
// contributes about xs is a list.
type context struct {
	expected shape.Shape
	ret      shape.Shape
}

// exprContext returns a context with the given expectation and an Unknown
// return prototype.
func exprContext(expected shape.Shape) context {
	return context{expected: expected}
}

// withExpected derives a context keeping the return prototype.
func (c context) withExpected(expected shape.Shape) context {
	return context{expected: expected, ret: c.ret}
}

// predicted clones the expected structure, stamping it with the label and
// line of the node the clone is evidence for.
func (c context) predicted(label string, line int) shape.Shape {
	var rv shape.Shape
	if c.expected == nil {
		rv = shape.NewUnknown("")
	} else {
		rv = c.expected.Clone()
	}
	var m = rv.Meta()
	if label != "" {
		m.Label = label
	}
	m.AddLine(line)
	return rv
}

// result instantiates the return prototype for the given node.
func (c context) result(label string, line int) shape.Shape {
	var rv shape.Shape
	if c.ret == nil {
		rv = shape.NewUnknown("")
	} else {
		rv = c.ret.Clone()
	}
	*rv.Meta() = shape.MetaInfo{Label: label}
	rv.Meta().AddLine(line)
	return rv
}

// meet verifies that the actual structure of a node is compatible with the
// expected one.  The merge result is discarded; only the failure matters.
func (e *engine) meet(c context, actual shape.Shape, node ast.Node) error {
	if c.expected == nil {
		return nil
	}
	if _, err := shape.MergeWith(c.expected, actual, e.cfg.mergeOpts()); err != nil {
		return &UnexpectedExpressionError{
			Expected: c.expected,
			Actual:   actual,
			Node:     node,
			Line:     e.lineOf(node),
		}
	}
	return nil
}
