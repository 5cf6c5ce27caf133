package infer

import (
	"fmt"

	"github.com/tmplschema/tmplschema/ast"
	"github.com/tmplschema/tmplschema/errortypes"
	"github.com/tmplschema/tmplschema/shape"
)

// Every analyzer error carries the source lines of its evidence.
var (
	_ errortypes.ErrLines = (*shape.MergeError)(nil)
	_ errortypes.ErrLines = (*InvalidExpressionError)(nil)
	_ errortypes.ErrLines = (*UnexpectedExpressionError)(nil)
)

// InvalidExpressionError is raised when a template uses features that cannot
// be typed, such as a malformed filter application.
type InvalidExpressionError struct {
	Node    ast.Node
	Line    int
	Message string
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func (e *InvalidExpressionError) Linenos() []int {
	return []int{e.Line}
}

// UnexpectedExpressionError is raised when a node's actual structure is
// incompatible with the structure its syntactic position demands.
type UnexpectedExpressionError struct {
	Expected shape.Shape
	Actual   shape.Shape
	Node     ast.Node
	Line     int
}

func (e *UnexpectedExpressionError) Error() string {
	return fmt.Sprintf("conflict on line %d: got %T of structure %s, expected structure %s",
		e.Line, e.Node, e.Actual, e.Expected)
}

func (e *UnexpectedExpressionError) Linenos() []int {
	return append(append([]int(nil), e.Expected.Meta().Linenos...), e.Line)
}

// IsInferError reports whether err belongs to the analyzer's error taxonomy:
// a merge conflict, an untypeable expression, or an unsupported node.
func IsInferError(err error) bool {
	switch err.(type) {
	case *shape.MergeError, *InvalidExpressionError, *UnexpectedExpressionError:
		return true
	}
	return false
}
