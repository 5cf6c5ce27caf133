package parse

import (
	"reflect"
	"testing"

	"github.com/tmplschema/tmplschema/ast"
)

func TestTemplateRoundTrip(t *testing.T) {
	// String() reconstructs a canonical form of the source; a stable round
	// trip means the tree holds everything the statement declared.
	tests := []struct {
		input string
		want  string // "" means the input is already canonical
	}{
		{"hello", ""},
		{"{{ x }}", ""},
		{"{{ x.a.b }}", ""},
		{"{{ xs|first }}", ""},
		{"{{ xs|join(', ') }}", ""},
		{"{{ x|default(1, true) }}", ""},
		{"{% if a %}x{% endif %}", ""},
		{"{% if a %}x{% elif b %}y{% else %}z{% endif %}", ""},
		{"{% for x in xs %}{{ x }}{% endfor %}", ""},
		{"{% for k, v in items %}{{ k }}{% else %}none{% endfor %}", ""},
		{"{% set a = 1 %}", ""},
		{"{% set a, b = 1, 2 %}", "{% set a, b = (1, 2) %}"},
		{"{% set a %}body{% endset %}", ""},
		{"{% with a = 1, b = x %}{{ a }}{% endwith %}", ""},
		{"{% macro m(a, b=2) %}{{ a }}{% endmacro %}", ""},
		{"{% include 'side.html' %}", ""},
		{"{% include 'side.html' ignore missing %}", ""},
		{"{% import 'forms.html' as forms %}", ""},
		{"{% from 'forms.html' import input, textarea as ta %}", ""},
		{"{% filter upper %}{{ x }}{% endfilter %}", ""},
		{"{% block body %}{{ x }}{% endblock %}", ""},
		{"{% extends 'base.html' %}", ""},
		{"{{ x.a['k'][0] }}", ""},
		{"{{ 'a' ~ b }}", ""},
		{"{{ a if b else c }}", ""},
		{"{{ [1, 2, 3] }}", ""},
		{"{{ {'a': 1, 'b': x} }}", ""},
		{"{{ x is defined }}", ""},
		{"{{ x is not none }}", ""},
		{"{{ x is divisibleby(3) }}", ""},
		{"{{ m(1, k=2) }}", ""},
	}
	for _, test := range tests {
		node, err := Template(test.input, test.input)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", test.input, err)
			continue
		}
		var want = test.want
		if want == "" {
			want = test.input
		}
		if got := node.String(); got != want {
			t.Errorf("%q: round trip produced %q, expected %q", test.input, got, want)
		}
	}
}

func TestExprPrecedence(t *testing.T) {
	node, err := Expr("a + b * c")
	if err != nil {
		t.Fatal(err)
	}
	add, ok := node.(*ast.AddNode)
	if !ok {
		t.Fatalf("expected AddNode at the root, got %T", node)
	}
	if _, ok := add.Arg2.(*ast.MulNode); !ok {
		t.Errorf("multiplication should bind tighter than addition, got %T", add.Arg2)
	}

	node, err = Expr("a or b and c")
	if err != nil {
		t.Fatal(err)
	}
	or, ok := node.(*ast.OrNode)
	if !ok {
		t.Fatalf("expected OrNode at the root, got %T", node)
	}
	if _, ok := or.Arg2.(*ast.AndNode); !ok {
		t.Errorf("and should bind tighter than or, got %T", or.Arg2)
	}
}

func TestExprPostfixChain(t *testing.T) {
	node, err := Expr("user.emails[0]|first")
	if err != nil {
		t.Fatal(err)
	}
	filter, ok := node.(*ast.FilterNode)
	if !ok {
		t.Fatalf("expected FilterNode at the root, got %T", node)
	}
	item, ok := filter.Expr.(*ast.GetItemNode)
	if !ok {
		t.Fatalf("expected GetItemNode under the filter, got %T", filter.Expr)
	}
	attr, ok := item.Expr.(*ast.GetAttrNode)
	if !ok || attr.Attr != "emails" {
		t.Fatalf("expected .emails access, got %#v", item.Expr)
	}
}

func TestExprNotIn(t *testing.T) {
	node, err := Expr("a not in b")
	if err != nil {
		t.Fatal(err)
	}
	not, ok := node.(*ast.NotNode)
	if !ok {
		t.Fatalf("expected NotNode at the root, got %T", node)
	}
	if _, ok := not.Arg.(*ast.InNode); !ok {
		t.Errorf("expected InNode under the negation, got %T", not.Arg)
	}
}

func TestExprSlice(t *testing.T) {
	node, err := Expr("xs[1:2]")
	if err != nil {
		t.Fatal(err)
	}
	item, ok := node.(*ast.GetItemNode)
	if !ok {
		t.Fatalf("expected GetItemNode, got %T", node)
	}
	slice, ok := item.Index.(*ast.SliceNode)
	if !ok {
		t.Fatalf("expected SliceNode index, got %T", item.Index)
	}
	if slice.Start == nil || slice.Stop == nil || slice.Step != nil {
		t.Errorf("expected start and stop only, got %#v", slice)
	}
}

func TestExprCondWithoutElse(t *testing.T) {
	node, err := Expr("a if b")
	if err != nil {
		t.Fatal(err)
	}
	cond, ok := node.(*ast.CondNode)
	if !ok {
		t.Fatalf("expected CondNode, got %T", node)
	}
	if cond.FalseExpr != nil {
		t.Error("expected no else branch")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"{{ x }",
		"{% if a %}unclosed",
		"{% for x xs %}{% endfor %}",
		"{% set %}",
		"{{ x|'str' }}",
		"{# unclosed",
	}
	for _, input := range tests {
		if _, err := Template("test", input); err == nil {
			t.Errorf("%q: expected a parse error", input)
		}
	}
}

func TestForVars(t *testing.T) {
	node, err := Template("test", "{% for a, b in xs %}{% endfor %}")
	if err != nil {
		t.Fatal(err)
	}
	forNode, ok := node.Body[0].(*ast.ForNode)
	if !ok {
		t.Fatalf("expected ForNode, got %T", node.Body[0])
	}
	if !reflect.DeepEqual(forNode.Vars, []string{"a", "b"}) {
		t.Errorf("expected loop targets [a b], got %v", forNode.Vars)
	}
}

func TestLineOf(t *testing.T) {
	node, err := Template("test", "line one\n{{ x }}\n{{ y }}")
	if err != nil {
		t.Fatal(err)
	}
	var lines []int
	for _, n := range node.Body {
		if out, ok := n.(*ast.OutputNode); ok {
			lines = append(lines, node.LineOf(out.Position()))
		}
	}
	if !reflect.DeepEqual(lines, []int{2, 3}) {
		t.Errorf("expected output nodes on lines [2 3], got %v", lines)
	}
}
