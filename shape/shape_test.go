package shape

import "testing"

func TestString(t *testing.T) {
	tests := []struct {
		name     string
		shape    Shape
		expected string
	}{
		{"unknown", NewUnknown("x"), "<unknown>"},
		{"scalar", NewScalar("x"), "<scalar>"},
		{"string", NewPrim(PrimString, "x"), "<string>"},
		{"number", NewPrim(PrimNumber, "x"), "<number>"},
		{"boolean", NewPrim(PrimBool, "x"), "<boolean>"},
		{"list", NewList(NewScalar("")), "[<scalar>]"},
		{"nested list", NewList(NewList(NewUnknown(""))), "[[<unknown>]]"},
		{"tuple", NewTuple([]Shape{NewScalar(""), NewUnknown("")}), "(<scalar>, <unknown>)"},
		{"dict", NewDict(map[string]Shape{
			"b": NewScalar(""),
			"a": NewList(NewScalar("")),
		}), "{a: [<scalar>], b: <scalar>}"},
		{"empty dict", NewDict(nil), "{}"},
	}
	for _, test := range tests {
		if got := test.shape.String(); got != test.expected {
			t.Errorf("%s: got %q, expected %q", test.name, got, test.expected)
		}
	}
}

func TestConstantString(t *testing.T) {
	var s = NewPrim(PrimString, "greeting")
	s.Constant = true
	s.Value = "hello"
	if got := s.String(); got != "hello" {
		t.Errorf("constant scalar should print its value, got %q", got)
	}
}

func TestRequired(t *testing.T) {
	var s = NewScalar("x")
	if !s.Required() {
		t.Error("fresh scalar should be required")
	}
	for _, set := range []func(*MetaInfo){
		func(m *MetaInfo) { m.MayBeDefined = true },
		func(m *MetaInfo) { m.UsedWithDefault = true },
		func(m *MetaInfo) { m.CheckedAsDefined = true },
		func(m *MetaInfo) { m.CheckedAsUndefined = true },
	} {
		var s = NewScalar("x")
		set(s.Meta())
		if s.Required() {
			t.Errorf("scalar with %+v should not be required", s.Meta())
		}
	}
}

func TestEqualIgnoresLinenos(t *testing.T) {
	var a = NewScalar("x", 1, 2)
	var b = NewScalar("y", 5)
	if !Equal(a, b) {
		t.Error("equality must ignore linenos and labels")
	}
}

func TestEqualComparesStructure(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Shape
		equal bool
	}{
		{"scalar vs dict", NewScalar(""), NewDict(nil), false},
		{"prim mismatch", NewPrim(PrimString, ""), NewPrim(PrimNumber, ""), false},
		{"list elem", NewList(NewScalar("")), NewList(NewScalar("")), true},
		{"list elem mismatch", NewList(NewScalar("")), NewList(NewDict(nil)), false},
		{"tuple arity", NewTuple([]Shape{NewScalar("")}), NewTuple([]Shape{NewScalar(""), NewScalar("")}), false},
		{"dict fields", NewDict(map[string]Shape{"a": NewScalar("")}), NewDict(map[string]Shape{"a": NewScalar("")}), true},
		{"dict extra field", NewDict(map[string]Shape{"a": NewScalar("")}), NewDict(nil), false},
	}
	for _, test := range tests {
		if got := Equal(test.a, test.b); got != test.equal {
			t.Errorf("%s: Equal = %v, expected %v", test.name, got, test.equal)
		}
	}

	var required = NewScalar("")
	var optional = NewScalar("")
	optional.MayBeDefined = true
	if Equal(required, optional) {
		t.Error("equality must compare the required flag")
	}
}

func TestCloneIsDeep(t *testing.T) {
	var d = NewDict(map[string]Shape{"a": NewList(NewScalar(""))})
	var c = d.Clone().(*Dict)
	c.Fields["a"].(*List).Elem.Meta().MayBeDefined = true
	if d.Fields["a"].(*List).Elem.Meta().MayBeDefined {
		t.Error("clone must not share element metadata")
	}
}
