package shape

import "testing"

func mustMerge(t *testing.T, a, b Shape) Shape {
	t.Helper()
	rv, err := Merge(a, b)
	if err != nil {
		t.Fatalf("merge(%s, %s): %v", a, b, err)
	}
	return rv
}

func sampleShapes() []Shape {
	return []Shape{
		NewUnknown(""),
		NewScalar(""),
		NewList(NewScalar("")),
		NewList(NewUnknown("")),
		NewDict(map[string]Shape{"a": NewScalar("")}),
		NewDict(map[string]Shape{"a": NewScalar(""), "b": NewList(NewUnknown(""))}),
		NewTuple([]Shape{NewScalar(""), NewUnknown("")}),
	}
}

func TestMergeIdempotent(t *testing.T) {
	for _, s := range sampleShapes() {
		if got := mustMerge(t, s, s.Clone()); !Equal(got, s) {
			t.Errorf("merge(%s, %s) = %s, expected the operand itself", s, s, got)
		}
	}
}

func TestMergeCommutative(t *testing.T) {
	var shapes = sampleShapes()
	for _, a := range shapes {
		for _, b := range shapes {
			ab, err1 := Merge(a.Clone(), b.Clone())
			ba, err2 := Merge(b.Clone(), a.Clone())
			if (err1 == nil) != (err2 == nil) {
				t.Errorf("merge(%s, %s) errs asymmetrically: %v vs %v", a, b, err1, err2)
				continue
			}
			if err1 != nil {
				continue
			}
			if !Equal(ab, ba) {
				t.Errorf("merge(%s, %s) = %s but merge reversed = %s", a, b, ab, ba)
			}
		}
	}
}

func TestMergeAssociative(t *testing.T) {
	var shapes = []Shape{
		NewUnknown(""),
		NewDict(map[string]Shape{"a": NewScalar("")}),
		NewDict(map[string]Shape{"b": NewList(NewUnknown(""))}),
	}
	for _, a := range shapes {
		for _, b := range shapes {
			for _, c := range shapes {
				ab := mustMerge(t, a.Clone(), b.Clone())
				left := mustMerge(t, ab, c.Clone())
				bc := mustMerge(t, b.Clone(), c.Clone())
				right := mustMerge(t, a.Clone(), bc)
				if !Equal(left, right) {
					t.Errorf("merge not associative over (%s, %s, %s): %s vs %s", a, b, c, left, right)
				}
			}
		}
	}
}

func TestMergeUnknownIdentity(t *testing.T) {
	for _, s := range sampleShapes() {
		if got := mustMerge(t, NewUnknown(""), s.Clone()); !Equal(got, s) {
			t.Errorf("merge(<unknown>, %s) = %s", s, got)
		}
		if got := mustMerge(t, s.Clone(), NewUnknown("")); !Equal(got, s) {
			t.Errorf("merge(%s, <unknown>) = %s", s, got)
		}
	}
}

func TestMergeScalars(t *testing.T) {
	// an unrefined scalar takes on the other side's refinement
	var got = mustMerge(t, NewScalar(""), NewPrim(PrimString, ""))
	if got.(*Scalar).Prim != PrimString {
		t.Errorf("merge(scalar, string) should keep the refinement, got %s", got)
	}

	// distinct refinements conflict
	if _, err := Merge(NewPrim(PrimString, ""), NewPrim(PrimNumber, "")); err == nil {
		t.Error("merge(string, number) should fail")
	}
}

func TestMergeConstants(t *testing.T) {
	var a = NewPrim(PrimNumber, "")
	a.Constant, a.Value = true, "1"
	var b = NewPrim(PrimNumber, "")
	b.Constant, b.Value = true, "1"
	var got = mustMerge(t, a, b).(*Scalar)
	if got.Value != "1" {
		t.Errorf("same-literal constants should remain constant, got %q", got.Value)
	}

	var c = NewPrim(PrimNumber, "")
	c.Constant, c.Value = true, "2"
	got = mustMerge(t, a.Clone(), c).(*Scalar)
	if got.Value != "" {
		t.Errorf("different literals should lose the constant value, got %q", got.Value)
	}
}

func TestMergeLinenosUnion(t *testing.T) {
	var a = NewScalar("x", 3, 1)
	var b = NewScalar("x", 2, 3)
	var got = mustMerge(t, a, b)
	var lines = got.Meta().Linenos
	if len(lines) != 3 || lines[0] != 1 || lines[1] != 2 || lines[2] != 3 {
		t.Errorf("linenos should union sorted, got %v", lines)
	}
}

func TestMergeLists(t *testing.T) {
	var got = mustMerge(t,
		NewList(NewDict(map[string]Shape{"a": NewScalar("")})),
		NewList(NewDict(map[string]Shape{"b": NewScalar("")})))
	if got.String() != "[{a: <scalar>, b: <scalar>}]" {
		t.Errorf("list elements should merge recursively, got %s", got)
	}
}

func TestMergeTuples(t *testing.T) {
	var got = mustMerge(t,
		NewTuple([]Shape{NewUnknown(""), NewScalar("")}),
		NewTuple([]Shape{NewScalar(""), NewUnknown("")}))
	if got.String() != "(<scalar>, <scalar>)" {
		t.Errorf("tuples should merge pairwise, got %s", got)
	}

	if _, err := Merge(
		NewTuple([]Shape{NewScalar("")}),
		NewTuple([]Shape{NewScalar(""), NewScalar("")})); err == nil {
		t.Error("tuple arity mismatch should fail")
	}
}

func TestMergeTupleIntoList(t *testing.T) {
	var got = mustMerge(t,
		NewTuple([]Shape{NewScalar(""), NewScalar("")}),
		NewList(NewUnknown("")))
	if got.String() != "[<scalar>]" {
		t.Errorf("tuples should weaken into lists, got %s", got)
	}
}

func TestMergeDictsWeak(t *testing.T) {
	var a = NewDict(map[string]Shape{"common": NewScalar(""), "onlyA": NewScalar("")})
	var b = NewDict(map[string]Shape{"common": NewScalar("")})

	strict := mustMerge(t, a.Clone().(*Dict), b.Clone().(*Dict)).(*Dict)
	if !strict.Fields["onlyA"].Meta().Required() {
		t.Error("strict merge must keep single-side keys required")
	}

	weak, err := MergeWeak(a, b)
	if err != nil {
		t.Fatal(err)
	}
	var fields = weak.(*Dict).Fields
	if fields["onlyA"].Meta().Required() {
		t.Error("weak merge must make single-side keys optional")
	}
	if !fields["common"].Meta().Required() {
		t.Error("weak merge must keep common keys required")
	}
}

func TestMergeConflicts(t *testing.T) {
	tests := []struct {
		name string
		a, b Shape
	}{
		{"scalar vs dict", NewScalar("x", 1), NewDict(map[string]Shape{"a": NewScalar("")}, 2)},
		{"scalar vs list", NewScalar(""), NewList(NewUnknown(""))},
		{"list vs dict", NewList(NewUnknown("")), NewDict(nil)},
	}
	for _, test := range tests {
		_, err := Merge(test.a, test.b)
		if err == nil {
			t.Errorf("%s: expected a merge error", test.name)
			continue
		}
		if _, ok := err.(*MergeError); !ok {
			t.Errorf("%s: expected *MergeError, got %T", test.name, err)
		}
	}
}

func TestMergeErrorLinenos(t *testing.T) {
	var a = NewScalar("x", 1)
	var b = NewDict(map[string]Shape{"name": NewScalar("")}, 2)
	b.Label = "x"
	_, err := Merge(a, b)
	me, ok := err.(*MergeError)
	if !ok {
		t.Fatalf("expected *MergeError, got %T", err)
	}
	var lines = me.Linenos()
	if len(lines) != 2 || lines[0] != 1 || lines[1] != 2 {
		t.Errorf("merge error should carry both line sets, got %v", lines)
	}
}

func TestMergeExtendScalar(t *testing.T) {
	var dict = NewDict(map[string]Shape{"name": NewScalar("")})
	got, err := MergeWith(NewScalar(""), dict, Opts{ExtendScalar: true})
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind() != KindDict {
		t.Errorf("extended scalar should become a dictionary, got %s", got)
	}
}
