package shape

import "fmt"

// MergeError reports a single name used in incompatible roles.  It carries
// both conflicting shapes so callers can surface the line evidence of each.
type MergeError struct {
	Fst, Snd Shape
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("%s (used as %s on lines %v) conflicts with %s (used as %s on lines %v)",
		labelOf(e.Fst), e.Fst.Kind(), e.Fst.Meta().Linenos,
		labelOf(e.Snd), e.Snd.Kind(), e.Snd.Meta().Linenos)
}

// Linenos returns the union of both operands' line evidence.
func (e *MergeError) Linenos() []int {
	return unionLines(e.Fst.Meta().Linenos, e.Snd.Meta().Linenos)
}

func labelOf(s Shape) string {
	if l := s.Meta().Label; l != "" {
		return fmt.Sprintf("variable %q", l)
	}
	return "unnamed variable"
}

// Opts modulates merging.
type Opts struct {
	// Weak marks the merge as a conditional join: a dictionary key present in
	// only one operand becomes optional in the result.
	Weak bool

	// ExtendScalar permits merging a Scalar with a Dict, producing the Dict.
	ExtendScalar bool
}

// Merge combines two compatible shapes, failing with a *MergeError on
// incompatible ones.  It is the strict form used when both sides must agree
// unconditionally.  Neither operand is mutated.
func Merge(a, b Shape) (Shape, error) {
	return MergeWith(a, b, Opts{})
}

// MergeWeak combines two shapes at a conditional join: dictionary keys present
// on one side only become optional.
func MergeWeak(a, b Shape) (Shape, error) {
	return MergeWith(a, b, Opts{Weak: true})
}

// MergeWith combines two shapes under the given options.
func MergeWith(a, b Shape, o Opts) (Shape, error) {
	result, err := mergeStructure(a, b, o)
	if err != nil {
		return nil, err
	}
	mergeMeta(result.Meta(), a, b)
	return result, nil
}

func mergeStructure(a, b Shape, o Opts) (Shape, error) {
	if _, ok := a.(*Unknown); ok {
		return b.Clone(), nil
	}
	if _, ok := b.(*Unknown); ok {
		return a.Clone(), nil
	}

	switch a := a.(type) {
	case *Scalar:
		if bs, ok := b.(*Scalar); ok {
			return mergeScalars(a, bs)
		}
		if bd, ok := b.(*Dict); ok && o.ExtendScalar {
			return bd.Clone(), nil
		}
	case *List:
		switch b := b.(type) {
		case *List:
			elem, err := MergeWith(a.Elem, b.Elem, o)
			if err != nil {
				return nil, err
			}
			return &List{Elem: elem}, nil
		case *Tuple:
			// symmetric to the Tuple/List case below
			return foldTupleIntoList(b, a, o)
		}
	case *Tuple:
		switch b := b.(type) {
		case *Tuple:
			return mergeTuples(a, b, o)
		case *List:
			return foldTupleIntoList(a, b, o)
		}
	case *Dict:
		switch b := b.(type) {
		case *Dict:
			return mergeDicts(a, b, o)
		case *Scalar:
			if o.ExtendScalar {
				return a.Clone(), nil
			}
		}
	}
	return nil, &MergeError{a, b}
}

// mergeScalars keeps the more specific primitive.  Two distinct refinements
// conflict; two constants of different literal value lose constancy.
func mergeScalars(a, b *Scalar) (Shape, error) {
	var result = &Scalar{}
	switch {
	case a.Prim == b.Prim:
		result.Prim = a.Prim
	case a.Prim == PrimAny:
		result.Prim = b.Prim
	case b.Prim == PrimAny:
		result.Prim = a.Prim
	default:
		return nil, &MergeError{a, b}
	}
	if a.Constant && b.Constant && a.Value == b.Value {
		result.Value = a.Value
	}
	return result, nil
}

func mergeTuples(a, b *Tuple, o Opts) (Shape, error) {
	if len(a.Items) != len(b.Items) {
		if !(a.MayGrow || b.MayGrow) {
			return nil, &MergeError{a, b}
		}
	}
	var short, long = a, b
	if len(a.Items) > len(b.Items) {
		short, long = b, a
	}
	var items = make([]Shape, len(long.Items))
	for i, item := range long.Items {
		if i < len(short.Items) {
			merged, err := MergeWith(short.Items[i], item, o)
			if err != nil {
				return nil, err
			}
			items[i] = merged
		} else {
			items[i] = item.Clone()
		}
	}
	return &Tuple{Items: items, MayGrow: a.MayGrow && b.MayGrow}, nil
}

// foldTupleIntoList weakens a tuple into a homogeneous list by folding its
// items into the list element.
func foldTupleIntoList(t *Tuple, l *List, o Opts) (Shape, error) {
	var elem = l.Elem
	for _, item := range t.Items {
		merged, err := MergeWith(elem, item, o)
		if err != nil {
			return nil, &MergeError{t, l}
		}
		elem = merged
	}
	return &List{Elem: elem}, nil
}

func mergeDicts(a, b *Dict, o Opts) (Shape, error) {
	var fields = make(map[string]Shape, len(a.Fields)+len(b.Fields))
	for k, av := range a.Fields {
		if bv, ok := b.Fields[k]; ok {
			merged, err := MergeWith(av, bv, o)
			if err != nil {
				return nil, err
			}
			fields[k] = merged
		} else {
			fields[k] = absentSide(av, o)
		}
	}
	for k, bv := range b.Fields {
		if _, ok := a.Fields[k]; !ok {
			fields[k] = absentSide(bv, o)
		}
	}
	return &Dict{Fields: fields}, nil
}

// absentSide clones a field present in only one operand.  Under a weak merge
// the other side is a proven branch, so the field becomes optional.
func absentSide(s Shape, o Opts) Shape {
	var c = s.Clone()
	if o.Weak {
		c.Meta().MayBeDefined = true
	}
	return c
}

// mergeMeta unions the evidence of both operands into m.  Label comes from
// the first operand that has one; linenos union.  When exactly one operand is
// Unknown, constancy and definedness come from the other operand.  Otherwise
// they follow the first operand (the one whose evidence occurred earlier),
// except that two constant scalars of different literal value lose constancy
// and UsedWithDefault requires every occurrence to carry a default.  The
// definedness checks always accumulate.
func mergeMeta(m *MetaInfo, a, b Shape) {
	am, bm := a.Meta(), b.Meta()
	m.Label = am.Label
	if m.Label == "" {
		m.Label = bm.Label
	}
	m.Linenos = unionLines(am.Linenos, bm.Linenos)

	_, aUnknown := a.(*Unknown)
	_, bUnknown := b.(*Unknown)
	switch {
	case aUnknown && !bUnknown:
		m.Constant = bm.Constant
		m.MayBeDefined = bm.MayBeDefined
		m.UsedWithDefault = bm.UsedWithDefault
	case bUnknown && !aUnknown:
		m.Constant = am.Constant
		m.MayBeDefined = am.MayBeDefined
		m.UsedWithDefault = am.UsedWithDefault
	default:
		m.Constant = am.Constant
		m.MayBeDefined = am.MayBeDefined
		m.UsedWithDefault = am.UsedWithDefault && bm.UsedWithDefault
	}
	if as, ok := a.(*Scalar); ok {
		if bs, ok := b.(*Scalar); ok && as.Constant && bs.Constant && as.Value != bs.Value {
			m.Constant = false
		}
	}
	m.CheckedAsDefined = am.CheckedAsDefined || bm.CheckedAsDefined
	m.CheckedAsUndefined = am.CheckedAsUndefined || bm.CheckedAsUndefined
}

// MergeDicts merges two scope fragments pointwise.  It is a convenience
// wrapper used by visitors, always producing a *Dict.
func MergeDicts(a, b *Dict, o Opts) (*Dict, error) {
	merged, err := MergeWith(a, b, o)
	if err != nil {
		return nil, err
	}
	return merged.(*Dict), nil
}
