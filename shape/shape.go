// Package shape defines the structural types inferred for template context
// variables, and the merge algebra that combines evidence about them.
package shape

import (
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the structural variant of a Shape.
type Kind int

const (
	KindUnknown Kind = iota
	KindScalar
	KindList
	KindTuple
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindDict:
		return "dictionary"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Prim is the primitive refinement of a Scalar.
type Prim int

const (
	PrimAny Prim = iota
	PrimString
	PrimNumber
	PrimBool
	PrimNull
)

func (p Prim) String() string {
	switch p {
	case PrimString:
		return "string"
	case PrimNumber:
		return "number"
	case PrimBool:
		return "boolean"
	case PrimNull:
		return "null"
	}
	return "scalar"
}

// MetaInfo carries the evidence attached to every structural value.
type MetaInfo struct {
	Label   string // best-effort human name, for diagnostics and schema titles
	Linenos []int  // sorted unique source lines where evidence was observed

	Constant bool // statically determined from literals only

	// The flags below derive Required: a variable with any of them set does
	// not have to be present in the external context.
	MayBeDefined       bool // assigned on a path that does not cover all branches
	UsedWithDefault    bool // occurs only under the default filter
	CheckedAsDefined   bool // guarded by an "is defined" test
	CheckedAsUndefined bool // guarded by an "is undefined" test
}

// Required reports whether the variable must be present in the context.
func (m *MetaInfo) Required() bool {
	return !(m.MayBeDefined || m.UsedWithDefault || m.CheckedAsDefined || m.CheckedAsUndefined)
}

// Meta returns the metadata record itself, so that every variant embedding it
// satisfies the Shape interface for free.
func (m *MetaInfo) Meta() *MetaInfo {
	return m
}

// AddLine records a source line as evidence.
func (m *MetaInfo) AddLine(line int) {
	m.Linenos = unionLines(m.Linenos, []int{line})
}

func unionLines(a, b []int) []int {
	var seen = make(map[int]bool, len(a)+len(b))
	var out []int
	for _, ls := range [][]int{a, b} {
		for _, l := range ls {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	sort.Ints(out)
	return out
}

// Shape is a structural type inferred for a context variable.  It is one of
// Unknown, Scalar, List, Tuple or Dict.
type Shape interface {
	Kind() Kind
	Meta() *MetaInfo
	Clone() Shape

	// String returns the pretty representation used by diagnostics:
	// <unknown>, <scalar> (or the primitive name), [elem], {field: ...}.
	String() string
}

// Shape variants
type (
	// Unknown is a variable about which there is no structural evidence yet.
	Unknown struct {
		MetaInfo
	}

	// Scalar is a string, number, boolean or null.  Prim narrows it when a
	// literal fixed the primitive.
	Scalar struct {
		MetaInfo
		Prim  Prim
		Value string // literal source text when Constant
	}

	// List is a homogeneous list; Elem is the merged element structure.
	List struct {
		MetaInfo
		Elem Shape
	}

	// Tuple is a fixed-arity sequence with per-slot structure.  MayGrow
	// permits pairwise merges with longer tuples; tuple literal checks and
	// integer subscripts under the tuple indexing option set it.
	Tuple struct {
		MetaInfo
		Items   []Shape
		MayGrow bool
	}

	// Dict maps field names to structures.
	Dict struct {
		MetaInfo
		Fields map[string]Shape
	}
)

func (u *Unknown) Kind() Kind { return KindUnknown }
func (s *Scalar) Kind() Kind  { return KindScalar }
func (l *List) Kind() Kind    { return KindList }
func (t *Tuple) Kind() Kind   { return KindTuple }
func (d *Dict) Kind() Kind    { return KindDict }

// Constructors ----------

// NewUnknown returns an Unknown observed on the given line.
func NewUnknown(label string, lines ...int) *Unknown {
	return &Unknown{MetaInfo: MetaInfo{Label: label, Linenos: unionLines(nil, lines)}}
}

// NewScalar returns an unrefined Scalar observed on the given line.
func NewScalar(label string, lines ...int) *Scalar {
	return &Scalar{MetaInfo: MetaInfo{Label: label, Linenos: unionLines(nil, lines)}}
}

// NewPrim returns a Scalar refined to the given primitive.
func NewPrim(p Prim, label string, lines ...int) *Scalar {
	return &Scalar{MetaInfo: MetaInfo{Label: label, Linenos: unionLines(nil, lines)}, Prim: p}
}

// NewList returns a List with the given element structure.
func NewList(elem Shape, lines ...int) *List {
	return &List{MetaInfo: MetaInfo{Linenos: unionLines(nil, lines)}, Elem: elem}
}

// NewTuple returns a Tuple with the given item structures.
func NewTuple(items []Shape, lines ...int) *Tuple {
	return &Tuple{MetaInfo: MetaInfo{Linenos: unionLines(nil, lines)}, Items: items}
}

// NewDict returns a Dict with the given fields.  A nil map is replaced by an
// empty one.
func NewDict(fields map[string]Shape, lines ...int) *Dict {
	if fields == nil {
		fields = make(map[string]Shape)
	}
	return &Dict{MetaInfo: MetaInfo{Linenos: unionLines(nil, lines)}, Fields: fields}
}

// Clone ----------

func (u *Unknown) Clone() Shape {
	var c = *u
	c.Linenos = append([]int(nil), u.Linenos...)
	return &c
}

func (s *Scalar) Clone() Shape {
	var c = *s
	c.Linenos = append([]int(nil), s.Linenos...)
	return &c
}

func (l *List) Clone() Shape {
	var c = *l
	c.Linenos = append([]int(nil), l.Linenos...)
	c.Elem = l.Elem.Clone()
	return &c
}

func (t *Tuple) Clone() Shape {
	var c = *t
	c.Linenos = append([]int(nil), t.Linenos...)
	c.Items = make([]Shape, len(t.Items))
	for i, item := range t.Items {
		c.Items[i] = item.Clone()
	}
	return &c
}

func (d *Dict) Clone() Shape {
	var c = *d
	c.Linenos = append([]int(nil), d.Linenos...)
	c.Fields = make(map[string]Shape, len(d.Fields))
	for k, v := range d.Fields {
		c.Fields[k] = v.Clone()
	}
	return &c
}

// String ----------

func (u *Unknown) String() string { return "<unknown>" }

func (s *Scalar) String() string {
	if s.Constant && s.Value != "" {
		return s.Value
	}
	return "<" + s.Prim.String() + ">"
}

func (l *List) String() string {
	return "[" + l.Elem.String() + "]"
}

func (t *Tuple) String() string {
	var items = make([]string, len(t.Items))
	for i, item := range t.Items {
		items[i] = item.String()
	}
	return "(" + strings.Join(items, ", ") + ")"
}

func (d *Dict) String() string {
	var keys = d.Keys()
	var items = make([]string, len(keys))
	for i, k := range keys {
		items[i] = k + ": " + d.Fields[k].String()
	}
	return "{" + strings.Join(items, ", ") + "}"
}

// Dict helpers ----------

// Keys returns the field names in sorted order.
func (d *Dict) Keys() []string {
	var keys = make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Field returns the named field, or nil.
func (d *Dict) Field(name string) Shape {
	return d.Fields[name]
}

// Set binds a field.
func (d *Dict) Set(name string, s Shape) {
	d.Fields[name] = s
}

// Equal ----------

// Equal reports whether two shapes describe the same structure.  It ignores
// line evidence but compares kinds, primitive refinements, constancy and the
// derived required flag, recursively.
func Equal(a, b Shape) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	am, bm := a.Meta(), b.Meta()
	if am.Required() != bm.Required() || am.Constant != bm.Constant {
		return false
	}
	switch a := a.(type) {
	case *Unknown:
		return true
	case *Scalar:
		return a.Prim == b.(*Scalar).Prim
	case *List:
		return Equal(a.Elem, b.(*List).Elem)
	case *Tuple:
		bt := b.(*Tuple)
		if len(a.Items) != len(bt.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], bt.Items[i]) {
				return false
			}
		}
		return true
	case *Dict:
		bd := b.(*Dict)
		if len(a.Fields) != len(bd.Fields) {
			return false
		}
		for k, v := range a.Fields {
			bv, ok := bd.Fields[k]
			if !ok || !Equal(v, bv) {
				return false
			}
		}
		return true
	}
	return false
}
