package infer

// InputKind constrains what a filter requires its left operand to be.
type InputKind int

const (
	InputAny InputKind = iota
	InputScalar
	InputString
	InputNumber
	InputList
	InputDict
)

// ElemKind constrains the elements of a list-accepting filter's input.
type ElemKind int

const (
	ElemAny ElemKind = iota
	ElemScalar
	ElemString
	ElemNumber
)

// ResultKind describes what a filter produces.
type ResultKind int

const (
	// ResultScalar and friends produce a fresh scalar regardless of input.
	ResultScalar ResultKind = iota
	ResultString
	ResultNumber

	// ResultSame passes the outer expectation through to the input.
	ResultSame

	// ResultElement produces one element of the input list (first, last).
	ResultElement

	// ResultList produces a list; the input is the same list, constrained by
	// the outer expectation.
	ResultList

	// ResultPartition produces a list of lists of the input's elements
	// (batch, slice).
	ResultPartition

	// ResultDictToList consumes a dictionary and produces a list of
	// key/value pairs (dictsort).
	ResultDictToList

	// ResultChars consumes a scalar and produces a list of its pieces (the
	// list filter).  The input is expected to be a scalar, so a list input
	// conflicts.
	ResultChars

	// ResultDefault passes the input through while supplying a fallback,
	// flipping the input's required flag (the default filter).
	ResultDefault

	// ResultAttr is dynamic attribute access (the attr filter).
	ResultAttr
)

// ArgKind declares the expected structure of one filter argument.
type ArgKind int

const (
	ArgAny ArgKind = iota
	ArgScalar
	ArgString
	ArgNumber
	ArgBool
)

// FilterSignature declares how a filter constrains its input and what it
// produces.  The builtin table covers the common filters; unknown
// filters degrade to an unconstrained input and an unknown result.
type FilterSignature struct {
	Name   string
	Input  InputKind
	Elem   ElemKind
	Result ResultKind
	Args   []ArgKind
}

var builtinFilters = []*FilterSignature{
	{"abs", InputNumber, ElemAny, ResultNumber, nil},
	{"attr", InputAny, ElemAny, ResultAttr, []ArgKind{ArgString}},
	{"batch", InputList, ElemAny, ResultPartition, []ArgKind{ArgNumber, ArgAny}},
	{"capitalize", InputString, ElemAny, ResultString, nil},
	{"center", InputString, ElemAny, ResultString, []ArgKind{ArgNumber}},
	{"default", InputAny, ElemAny, ResultDefault, []ArgKind{ArgAny, ArgBool}},
	{"d", InputAny, ElemAny, ResultDefault, []ArgKind{ArgAny, ArgBool}},
	{"dictsort", InputDict, ElemAny, ResultDictToList, []ArgKind{ArgBool, ArgString}},
	{"e", InputString, ElemAny, ResultString, nil},
	{"escape", InputString, ElemAny, ResultString, nil},
	{"filesizeformat", InputNumber, ElemAny, ResultString, []ArgKind{ArgBool}},
	{"first", InputList, ElemAny, ResultElement, nil},
	{"float", InputNumber, ElemAny, ResultNumber, []ArgKind{ArgNumber}},
	{"forceescape", InputString, ElemAny, ResultString, nil},
	{"format", InputString, ElemAny, ResultString, []ArgKind{ArgAny}},
	{"groupby", InputList, ElemAny, ResultList, []ArgKind{ArgString}},
	{"indent", InputString, ElemAny, ResultString, []ArgKind{ArgNumber, ArgBool}},
	{"int", InputNumber, ElemAny, ResultNumber, []ArgKind{ArgNumber, ArgNumber}},
	{"join", InputList, ElemString, ResultString, []ArgKind{ArgScalar, ArgString}},
	{"last", InputList, ElemAny, ResultElement, nil},
	{"length", InputList, ElemAny, ResultNumber, nil},
	{"count", InputList, ElemAny, ResultNumber, nil},
	{"list", InputAny, ElemAny, ResultChars, nil},
	{"lower", InputString, ElemAny, ResultString, nil},
	{"map", InputList, ElemAny, ResultList, []ArgKind{ArgString}},
	{"max", InputList, ElemAny, ResultElement, nil},
	{"min", InputList, ElemAny, ResultElement, nil},
	{"pprint", InputAny, ElemAny, ResultSame, nil},
	{"random", InputList, ElemAny, ResultElement, nil},
	{"reject", InputList, ElemAny, ResultList, []ArgKind{ArgString}},
	{"rejectattr", InputList, ElemAny, ResultList, []ArgKind{ArgString}},
	{"replace", InputString, ElemAny, ResultString, []ArgKind{ArgString, ArgString, ArgNumber}},
	{"reverse", InputList, ElemAny, ResultList, nil},
	{"round", InputNumber, ElemAny, ResultNumber, []ArgKind{ArgNumber, ArgString}},
	{"safe", InputString, ElemAny, ResultString, nil},
	{"select", InputList, ElemAny, ResultList, []ArgKind{ArgString}},
	{"selectattr", InputList, ElemAny, ResultList, []ArgKind{ArgString}},
	{"slice", InputList, ElemAny, ResultPartition, []ArgKind{ArgNumber, ArgAny}},
	{"sort", InputList, ElemAny, ResultList, []ArgKind{ArgBool, ArgBool, ArgString}},
	{"string", InputScalar, ElemAny, ResultString, nil},
	{"striptags", InputString, ElemAny, ResultString, nil},
	{"sum", InputList, ElemNumber, ResultNumber, []ArgKind{ArgString, ArgNumber}},
	{"title", InputString, ElemAny, ResultString, nil},
	{"trim", InputString, ElemAny, ResultString, nil},
	{"truncate", InputString, ElemAny, ResultString, []ArgKind{ArgNumber, ArgBool, ArgString}},
	{"unique", InputList, ElemAny, ResultList, nil},
	{"upper", InputString, ElemAny, ResultString, nil},
	{"urlencode", InputString, ElemAny, ResultString, nil},
	{"urlize", InputString, ElemAny, ResultString, []ArgKind{ArgNumber, ArgBool}},
	{"wordcount", InputString, ElemAny, ResultNumber, nil},
	{"wordwrap", InputString, ElemAny, ResultString, []ArgKind{ArgNumber, ArgBool}},
	{"xmlattr", InputDict, ElemAny, ResultString, []ArgKind{ArgBool}},
}

var builtinFilterByName = make(map[string]*FilterSignature)

func init() {
	for _, sig := range builtinFilters {
		builtinFilterByName[sig.Name] = sig
	}
}

// filterSignature resolves a filter name against the builtin registry and the
// configured custom filters.  Custom filters shadow builtins.
func (e *engine) filterSignature(name string) *FilterSignature {
	if sig, ok := e.cfg.CustomFilters[name]; ok {
		return sig
	}
	return builtinFilterByName[name]
}

// Tests ----------

// scalarTests constrain the tested value to a scalar; all other known tests
// leave it unconstrained and record no kind hint about it.
var scalarTests = map[string]bool{
	"divisibleby": true,
	"escaped":     true,
	"even":        true,
	"lower":       true,
	"odd":         true,
	"upper":       true,
}

var knownTests = map[string]bool{
	"defined":     true,
	"undefined":   true,
	"equalto":     true,
	"eq":          true,
	"iterable":    true,
	"mapping":     true,
	"none":        true,
	"number":      true,
	"sameas":      true,
	"sequence":    true,
	"string":      true,
	"boolean":     true,
	"callable":    true,
	"divisibleby": true,
	"escaped":     true,
	"even":        true,
	"lower":       true,
	"odd":         true,
	"upper":       true,
}
