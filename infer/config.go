// Package infer implements the bidirectional type analyzer that derives the
// structure of the context expected by a template.
package infer

import (
	"fmt"

	"github.com/tmplschema/tmplschema/shape"
)

// IndexedType selects the kind attributed to a variable that is subscripted.
type IndexedType string

const (
	IndexedList       IndexedType = "list"
	IndexedTuple      IndexedType = "tuple"
	IndexedDictionary IndexedType = "dictionary"
	IndexedAny        IndexedType = "any"
)

// Loader resolves a template name to its source, for {% include %},
// {% import %} and {% extends %}.  A Loader must be safe for reuse; it is the
// only I/O the analyzer performs.
type Loader func(name string) (src string, ok bool)

// Config modulates inference.
type Config struct {
	// TypeOfIntIndexed is the kind attributed to x[0] when the index is an
	// integer literal: list, tuple, dictionary or any.
	TypeOfIntIndexed IndexedType

	// TypeOfVarIndexed is the kind attributed to x[i] when the index is
	// itself a variable: list, dictionary or any.
	TypeOfVarIndexed IndexedType

	// PackageObjectCanBeExtended treats a name used as both scalar and
	// dictionary as a dictionary extending the scalar instead of a conflict.
	PackageObjectCanBeExtended bool

	// RaiseOnInvalidFilterArgument reports unknown filters and malformed
	// filter arguments as errors instead of relaxing them.
	RaiseOnInvalidFilterArgument bool

	// BooleanConditions requires operands of and/or/not and if-conditions to
	// be scalars.  When unset, not operands and if-conditions are
	// unconstrained and and/or operands take the expectation of their
	// position.
	BooleanConditions bool

	// CustomFilters extends the builtin filter registry.
	CustomFilters map[string]*FilterSignature

	// Loader supplies the sources of included, imported and extended
	// templates.  A nil Loader makes those statements contribute nothing.
	Loader Loader

	// MaxDepth bounds include/extends recursion.
	MaxDepth int
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		TypeOfIntIndexed: IndexedList,
		TypeOfVarIndexed: IndexedDictionary,
		MaxDepth:         50,
	}
}

func (c *Config) validate() error {
	switch c.TypeOfIntIndexed {
	case IndexedList, IndexedTuple, IndexedDictionary, IndexedAny:
	default:
		return fmt.Errorf("infer: TypeOfIntIndexed must be list, tuple, dictionary or any; got %q", c.TypeOfIntIndexed)
	}
	switch c.TypeOfVarIndexed {
	case IndexedList, IndexedDictionary, IndexedAny:
	default:
		return fmt.Errorf("infer: TypeOfVarIndexed must be list, dictionary or any; got %q", c.TypeOfVarIndexed)
	}
	return nil
}

func (c *Config) mergeOpts() shape.Opts {
	return shape.Opts{ExtendScalar: c.PackageObjectCanBeExtended}
}
