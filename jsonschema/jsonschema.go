// Package jsonschema projects inferred context structures onto JSON Schema
// (Draft 4), for form rendering or input validation.
package jsonschema

import (
	"encoding/json"
	"sort"

	"github.com/tmplschema/tmplschema/shape"
)

// Options modulates the projection.
type Options struct {
	// TupleItems emits tuples as per-slot "items" arrays instead of the
	// homogeneous anyOf projection.
	TupleItems bool
}

// Encode returns the schema of an inferred context as a nested object tree.
func Encode(d *shape.Dict) map[string]interface{} {
	return Options{}.Encode(d)
}

// Marshal returns the schema as a compact serialized string.
func Marshal(d *shape.Dict) (string, error) {
	return Options{}.Marshal(d)
}

// Encode returns the schema as a nested object tree.
func (o Options) Encode(d *shape.Dict) map[string]interface{} {
	return o.encode(d)
}

// Marshal returns the schema as a compact serialized string.
func (o Options) Marshal(d *shape.Dict) (string, error) {
	var b, err = json.Marshal(o.encode(d))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var anyScalar = []interface{}{
	map[string]interface{}{"type": "string"},
	map[string]interface{}{"type": "number"},
	map[string]interface{}{"type": "boolean"},
	map[string]interface{}{"type": "null"},
}

func (o Options) encode(s shape.Shape) map[string]interface{} {
	var rv = make(map[string]interface{})
	if label := s.Meta().Label; label != "" {
		rv["title"] = label
	}

	switch s := s.(type) {
	case *shape.Unknown:
		rv["anyOf"] = anyScalar

	case *shape.Scalar:
		switch s.Prim {
		case shape.PrimString:
			rv["type"] = "string"
		case shape.PrimNumber:
			rv["type"] = "number"
		case shape.PrimBool:
			rv["type"] = "boolean"
		case shape.PrimNull:
			rv["type"] = "null"
		default:
			rv["anyOf"] = anyScalar
		}

	case *shape.List:
		rv["type"] = "array"
		rv["items"] = o.encode(s.Elem)

	case *shape.Tuple:
		rv["type"] = "array"
		if o.TupleItems {
			var items = make([]interface{}, len(s.Items))
			for i, item := range s.Items {
				items[i] = o.encode(item)
			}
			rv["items"] = items
		} else {
			var variants = make([]interface{}, len(s.Items))
			for i, item := range s.Items {
				variants[i] = o.encode(item)
			}
			rv["items"] = map[string]interface{}{"anyOf": variants}
		}

	case *shape.Dict:
		rv["type"] = "object"
		var properties = make(map[string]interface{}, len(s.Fields))
		var required []string
		for _, name := range s.Keys() {
			properties[name] = o.encode(s.Fields[name])
			if s.Fields[name].Meta().Required() {
				required = append(required, name)
			}
		}
		rv["properties"] = properties
		if len(required) > 0 {
			sort.Strings(required)
			rv["required"] = required
		}
	}
	return rv
}
