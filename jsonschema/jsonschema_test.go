package jsonschema

import (
	"testing"

	"github.com/andreyvit/diff"
	"github.com/google/go-cmp/cmp"
	"github.com/tmplschema/tmplschema/shape"
)

func TestEncode(t *testing.T) {
	var name = shape.NewPrim(shape.PrimString, "name")
	var count = shape.NewPrim(shape.PrimNumber, "")
	count.MayBeDefined = true
	var ctx = shape.NewDict(map[string]shape.Shape{
		"user":  shape.NewDict(map[string]shape.Shape{"name": name}),
		"count": count,
		"tags":  shape.NewList(shape.NewScalar("")),
	})

	var expected = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"title": "name",
						"type":  "string",
					},
				},
				"required": []string{"name"},
			},
			"count": map[string]interface{}{"type": "number"},
			"tags": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"anyOf": []interface{}{
						map[string]interface{}{"type": "string"},
						map[string]interface{}{"type": "number"},
						map[string]interface{}{"type": "boolean"},
						map[string]interface{}{"type": "null"},
					},
				},
			},
		},
		"required": []string{"tags", "user"},
	}
	if d := cmp.Diff(expected, Encode(ctx)); d != "" {
		t.Errorf("schema does not match (-expected +got):\n%s", d)
	}
}

func TestEncodeUnknown(t *testing.T) {
	var got = Encode(shape.NewDict(map[string]shape.Shape{"x": shape.NewUnknown("")}))
	var props = got["properties"].(map[string]interface{})
	var x = props["x"].(map[string]interface{})
	if _, ok := x["anyOf"]; !ok {
		t.Errorf("unknown should project to the scalar union, got %v", x)
	}
}

func TestEncodeTuple(t *testing.T) {
	var tup = shape.NewTuple([]shape.Shape{
		shape.NewPrim(shape.PrimString, ""),
		shape.NewPrim(shape.PrimNumber, ""),
	})
	var ctx = shape.NewDict(map[string]shape.Shape{"pair": tup})

	var homogeneous = Encode(ctx)
	var pair = homogeneous["properties"].(map[string]interface{})["pair"].(map[string]interface{})
	if _, ok := pair["items"].(map[string]interface{}); !ok {
		t.Errorf("default tuple projection should be a single items schema, got %v", pair["items"])
	}

	var perSlot = Options{TupleItems: true}.Encode(ctx)
	pair = perSlot["properties"].(map[string]interface{})["pair"].(map[string]interface{})
	items, ok := pair["items"].([]interface{})
	if !ok || len(items) != 2 {
		t.Errorf("TupleItems projection should emit per-slot schemas, got %v", pair["items"])
	}
}

func TestMarshal(t *testing.T) {
	var ctx = shape.NewDict(map[string]shape.Shape{
		"n": shape.NewPrim(shape.PrimNumber, ""),
	})
	got, err := Marshal(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var expected = `{"properties":{"n":{"type":"number"}},"required":["n"],"type":"object"}`
	if got != expected {
		t.Errorf("serialized schema does not match:\n%s", diff.LineDiff(expected, got))
	}
}
