package tmplschema

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/tmplschema/tmplschema/errortypes"
	"github.com/tmplschema/tmplschema/infer"
	"github.com/tmplschema/tmplschema/shape"
)

func TestInferConflictCarriesLines(t *testing.T) {
	_, err := Infer("{{ x }}\n{{ x.name }}")
	if err == nil {
		t.Fatal("expected a merge conflict")
	}
	if !errortypes.IsErrLines(err) {
		t.Fatalf("conflict errors should carry line evidence, got %T", err)
	}
	lines := errortypes.ToErrLines(err).Linenos()
	if len(lines) != 2 || lines[0] != 1 || lines[1] != 2 {
		t.Errorf("expected lines [1 2], got %v", lines)
	}
}

func TestInfer(t *testing.T) {
	d, err := Infer(`Hello {{ user.name }}! You have {{ messages|length }} messages.`)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.String(); got != `{messages: [<unknown>], user: {name: <scalar>}}` {
		t.Errorf("inferred %s", got)
	}
}

func TestInferWithConfig(t *testing.T) {
	var cfg = infer.DefaultConfig()
	cfg.TypeOfVarIndexed = infer.IndexedList
	d, err := Infer(`{{ xs[i] }}`, WithConfig(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if got := d.String(); got != `{i: <scalar>, xs: [<scalar>]}` {
		t.Errorf("inferred %s", got)
	}
}

func TestInferWithLoader(t *testing.T) {
	var loader = func(name string) (string, bool) {
		if name == "partial.html" {
			return `{{ a }}`, true
		}
		return "", false
	}
	d, err := Infer(`{% include 'partial.html' %}`, WithLoader(loader))
	if err != nil {
		t.Fatal(err)
	}
	if got := d.String(); got != `{a: <scalar>}` {
		t.Errorf("inferred %s", got)
	}
}

func TestInferSchema(t *testing.T) {
	schema, err := InferSchema(`{{ n|round }}`)
	if err != nil {
		t.Fatal(err)
	}
	var props = schema["properties"].(map[string]interface{})
	var n = props["n"].(map[string]interface{})
	if n["type"] != "number" {
		t.Errorf("expected a number schema for n, got %v", n)
	}
}

func TestInferParseError(t *testing.T) {
	if _, err := Infer(`{% if %}`); err == nil {
		t.Error("expected a parse error")
	}
}

func TestBundleInfer(t *testing.T) {
	var results, err = NewBundle().
		AddTemplateString("page.html", `{% extends 'base.html' %}{% block main %}{{ body }}{% endblock %}`).
		AddTemplateString("base.html", `{{ title }}`).
		Infer()
	if err != nil {
		t.Fatal(err)
	}
	if got := results["page.html"].String(); got != `{body: <scalar>, title: <scalar>}` {
		t.Errorf("page.html inferred %s", got)
	}
	if got := results["base.html"].String(); got != `{title: <scalar>}` {
		t.Errorf("base.html inferred %s", got)
	}
}

func TestBundleTemplateDir(t *testing.T) {
	dir, err := ioutil.TempDir("", "tmplschema")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	if err := ioutil.WriteFile(filepath.Join(dir, "a.html"), []byte(`{{ x }}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(filepath.Join(dir, "skip.txt"), []byte(`not a template`), 0644); err != nil {
		t.Fatal(err)
	}

	results, err := NewBundle().AddTemplateDir(dir).Infer()
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one template, got %d", len(results))
	}
	if got := results["a.html"].String(); got != `{x: <scalar>}` {
		t.Errorf("a.html inferred %s", got)
	}
}

func TestBundlePropagatesErrors(t *testing.T) {
	if _, err := NewBundle().AddTemplateFile("does-not-exist.html").Infer(); err == nil {
		t.Error("missing files should surface through the builder")
	}
	if _, err := NewBundle().AddTemplateString("bad.html", `{{ x }}{{ x.y }}`).Infer(); err == nil {
		t.Error("merge conflicts should surface from Infer")
	}
}

func TestBundleConfig(t *testing.T) {
	var cfg = infer.DefaultConfig()
	cfg.PackageObjectCanBeExtended = true
	results, err := NewBundle().
		SetConfig(cfg).
		AddTemplateString("t.html", `{{ x }}{{ x.name }}`).
		Infer()
	if err != nil {
		t.Fatal(err)
	}
	if results["t.html"].Field("x").Kind() != shape.KindDict {
		t.Errorf("config should reach the engine, got %s", results["t.html"].Field("x"))
	}
}
