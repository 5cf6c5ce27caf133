package template

import "testing"

func TestRegistry(t *testing.T) {
	var r Registry
	if err := r.Add("a.html", `{{ x }}`); err != nil {
		t.Fatal(err)
	}
	if r.Template("a.html") == nil {
		t.Fatal("registered template not found")
	}
	if r.Template("b.html") != nil {
		t.Fatal("unknown template should be nil")
	}

	src, ok := r.Source("a.html")
	if !ok || src != `{{ x }}` {
		t.Errorf("Source returned %q, %v", src, ok)
	}
	if _, ok := r.Source("b.html"); ok {
		t.Error("Source of an unknown template should report a miss")
	}
}

func TestRegistryDuplicate(t *testing.T) {
	var r Registry
	if err := r.Add("a.html", ``); err != nil {
		t.Fatal(err)
	}
	if err := r.Add("a.html", ``); err == nil {
		t.Error("duplicate registration should fail")
	}
}

func TestRegistryParseError(t *testing.T) {
	var r Registry
	if err := r.Add("bad.html", `{{ x }`); err == nil {
		t.Error("a malformed template should fail to register")
	}
}
