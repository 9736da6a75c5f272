package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/frederic-klein/pysetupgen/internal/config"
	"github.com/frederic-klein/pysetupgen/internal/manifest"
	"github.com/frederic-klein/pysetupgen/internal/variant"
)

func testProject() *config.Project {
	return &config.Project{
		Name:           "nengo-dl",
		Version:        "3.3.0",
		Description:    "Deep learning integration for Nengo",
		URL:            "https://www.nengo.ai/nengo-dl",
		Author:         "Applied Brain Research",
		AuthorEmail:    "info@appliedbrainresearch.com",
		License:        "Free for non-commercial use",
		PythonRequires: ">=3.5",
		Classifiers: []string{
			"Development Status :: 5 - Production/Stable",
			"Programming Language :: Python :: 3.8",
		},
		EntryPoints: map[string][]string{
			"nengo.backends": {"dl = nengo_dl:Simulator"},
		},
	}
}

func testExtras() map[string][]manifest.Requirement {
	return map[string][]manifest.Requirement{
		"tests": {
			{Name: "pytest", Comparator: ">=", Min: "3.6.0"},
		},
		"docs": {
			{Name: "sphinx", Comparator: ">=", Min: "1.8"},
		},
	}
}

func renderToString(t *testing.T, d Data) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Render(&buf, d); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestRenderDirect(t *testing.T) {
	d := NewData(testProject(), variant.BuildDirect, manifest.Assemble("tensorflow-gpu"), testExtras())
	out := renderToString(t, d)

	wantLines := []string{
		"# Automatically generated by pysetupgen. Do not edit this file directly.",
		"import sys",
		"def tensorflow_requirement():",
		`    if "bdist_wheel" in sys.argv:`,
		`        if "pip-build-env" in entry:`,
		`    for candidate in ["tf-nightly-gpu", "tf-nightly", "tf-nightly-cpu", "tensorflow-gpu", "tensorflow-cpu"]:`,
		`    tensorflow_requirement() + ">=2.2.0",`,
		`    "nengo>=3.0.0",`,
		`    "numpy>=1.16.0",`,
		`    "jinja2>=2.10.1",`,
		`    "packaging>=20.0",`,
		`    "progressbar2>=3.39.0",`,
		`        "sphinx>=1.8",`,
		`        "pytest>=3.6.0",`,
		`    name="nengo-dl",`,
		`    version="3.3.0",`,
		`    python_requires=">=3.5",`,
		`            "dl = nengo_dl:Simulator",`,
		`        "Development Status :: 5 - Production/Stable",`,
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("Render() output missing line %q\n%s", want, out)
		}
	}

	if strings.Contains(out, `"tensorflow-gpu>=2.2.0"`) {
		t.Error("Render() pinned a concrete variant in dynamic mode")
	}
	if strings.Index(out, `"docs": [`) > strings.Index(out, `"tests": [`) {
		t.Error("Render() extras are not sorted by name")
	}
}

func TestRenderPortable(t *testing.T) {
	d := NewData(testProject(), variant.BuildPortable, manifest.Assemble(variant.Generic), testExtras())
	out := renderToString(t, d)

	if !strings.Contains(out, `    "tensorflow>=2.2.0",`+"\n") {
		t.Errorf("Render() missing static generic pin\n%s", out)
	}
	if strings.Contains(out, "def tensorflow_requirement():") {
		t.Error("Render() emitted the selection block in portable mode")
	}
	if strings.Contains(out, "import sys") {
		t.Error("Render() emitted unused imports in portable mode")
	}
}

func TestRenderDeterministic(t *testing.T) {
	for i := 0; i < 20; i++ {
		a := renderToString(t, NewData(testProject(), variant.BuildDirect, manifest.Assemble("tf-nightly"), testExtras()))
		b := renderToString(t, NewData(testProject(), variant.BuildDirect, manifest.Assemble("tf-nightly"), testExtras()))
		if a != b {
			t.Fatal("Render() output differs between runs with identical data")
		}
	}
}

func TestRenderMarkerQuoting(t *testing.T) {
	extras := map[string][]manifest.Requirement{
		"tests": {
			{Name: "nbval", Comparator: ">=", Min: "0.6.0", Marker: `python_version >= "3.6"`},
		},
	}
	d := NewData(testProject(), variant.BuildPortable, manifest.Assemble(variant.Generic), extras)
	out := renderToString(t, d)

	want := `        'nbval>=0.6.0 ; python_version >= "3.6"',`
	if !strings.Contains(out, want+"\n") {
		t.Errorf("Render() marker entry not single-quoted:\n%s", out)
	}
}

func TestRenderNoExtras(t *testing.T) {
	d := NewData(testProject(), variant.BuildPortable, manifest.Assemble(variant.Generic), nil)
	out := renderToString(t, d)

	if !strings.Contains(out, "extras_require = {\n}\n") {
		t.Errorf("Render() empty extras block malformed:\n%s", out)
	}
}
