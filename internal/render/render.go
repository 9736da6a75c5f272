// Package render generates setup.py manifests from an assembled
// requirement set and a project config.
package render

import (
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/frederic-klein/pysetupgen/internal/config"
	"github.com/frederic-klein/pysetupgen/internal/manifest"
	"github.com/frederic-klein/pysetupgen/internal/pyenv"
	"github.com/frederic-klein/pysetupgen/internal/variant"
)

// Data is everything the setup.py template consumes. Build it with
// NewData so list ordering stays deterministic.
type Data struct {
	Package     *config.Project
	Core        []manifest.Requirement
	Extras      []ExtraGroup
	EntryPoints []EntryPointGroup

	// Dynamic selects the install-time variant scan. Portable builds pin
	// the generic distribution statically instead.
	Dynamic     bool
	Candidates  []string
	Marker      string
	WheelMarker string
}

// ExtraGroup is one named extras_require entry.
type ExtraGroup struct {
	Name string
	Reqs []manifest.Requirement
}

// EntryPointGroup is one entry_points group.
type EntryPointGroup struct {
	Name    string
	Entries []string
}

// NewData assembles template data with extras and entry point groups in
// sorted order.
func NewData(p *config.Project, mode variant.BuildMode, core []manifest.Requirement, extras map[string][]manifest.Requirement) Data {
	d := Data{
		Package:     p,
		Core:        core,
		Dynamic:     mode == variant.BuildDirect,
		Candidates:  variant.Candidates(),
		Marker:      pyenv.DefaultMarker,
		WheelMarker: variant.WheelMarker,
	}
	for name, reqs := range extras {
		d.Extras = append(d.Extras, ExtraGroup{Name: name, Reqs: reqs})
	}
	sort.Slice(d.Extras, func(i, j int) bool { return d.Extras[i].Name < d.Extras[j].Name })
	for name, entries := range p.EntryPoints {
		d.EntryPoints = append(d.EntryPoints, EntryPointGroup{Name: name, Entries: entries})
	}
	sort.Slice(d.EntryPoints, func(i, j int) bool { return d.EntryPoints[i].Name < d.EntryPoints[j].Name })
	return d
}

// pystr renders s as a Python string literal. Specifiers with environment
// markers contain double quotes, so those switch to single quoting.
func pystr(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	if strings.Contains(s, `"`) && !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// op returns the comparator a requirement renders with.
func op(r manifest.Requirement) string {
	if r.Comparator == "" {
		return ">="
	}
	return r.Comparator
}

var tmpl = template.Must(template.New("setup.py").Funcs(template.FuncMap{
	"pystr":  pystr,
	"op":     op,
	"family": variant.Family,
}).Parse(setupTemplate))

// Render writes a complete setup.py for d. Output is deterministic for a
// given Data value; Check relies on that.
func Render(w io.Writer, d Data) error {
	return tmpl.Execute(w, d)
}

const setupTemplate = `# Automatically generated by pysetupgen. Do not edit this file directly.
#
# To regenerate: pysetupgen generate

{{ if .Dynamic -}}
import os
import re
import sys

{{ end -}}
from setuptools import find_packages, setup

{{ if .Dynamic }}
def tensorflow_requirement():
    """Pick the TensorFlow distribution already installed, if any.

    Wheels must stay machine independent, so the scan only runs for
    direct installs.
    """
    if "{{ .WheelMarker }}" in sys.argv:
        return "tensorflow"

    search_path = sys.path
    for i, entry in enumerate(search_path):
        if "{{ .Marker }}" in entry:
            # Inside the packaging tool's isolated build environment only
            # the entries before it belong to the invoking environment.
            search_path = search_path[:i]
            break

    installed = set()
    for entry in search_path:
        if not os.path.isdir(entry):
            continue
        for item in os.listdir(entry):
            if item.endswith((".dist-info", ".egg-info")):
                stem = item.rsplit(".", 1)[0].split("-")[0]
                installed.add(re.sub(r"[^A-Za-z0-9.]+", "-", stem))

    for candidate in [{{ range $i, $c := .Candidates }}{{ if $i }}, {{ end }}"{{ $c }}"{{ end }}]:
        if candidate in installed:
            return candidate
    return "tensorflow"

{{ end }}
install_requires = [
{{- range .Core }}
{{- if and $.Dynamic (family .Name) }}
    tensorflow_requirement() + "{{ op . }}{{ .Min }}",
{{- else }}
    {{ pystr .Specifier }},
{{- end }}
{{- end }}
]

extras_require = {
{{- range .Extras }}
    "{{ .Name }}": [
{{- range .Reqs }}
        {{ pystr .Specifier }},
{{- end }}
    ],
{{- end }}
}

setup(
    name={{ pystr .Package.Name }},
    version={{ pystr .Package.Version }},
{{- if .Package.Author }}
    author={{ pystr .Package.Author }},
{{- end }}
{{- if .Package.AuthorEmail }}
    author_email={{ pystr .Package.AuthorEmail }},
{{- end }}
{{- if .Package.URL }}
    url={{ pystr .Package.URL }},
{{- end }}
{{- if .Package.License }}
    license={{ pystr .Package.License }},
{{- end }}
{{- if .Package.Description }}
    description={{ pystr .Package.Description }},
{{- end }}
    packages=find_packages(),
    python_requires={{ pystr .Package.PythonRequires }},
    install_requires=install_requires,
    extras_require=extras_require,
{{- if .EntryPoints }}
    entry_points={
{{- range .EntryPoints }}
        "{{ .Name }}": [
{{- range .Entries }}
            {{ pystr . }},
{{- end }}
        ],
{{- end }}
    },
{{- end }}
{{- if .Package.Classifiers }}
    classifiers=[
{{- range .Package.Classifiers }}
        {{ pystr . }},
{{- end }}
    ],
{{- end }}
)
`
