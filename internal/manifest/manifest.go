package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/frederic-klein/pysetupgen/internal/pyver"
	"github.com/frederic-klein/pysetupgen/internal/variant"
)

// Requirement is a single dependency specifier in the generated manifest.
type Requirement struct {
	Name       string
	Comparator string // ">=" for all core pins; parsed extras keep theirs
	Min        string // version bound; empty means a bare requirement
	Marker     string // optional environment marker, carried verbatim
}

// Specifier renders the requirement in the form the packaging tool consumes,
// e.g. "tensorflow-gpu>=2.2.0".
func (r Requirement) Specifier() string {
	s := r.Name
	if r.Min != "" {
		comp := r.Comparator
		if comp == "" {
			comp = ">="
		}
		s += comp + r.Min
	}
	if r.Marker != "" {
		s += " ; " + r.Marker
	}
	return s
}

// TensorFlowMin is the minimum bound applied to whichever TensorFlow
// distribution the resolver selects.
const TensorFlowMin = "2.2.0"

// Assemble returns the ordered install_requires list with the TensorFlow
// slot filled by the resolved distribution name. The surrounding list is
// fixed: framework, numeric library, TensorFlow variant, templating,
// parsing utilities, progress reporting.
func Assemble(tfName string) []Requirement {
	return []Requirement{
		{Name: "nengo", Comparator: ">=", Min: "3.0.0"},
		{Name: "numpy", Comparator: ">=", Min: "1.16.0"},
		{Name: tfName, Comparator: ">=", Min: TensorFlowMin},
		{Name: "jinja2", Comparator: ">=", Min: "2.10.1"},
		{Name: "packaging", Comparator: ">=", Min: "20.0"},
		{Name: "progressbar2", Comparator: ">=", Min: "3.39.0"},
	}
}

var specifierRe = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(==|>=|<=|!=|~=|>|<)?\s*(\S*)$`)

// ParseSpecifier parses a single requirement specifier such as
// "numpy>=1.16.0", "sphinx == 3.1", or a bare "nengo". An environment
// marker after ";" is preserved verbatim.
func ParseSpecifier(s string) (Requirement, error) {
	spec := strings.TrimSpace(s)
	var marker string
	if i := strings.IndexByte(spec, ';'); i >= 0 {
		marker = strings.TrimSpace(spec[i+1:])
		spec = strings.TrimSpace(spec[:i])
	}

	m := specifierRe.FindStringSubmatch(spec)
	if m == nil {
		return Requirement{}, fmt.Errorf("manifest: invalid requirement specifier %q", s)
	}
	name, comp, ver := m[1], m[2], m[3]
	if comp == "" && ver != "" {
		return Requirement{}, fmt.Errorf("manifest: invalid requirement specifier %q", s)
	}
	if comp != "" && ver == "" {
		return Requirement{}, fmt.Errorf("manifest: missing version in specifier %q", s)
	}

	return Requirement{Name: name, Comparator: comp, Min: ver, Marker: marker}, nil
}

// Validate enforces the manifest invariants: exactly one TensorFlow-family
// entry in the core list, no TensorFlow-family entry hidden in an extra,
// and every version bound parseable.
func Validate(core []Requirement, extras map[string][]Requirement) error {
	tf := 0
	for _, r := range core {
		if variant.Family(r.Name) {
			tf++
		}
		if err := checkBound(r); err != nil {
			return err
		}
	}
	if tf != 1 {
		return fmt.Errorf("manifest: %d TensorFlow entries in install_requires, want exactly 1", tf)
	}

	for extra, reqs := range extras {
		for _, r := range reqs {
			if variant.Family(r.Name) {
				return fmt.Errorf("manifest: extra %q must not require TensorFlow distribution %q", extra, r.Name)
			}
			if err := checkBound(r); err != nil {
				return fmt.Errorf("manifest: extra %q: %w", extra, err)
			}
		}
	}
	return nil
}

func checkBound(r Requirement) error {
	if r.Name == "" {
		return fmt.Errorf("manifest: requirement with empty name")
	}
	if r.Min == "" {
		return nil
	}
	if _, err := pyver.Parse(r.Min); err != nil {
		return fmt.Errorf("manifest: requirement %s: %w", r.Name, err)
	}
	return nil
}
