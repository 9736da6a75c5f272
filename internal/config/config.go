// Package config loads the project configuration that drives manifest
// generation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/pysetupgen/internal/pyver"
)

// DefaultFileName is the config file looked up when no path is given.
const DefaultFileName = "pysetupgen.yml"

// Project describes the Python package a manifest is generated for.
// Core dependency pins and the variant candidate list are fixed data,
// not configuration.
type Project struct {
	Name           string              `yaml:"name"`
	Version        string              `yaml:"version"`
	Description    string              `yaml:"description"`
	URL            string              `yaml:"url"`
	Author         string              `yaml:"author"`
	AuthorEmail    string              `yaml:"author_email"`
	License        string              `yaml:"license"`
	PythonRequires string              `yaml:"python_requires"`
	Classifiers    []string            `yaml:"classifiers"`
	EntryPoints    map[string][]string `yaml:"entry_points"`
	Extras         map[string]string   `yaml:"extras"`
	Output         string              `yaml:"output"`

	// Dir is the directory the config was loaded from; relative paths in
	// Extras and Output resolve against it.
	Dir string `yaml:"-"`
}

// Load reads, normalizes, and validates a project config file.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	p.Dir = filepath.Dir(path)
	p.applyDefaults()
	p.normalize()
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &p, nil
}

func (p *Project) applyDefaults() {
	if p.Output == "" {
		p.Output = "setup.py"
	}
	if p.PythonRequires == "" {
		p.PythonRequires = ">=3.5"
	}
}

func (p *Project) normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Version = strings.TrimSpace(p.Version)
	p.PythonRequires = strings.TrimSpace(p.PythonRequires)
	for i, c := range p.Classifiers {
		p.Classifiers[i] = strings.TrimSpace(c)
	}
	for name, path := range p.Extras {
		p.Extras[name] = strings.TrimSpace(path)
	}
}

var (
	extraNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	requiresRe  = regexp.MustCompile(`^(>=|<=|==|~=|>|<)\s*(.+)$`)
)

func (p *Project) validate() error {
	if p.Name == "" {
		return fmt.Errorf("package name is required")
	}
	if p.Version == "" {
		return fmt.Errorf("package version is required")
	}
	if _, err := pyver.Normalize(p.Version); err != nil {
		return fmt.Errorf("package version: %w", err)
	}

	m := requiresRe.FindStringSubmatch(p.PythonRequires)
	if m == nil {
		return fmt.Errorf("python_requires %q: expected a comparator and version", p.PythonRequires)
	}
	if _, err := pyver.Normalize(m[2]); err != nil {
		return fmt.Errorf("python_requires %q: %w", p.PythonRequires, err)
	}

	for _, c := range p.Classifiers {
		if c == "" {
			return fmt.Errorf("classifiers must not be empty strings")
		}
	}
	for name, path := range p.Extras {
		if !extraNameRe.MatchString(name) {
			return fmt.Errorf("extra name %q is not a valid identifier", name)
		}
		if path == "" {
			return fmt.Errorf("extra %q: requirements file path is required", name)
		}
	}
	for group, entries := range p.EntryPoints {
		if strings.TrimSpace(group) == "" {
			return fmt.Errorf("entry point group name must not be empty")
		}
		for _, e := range entries {
			if !strings.Contains(e, "=") {
				return fmt.Errorf("entry point %q in group %q: expected name = target", e, group)
			}
		}
	}
	return nil
}

// ExtrasPath resolves the requirements-file path of an extra against the
// config file's directory.
func (p *Project) ExtrasPath(name string) string {
	return p.resolve(p.Extras[name])
}

// OutputPath resolves the generation target against the config file's
// directory.
func (p *Project) OutputPath() string {
	return p.resolve(p.Output)
}

func (p *Project) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Dir, path)
}
