// Package reqfile parses pip requirements files into manifest entries.
//
// Only plain specifier lines are supported. Option lines, editable
// installs, and direct URL references have no place in a generated
// manifest and are rejected rather than skipped.
package reqfile

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/frederic-klein/pysetupgen/internal/manifest"
)

// Parser parses the requirements file format.
type Parser struct{}

// NewParser creates a new requirements parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads a requirements file and returns its entries in file order.
func (p *Parser) Parse(path string) ([]manifest.Requirement, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening requirements file: %w", err)
	}
	defer file.Close()

	var reqs []manifest.Requirement
	var pending string
	lineno := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineno++
		line := scanner.Text()

		// Skip comments and empty lines
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		// Strip trailing comments
		if i := strings.Index(trimmed, " #"); i >= 0 {
			trimmed = strings.TrimSpace(trimmed[:i])
			if trimmed == "" {
				continue
			}
		}

		// Backslash continuation joins with the next line
		if rest, ok := strings.CutSuffix(trimmed, "\\"); ok {
			pending += strings.TrimSpace(rest)
			continue
		}
		if pending != "" {
			trimmed = pending + trimmed
			pending = ""
		}

		if strings.HasPrefix(trimmed, "-") {
			return nil, fmt.Errorf("%s line %d: option lines are not supported: %q", path, lineno, trimmed)
		}
		if strings.Contains(trimmed, "://") {
			return nil, fmt.Errorf("%s line %d: URL requirements are not supported: %q", path, lineno, trimmed)
		}

		req, err := manifest.ParseSpecifier(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineno, err)
		}
		reqs = append(reqs, req)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading requirements file: %w", err)
	}
	if pending != "" {
		return nil, fmt.Errorf("%s: unterminated line continuation", path)
	}

	return reqs, nil
}
