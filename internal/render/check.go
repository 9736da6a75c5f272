package render

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"

	"github.com/frederic-klein/pysetupgen/internal/manifest"
)

// DynamicName is the placeholder reported for the install-time variant
// selection entry, which has no fixed distribution name in the file.
const DynamicName = "tensorflow_requirement()"

var (
	coreOpenRe   = regexp.MustCompile(`^install_requires = \[$`)
	extrasOpenRe = regexp.MustCompile(`^extras_require = \{$`)
	listCloseRe  = regexp.MustCompile(`^[\]\}]$`)
	entryRe      = regexp.MustCompile(`^\s+(?:"([^"]+)"|'([^']+)'),?$`)
	dynamicRe    = regexp.MustCompile(`^\s+tensorflow_requirement\(\) \+ "(>=|<=|==|!=|~=|>|<)([^"]+)",?$`)
)

// ExtractRequirements reads the requirement entries out of a generated
// manifest: everything inside install_requires and extras_require,
// flattened in file order. Lines that are not requirement entries are
// skipped.
func ExtractRequirements(r io.Reader) ([]manifest.Requirement, error) {
	var reqs []manifest.Requirement
	inList := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if coreOpenRe.MatchString(line) || extrasOpenRe.MatchString(line) {
			inList = true
			continue
		}
		if listCloseRe.MatchString(line) {
			inList = false
			continue
		}
		if !inList {
			continue
		}

		if matches := dynamicRe.FindStringSubmatch(line); matches != nil {
			reqs = append(reqs, manifest.Requirement{
				Name:       DynamicName,
				Comparator: matches[1],
				Min:        matches[2],
			})
			continue
		}

		if matches := entryRe.FindStringSubmatch(line); matches != nil {
			spec := matches[1]
			if spec == "" {
				spec = matches[2]
			}
			req, err := manifest.ParseSpecifier(spec)
			if err != nil {
				continue
			}
			reqs = append(reqs, req)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	return reqs, nil
}

// Check renders d in memory and compares it against the manifest on disk.
// It returns whether the file is up to date, plus a requirement-level
// summary of the differences when it is not.
func Check(path string, d Data) (bool, []string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, d); err != nil {
		return false, nil, fmt.Errorf("rendering manifest: %w", err)
	}

	existing, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, []string{"manifest has not been generated yet"}, nil
		}
		return false, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if bytes.Equal(existing, buf.Bytes()) {
		return true, nil, nil
	}

	want, err := ExtractRequirements(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return false, nil, err
	}
	have, err := ExtractRequirements(bytes.NewReader(existing))
	if err != nil {
		return false, nil, err
	}

	summary := diffRequirements(have, want)
	if len(summary) == 0 {
		summary = []string{"contents differ outside the requirement lists"}
	}
	return false, summary, nil
}

// diffRequirements reports specifiers present on one side only, in file
// order, each unique specifier once.
func diffRequirements(have, want []manifest.Requirement) []string {
	haveCount := make(map[string]int)
	for _, r := range have {
		haveCount[r.Specifier()]++
	}
	wantCount := make(map[string]int)
	for _, r := range want {
		wantCount[r.Specifier()]++
	}

	var summary []string
	reported := make(map[string]bool)
	for _, r := range want {
		s := r.Specifier()
		if wantCount[s] > haveCount[s] && !reported[s] {
			summary = append(summary, "missing: "+s)
			reported[s] = true
		}
	}
	for _, r := range have {
		s := r.Specifier()
		if haveCount[s] > wantCount[s] && !reported[s] {
			summary = append(summary, "unexpected: "+s)
			reported[s] = true
		}
	}
	return summary
}
