package pyenv

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultMarker is the directory-name segment the packaging tool uses for
// its isolated build environments. Any search-path entry containing it
// belongs to the sandbox, not to the invoking environment.
const DefaultMarker = "pip-build-env"

// TruncateAtMarker returns the prefix of paths strictly before the first
// entry containing marker as a substring. When no entry contains the
// marker, paths is returned unchanged.
//
// This reproduces the isolated-environment detection of the original
// packaging script, including its fragility: the fallback may under-detect
// accelerated variants when the sandbox path carries no marker, and that
// behavior is kept as-is.
func TruncateAtMarker(paths []string, marker string) []string {
	if marker == "" {
		return paths
	}
	for i, p := range paths {
		if strings.Contains(p, marker) {
			return paths[:i]
		}
	}
	return paths
}

var unsafeRe = regexp.MustCompile(`[^A-Za-z0-9.]+`)

// SafeName canonicalizes a distribution name derived from a filename, the
// way the packaging ecosystem does: every run of characters outside
// [A-Za-z0-9.] collapses to a single "-", so tensorflow_gpu becomes
// tensorflow-gpu.
func SafeName(name string) string {
	return unsafeRe.ReplaceAllString(name, "-")
}

// Snapshot returns the distribution names visible from the given module
// search path, after recovering the original environment's entries via
// TruncateAtMarker. The result is an immutable-by-convention set consumed
// by the variant resolver.
func Snapshot(paths []string, marker string) (map[string]bool, error) {
	return InstalledDistributions(TruncateAtMarker(paths, marker))
}

// InstalledDistributions scans each directory in paths for installed
// distribution metadata (*.dist-info and *.egg-info entries) and returns
// the set of distribution names found.
//
// Search paths routinely list directories that do not exist; those are
// skipped. Read errors on an existing directory propagate: metadata
// failures are owned by the caller.
func InstalledDistributions(paths []string) (map[string]bool, error) {
	installed := make(map[string]bool)
	for _, dir := range paths {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			// Search paths may list zip archives; only directories hold
			// installed metadata.
			if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
				continue
			}
			return nil, fmt.Errorf("pyenv: reading %s: %w", dir, err)
		}
		for _, entry := range entries {
			name, ok := distributionName(dir, entry)
			if ok {
				installed[name] = true
			}
		}
	}
	return installed, nil
}

// distributionName extracts the distribution name for one directory entry,
// preferring the Name header of its metadata file and falling back to the
// entry's filename.
func distributionName(dir string, entry fs.DirEntry) (string, bool) {
	base := entry.Name()
	var metaFile string
	switch {
	case strings.HasSuffix(base, ".dist-info"):
		metaFile = "METADATA"
	case strings.HasSuffix(base, ".egg-info"):
		metaFile = "PKG-INFO"
	default:
		return "", false
	}

	if entry.IsDir() {
		if name, ok := metadataName(filepath.Join(dir, base, metaFile)); ok {
			return name, true
		}
	}

	// Fallback: {name}-{version}.dist-info with "-" in the name escaped
	// to "_", so everything before the first "-" is the name.
	stem := strings.TrimSuffix(strings.TrimSuffix(base, ".dist-info"), ".egg-info")
	if i := strings.IndexByte(stem, '-'); i >= 0 {
		stem = stem[:i]
	}
	if stem == "" {
		return "", false
	}
	return SafeName(stem), true
}

// metadataName reads the Name header from a METADATA or PKG-INFO file.
func metadataName(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		// Headers end at the first blank line.
		if line == "" {
			break
		}
		if rest, ok := strings.CutPrefix(line, "Name:"); ok {
			name := strings.TrimSpace(rest)
			if name != "" {
				return name, true
			}
		}
	}
	return "", false
}

// InterpreterSearchPath asks a Python interpreter for its module search
// path, one entry per line. Empty entries (the script-directory
// placeholder) are dropped.
func InterpreterSearchPath(python string) ([]string, error) {
	out, err := exec.Command(python, "-c", "import sys\nfor p in sys.path:\n    print(p)").Output()
	if err != nil {
		return nil, fmt.Errorf("pyenv: querying %s for sys.path: %w", python, err)
	}
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		paths = append(paths, line)
	}
	return paths, nil
}
