package pyver

import (
	"fmt"
	"regexp"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a parsed Python package version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3: version
// strings are normalized from the grammar used on the package index into
// strict semver before parsing. The original string is kept for display.
type Version struct {
	raw string
	v   *mm.Version
}

var (
	epochRe = regexp.MustCompile(`^\d+!`)
	preRe   = regexp.MustCompile(`^[._-]?(alpha|beta|preview|pre|rc|a|b|c)[._-]?(\d*)`)
	postRe  = regexp.MustCompile(`^[._-]?(post|rev|r)[._-]?(\d*)`)
	devRe   = regexp.MustCompile(`^[._-]?dev[._-]?(\d*)`)
	numRe   = regexp.MustCompile(`^\d+(\.\d+)*`)
)

// Normalize converts a version string as published on the package index
// (PEP 440 style) into a semver string.
//
// Handled forms:
//
//	2.2.0rc1    -> 2.2.0-rc.1     (pre-releases sort below the release)
//	1.0a2       -> 1.0-a.2        (a < b < rc, matching alpha/beta/rc order)
//	1.4.0.dev3  -> 1.4.0-0.dev.3  (dev releases sort below pre-releases)
//	1.2.post4   -> 1.2+post.4     (post releases compare equal to the base)
//	1!2.0       -> 2.0            (epoch dropped)
//	2.4.0+cpu   -> 2.4.0          (local segment dropped)
//
// Release segments beyond the third are dropped; the minimum bounds used in
// this domain never carry them. Short releases (20.0, 5) are left for the
// semver parser to widen.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "v")
	s = strings.TrimPrefix(s, "V")
	if s == "" {
		return "", fmt.Errorf("pyver: empty version")
	}

	s = epochRe.ReplaceAllString(s, "")
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}

	release := numRe.FindString(s)
	if release == "" {
		return "", fmt.Errorf("pyver: no release segment in %q", raw)
	}
	rest := s[len(release):]

	// Keep at most three release numbers.
	if parts := strings.Split(release, "."); len(parts) > 3 {
		release = strings.Join(parts[:3], ".")
	}

	var suffix string
	if m := preRe.FindStringSubmatch(rest); m != nil {
		tag := canonicalPreTag(m[1])
		n := m[2]
		if n == "" {
			n = "0"
		}
		suffix = "-" + tag + "." + n
		rest = rest[len(m[0]):]
	}
	if m := devRe.FindStringSubmatch(rest); m != nil {
		n := m[1]
		if n == "" {
			n = "0"
		}
		if suffix == "" {
			suffix = "-0.dev." + n
		} else {
			suffix += ".dev." + n
		}
		rest = rest[len(m[0]):]
	}
	if m := postRe.FindStringSubmatch(rest); m != nil {
		n := m[2]
		if n == "" {
			n = "0"
		}
		if suffix == "" {
			suffix = "+post." + n
		}
		rest = rest[len(m[0]):]
	}

	if strings.TrimSpace(rest) != "" {
		return "", fmt.Errorf("pyver: cannot normalize %q (unrecognized suffix %q)", raw, rest)
	}

	return release + suffix, nil
}

func canonicalPreTag(tag string) string {
	switch tag {
	case "alpha":
		return "a"
	case "beta":
		return "b"
	case "c", "pre", "preview":
		return "rc"
	default:
		return tag
	}
}

// Parse normalizes and parses a version string.
func Parse(raw string) (Version, error) {
	norm, err := Normalize(raw)
	if err != nil {
		return Version{}, err
	}
	v, err := mm.NewVersion(norm)
	if err != nil {
		return Version{}, fmt.Errorf("pyver: parse version %q: %w", raw, err)
	}
	return Version{raw: raw, v: v}, nil
}

// MustParse parses a version string, panicking on failure. For fixed pins.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as originally written.
func (v Version) String() string {
	return v.raw
}

// Compare returns -1, 0, or 1 when a sorts below, equal to, or above b.
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// AtLeast reports whether have >= want.
func AtLeast(have, want string) (bool, error) {
	h, err := Parse(have)
	if err != nil {
		return false, err
	}
	w, err := Parse(want)
	if err != nil {
		return false, err
	}
	return Compare(h, w) >= 0, nil
}

// Latest returns the highest parseable version in raws. Unparseable entries
// are skipped; ok is false when nothing parses.
func Latest(raws []string) (Version, bool) {
	var best Version
	found := false
	for _, raw := range raws {
		v, err := Parse(raw)
		if err != nil {
			continue
		}
		if !found || Compare(v, best) > 0 {
			best = v
			found = true
		}
	}
	return best, found
}
