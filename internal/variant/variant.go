package variant

// BuildMode indicates what kind of artifact the manifest is being generated for.
type BuildMode int

const (
	// BuildDirect is an environment-aware installation: the manifest may
	// depend on whichever TensorFlow distribution is already installed.
	BuildDirect BuildMode = iota

	// BuildPortable is a wheel-style distribution artifact, built once and
	// installed elsewhere. Environment inspection is skipped because the
	// build environment says nothing about the target environment.
	BuildPortable
)

// Generic is the non-accelerated TensorFlow distribution, required whenever
// no more specific variant can be detected.
const Generic = "tensorflow"

// WheelMarker is the packaging argument that signals a portable build.
const WheelMarker = "bdist_wheel"

// candidates is the fixed preference order for TensorFlow-family
// distributions. Most specific first; the first name present in the
// environment wins.
var candidates = []string{
	"tf-nightly-gpu",
	"tf-nightly",
	"tf-nightly-cpu",
	"tensorflow-gpu",
	"tensorflow-cpu",
}

// Candidates returns the preference-ordered variant names.
func Candidates() []string {
	out := make([]string, len(candidates))
	copy(out, candidates)
	return out
}

// Family reports whether name is a TensorFlow-family distribution (the
// generic name or any of the candidate variants).
func Family(name string) bool {
	if name == Generic {
		return true
	}
	for _, c := range candidates {
		if name == c {
			return true
		}
	}
	return false
}

// Resolve selects the TensorFlow distribution to require.
//
// For portable builds the generic name is returned without consulting
// installed at all. Otherwise the candidate list is scanned in preference
// order and the first name present in installed wins; presence is exact
// string match, with no version inspection. If no candidate is installed,
// the generic name is the default. Resolve cannot fail: every branch yields
// a concrete name.
func Resolve(mode BuildMode, installed map[string]bool) string {
	if mode == BuildPortable {
		return Generic
	}
	for _, c := range candidates {
		if installed[c] {
			return c
		}
	}
	return Generic
}

// ModeFromArgs inspects a packaging argument list for the wheel marker.
// The marker must appear as its own argument; substrings do not count.
func ModeFromArgs(args []string) BuildMode {
	for _, a := range args {
		if a == WheelMarker {
			return BuildPortable
		}
	}
	return BuildDirect
}
