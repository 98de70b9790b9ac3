// Package debver is the version-algebra surface the rest of aptprep builds
// on: parsing Debian version strings and comparing them per Debian policy
// 5.6.12.
//
// The comparison rules themselves are not reimplemented here. They already
// live in pault.ag/go/debian/version, the same package the upstream archive
// tooling this project is descended from uses for the same purpose, so this
// is a thin, well-tested seam rather than a second implementation of
// Debian's ordering rules. Constraint matching (the "(OP version)" portion
// of a dependency alternative) is handled by pault.ag/go/debian/dependency
// directly wherever a dependency.Possibility is already in hand — see
// pkg/candidate — rather than being re-modeled here.
package debver

import (
	"pault.ag/go/debian/version"
)

// Version is a parsed Debian version: [epoch:]upstream[-revision].
type Version = version.Version

// Parse parses a Debian version string, rejecting malformed input.
func Parse(s string) (Version, error) {
	return version.Parse(s)
}

// Compare returns <0, 0, >0 as a sorts before, equal to, or after b,
// following epoch, then upstream, then revision comparison.
func Compare(a, b Version) int {
	return version.Compare(a, b)
}

// Less reports whether a sorts strictly before b. Convenience wrapper around
// Compare for use as a sort.Slice/slices.SortFunc predicate.
func Less(a, b Version) bool {
	return Compare(a, b) < 0
}

// Equal reports whether a and b compare equal under Debian ordering. Two
// versions can be Equal while differing as strings (e.g. missing epoch is
// equivalent to epoch 0).
func Equal(a, b Version) bool {
	return Compare(a, b) == 0
}
