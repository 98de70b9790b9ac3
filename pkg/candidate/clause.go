// Package candidate bridges Debian's package universe — virtual packages,
// alternatives, per-architecture stanzas — into the (name, version) universe
// the resolver solves over (spec §3 Candidate Model / §4.4).
//
// The disjunction-of-alternatives shape mirrors untangle.go's
// SourceMap.Matches from the archive tooling this project descends from:
// that function matched one dependency.Possibility against a
// version-sorted slice of candidates for one package name. Universe.Match
// below is the same idea generalized to a whole clause (a disjunction of
// such possibilities, across real packages and virtual Provides) instead of
// a single alternative.
package candidate

import (
	"fmt"

	"pault.ag/go/debian/dependency"

	"github.com/aptprep/aptprep/internal/debver"
)

// Alternative is one disjunct of a dependency clause: a package name,
// optional architecture qualifier (pkg:amd64), and optional version
// constraint.
type Alternative struct {
	Name       string
	ArchQualifier string // empty unless the dependency was written "pkg:amd64"
	Constraint *dependency.Possibility
}

// Clause is a disjunction of Alternatives; the clause is satisfied if any
// alternative is satisfied. Order encodes preference (leftmost preferred on
// ties), matching spec §3.
type Clause []Alternative

// FromDependency converts a parsed pault.ag/go/debian/dependency.Dependency
// (itself a disjunction-of-conjunctions over Possibility values) into our
// Clause slice, one Clause per top-level conjunct.
func FromDependency(d *dependency.Dependency) []Clause {
	if d == nil {
		return nil
	}
	var out []Clause
	for _, rel := range *d {
		clause := make(Clause, 0, len(rel))
		for _, possi := range rel {
			p := possi
			alt := Alternative{Name: p.Name, Constraint: &p}
			if p.Arch != nil {
				alt.ArchQualifier = string(*p.Arch)
			}
			clause = append(clause, alt)
		}
		out = append(out, clause)
	}
	return out
}

// String renders an alternative the way it appears in a Depends field, e.g.
// "libc6 (>= 2.14)" or "libc6:amd64".
func (a Alternative) String() string {
	s := a.Name
	if a.ArchQualifier != "" {
		s = fmt.Sprintf("%s:%s", a.Name, a.ArchQualifier)
	}
	if a.Constraint != nil && a.Constraint.Version != nil {
		s = fmt.Sprintf("%s (%s %s)", s, a.Constraint.Version.Operator, a.Constraint.Version.Number)
	}
	return s
}

// String renders a clause as its alternatives joined by " | ", e.g.
// "default-mta | mail-transport-agent".
func (c Clause) String() string {
	s := ""
	for i, alt := range c {
		if i > 0 {
			s += " | "
		}
		s += alt.String()
	}
	return s
}

// satisfiedByVersion reports whether v satisfies the alternative's
// constraint (unconstrained alternatives are always satisfied).
func (a Alternative) satisfiedByVersion(v debver.Version) bool {
	if a.Constraint == nil || a.Constraint.Version == nil {
		return true
	}
	return a.Constraint.Version.SatisfiedBy(v)
}
