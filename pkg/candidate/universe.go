package candidate

import (
	"sort"

	"github.com/aptprep/aptprep/internal/debver"
	"github.com/aptprep/aptprep/pkg/archive"
)

// RepoID stably identifies a configured source repository, used as the
// lockfile's source-repository-id (spec §4.6).
type RepoID string

// Entry is a candidate: a (name, version, architecture, repository
// coordinate) tuple distilled from a Package stanza, per spec §3.
type Entry struct {
	Name         string
	Version      debver.Version
	Architecture string
	RepoID       RepoID

	Essential bool
	MultiArch string // "", "same", or "foreign"
	Source    string // optional Source field, for audit only

	Depends   []Clause
	Conflicts []Clause // Conflicts ∪ Breaks, per spec §4.4
	Replaces  []Clause
	Provides  []ProvideDecl

	Filename     string
	Size         int64
	ChecksumKind string
	Checksum     string

	stanza archive.Package
}

// Stanza returns the original Package this Entry was distilled from, for
// callers (the Local Indexer, lockfile audit output) that need fields
// Entry doesn't surface directly.
func (e *Entry) Stanza() archive.Package { return e.stanza }

// ProvideDecl is one `Provides: foo (= 1.2)` or unversioned `Provides: foo`
// declaration.
type ProvideDecl struct {
	Name    string
	Version *debver.Version // nil if unversioned
}

// Source is one fetched, parsed Packages file plus the repo it came from.
type Source struct {
	RepoID   RepoID
	Packages []archive.Package
}

// Universe is the solver-amenable candidate set for a single target
// architecture, built from every configured source repository whose
// Architecture field is the target or "all" (spec §4.4.1).
type Universe struct {
	Arch string

	byName     map[string][]*Entry // sorted highest version first
	byProvides map[string][]*Entry // providers of a virtual name, highest version first
}

// Build constructs a Universe for arch from the given sources. Stanzas
// whose Architecture is neither arch nor "all" are excluded (fan-out,
// §4.4.1).
func Build(arch string, sources []Source) (*Universe, error) {
	u := &Universe{
		Arch:       arch,
		byName:     map[string][]*Entry{},
		byProvides: map[string][]*Entry{},
	}

	for _, src := range sources {
		for i := range src.Packages {
			stanza := src.Packages[i]
			stanzaArch := string(stanza.Architecture)
			if stanzaArch != arch && stanzaArch != "all" {
				continue
			}
			entry, err := fromStanza(src.RepoID, stanza)
			if err != nil {
				return nil, err
			}
			u.byName[entry.Name] = append(u.byName[entry.Name], entry)
			for _, pd := range entry.Provides {
				u.byProvides[pd.Name] = append(u.byProvides[pd.Name], entry)
			}
		}
	}

	for name := range u.byName {
		u.byName[name] = dedupeUbuntuWorkaround(u.byName[name])
		sortEntriesDescending(u.byName[name])
	}
	for name := range u.byProvides {
		sortEntriesDescending(u.byProvides[name])
	}

	return u, nil
}

func fromStanza(repo RepoID, stanza archive.Package) (*Entry, error) {
	v, err := debver.Parse(string(stanza.Version))
	if err != nil {
		return nil, err
	}

	kind, value, _ := stanza.StrongestChecksum()

	entry := &Entry{
		Name:         stanza.Package,
		Version:      v,
		Architecture: string(stanza.Architecture),
		RepoID:       repo,
		Essential:    stanza.Essential == "yes",
		MultiArch:    stanza.MultiArch,
		Source:       stanza.Source,
		Filename:     stanza.Filename,
		Size:         int64(stanza.Size),
		ChecksumKind: kind,
		Checksum:     value,
		stanza:       stanza,
	}

	// Depends and Pre-Depends are merged: pre-depends has no ordering
	// significance at resolution time (spec §4.4.3).
	entry.Depends = append(entry.Depends, FromDependency(stanza.Depends)...)
	entry.Depends = append(entry.Depends, FromDependency(stanza.PreDepends)...)

	// Conflicts and Breaks are treated uniformly (spec §4.4.4).
	entry.Conflicts = append(entry.Conflicts, FromDependency(stanza.Conflicts)...)
	entry.Conflicts = append(entry.Conflicts, FromDependency(stanza.Breaks)...)
	entry.Replaces = FromDependency(stanza.Replaces)

	if stanza.Provides != nil {
		for _, clause := range FromDependency(stanza.Provides) {
			for _, alt := range clause {
				pd := ProvideDecl{Name: alt.Name}
				if alt.Constraint != nil && alt.Constraint.Version != nil {
					pv := alt.Constraint.Version.Number
					pd.Version = &pv
				}
				entry.Provides = append(entry.Provides, pd)
			}
		}
	}

	return entry, nil
}

// dedupeUbuntuWorkaround implements the known-defect workaround of spec
// §4.4.6: among stanzas whose Debian-ordered version compares equal but
// whose upstream strings differ, keep only the one with the
// lexicographically largest Filename. Stanzas with identical version
// strings are grouped the same way; on equal Filenames the first one
// (earliest source) is kept.
func dedupeUbuntuWorkaround(entries []*Entry) []*Entry {
	var groups [][]*Entry
	for _, e := range entries {
		placed := false
		for gi := range groups {
			if debver.Equal(groups[gi][0].Version, e.Version) {
				groups[gi] = append(groups[gi], e)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []*Entry{e})
		}
	}

	var out []*Entry
	for _, group := range groups {
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		best := group[0]
		for _, e := range group[1:] {
			if e.Filename > best.Filename {
				best = e
			}
		}
		out = append(out, best)
	}
	return out
}

func sortEntriesDescending(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return debver.Compare(entries[i].Version, entries[j].Version) > 0
	})
}

// Match resolves one dependency Clause against the Universe from the
// perspective of a package of architecture fromArch, honoring Multi-Arch
// (spec §4.4.5) and preferring real packages over Provides, then highest
// version (spec §4.4.2). It returns the matching entries across all
// alternatives, in clause (alternative) order, then version-descending
// within an alternative — so callers that want "the" match take index 0.
func (u *Universe) Match(clause Clause, fromArch string) []*Entry {
	var out []*Entry
	for _, alt := range clause {
		arch := fromArch
		if alt.ArchQualifier != "" {
			arch = alt.ArchQualifier
		}
		out = append(out, u.matchAlternative(alt, arch, fromArch)...)
	}
	return out
}

func (u *Universe) matchAlternative(alt Alternative, wantArch, fromArch string) []*Entry {
	var reals, virtuals []*Entry

	for _, e := range u.byName[alt.Name] {
		if !archSatisfies(e, wantArch, fromArch, alt.ArchQualifier != "") {
			continue
		}
		if !alt.satisfiedByVersion(e.Version) {
			continue
		}
		reals = append(reals, e)
	}

	for _, e := range u.byProvides[alt.Name] {
		if !archSatisfies(e, wantArch, fromArch, alt.ArchQualifier != "") {
			continue
		}
		if !provideSatisfiesConstraint(e, alt) {
			continue
		}
		virtuals = append(virtuals, e)
	}

	return append(reals, virtuals...)
}

// provideSatisfiesConstraint implements spec §3: "constrained dependencies
// on a virtual name are satisfied only by provides that carry a matching
// version"; an unconstrained dependency is satisfied by any provide,
// versioned or not.
func provideSatisfiesConstraint(e *Entry, alt Alternative) bool {
	if alt.Constraint == nil || alt.Constraint.Version == nil {
		return true
	}
	for _, pd := range e.Provides {
		if pd.Name != alt.Name {
			continue
		}
		if pd.Version == nil {
			continue // unversioned provide cannot satisfy a constrained dependency
		}
		if alt.Constraint.Version.SatisfiedBy(*pd.Version) {
			return true
		}
	}
	return false
}

// archSatisfies implements Multi-Arch matching (spec §4.4.5): an explicit
// arch qualifier (pkg:amd64) must match exactly; absent a qualifier,
// same-architecture is required unless the candidate declares
// Multi-Arch: foreign.
func archSatisfies(e *Entry, wantArch, fromArch string, qualified bool) bool {
	if e.Architecture == "all" {
		return true
	}
	if qualified {
		return e.Architecture == wantArch
	}
	if e.Architecture == fromArch {
		return true
	}
	return e.MultiArch == "foreign"
}

// Conflicts reports whether a and b cannot be co-installed: a clause of a
// names b (or vice versa) with a constraint b's version satisfies, and the
// conflict has not been cancelled by a matching Replaces+Provides pair
// (spec §4.4.4).
func Conflicts(a, b *Entry) bool {
	return conflictsOneWay(a, b) || conflictsOneWay(b, a)
}

func conflictsOneWay(a, b *Entry) bool {
	for _, clause := range a.Conflicts {
		for _, alt := range clause {
			if alt.Name != b.Name {
				continue
			}
			if !alt.satisfiedByVersion(b.Version) {
				continue
			}
			if replacesCancels(a, b) {
				continue
			}
			return true
		}
	}
	return false
}

// replacesCancels reports whether a's Replaces, combined with a's Provides,
// cancels a's conflict with b: a Replaces b's name AND a Provides a name b
// itself would satisfy, per Debian policy's Replaces-cancels-Conflicts rule
// (spec §4.4.4, §9).
func replacesCancels(a, b *Entry) bool {
	repl := false
	for _, clause := range a.Replaces {
		for _, alt := range clause {
			if alt.Name == b.Name && alt.satisfiedByVersion(b.Version) {
				repl = true
			}
		}
	}
	if !repl {
		return false
	}
	for _, pd := range a.Provides {
		if pd.Name == b.Name {
			return true
		}
	}
	return false
}

// Lookup returns every known version of name in the universe, highest
// version first.
func (u *Universe) Lookup(name string) []*Entry {
	return u.byName[name]
}
