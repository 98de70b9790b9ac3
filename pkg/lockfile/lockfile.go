// Package lockfile renders a resolver.Solution into the on-disk
// reproducibility contract: a canonical, deterministically ordered YAML
// document naming exactly the artifact each future download/generate step
// must fetch and verify (spec §4.6).
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/aptprep/aptprep/internal/aptpkgerrors"
	"github.com/aptprep/aptprep/pkg/candidate"
	"github.com/aptprep/aptprep/pkg/resolver"
)

// FormatVersion is bumped whenever the on-disk shape changes
// incompatibly. A lockfile with an unrecognized FormatVersion is
// refused by Load rather than silently misinterpreted.
const FormatVersion = 1

// Entry is one locked package: exactly the fields a later download or
// Local Indexer step needs to fetch and verify the artifact, plus the
// source repository it was locked against for auditability.
type Entry struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version"`
	Architecture string `yaml:"architecture"`

	SourceRepository string `yaml:"source_repository"`

	// Depends records the dependency clauses this entry was resolved
	// against, rendered the way they appear in a Depends field (e.g.
	// "libc6 (>= 2.14)"), for audit (spec.md §3 "Lockfile entry").
	Depends []string `yaml:"depends,omitempty"`

	Filename     string `yaml:"filename"`
	Size         int64  `yaml:"size"`
	ChecksumKind string `yaml:"checksum_kind"`
	Checksum     string `yaml:"checksum"`
}

// Lockfile is the full reproducibility record for one invocation: every
// entry in the resolved closure, across every target architecture,
// canonically ordered (spec §4.6).
type Lockfile struct {
	FormatVersion int     `yaml:"format_version"`
	Entries       []Entry `yaml:"packages"`
}

// sourceRank ranks a RepoID by the index of its source repository in the
// configuration, for the tie-break rule in FromSolutions: entries sharing
// (architecture, name, version) are ordered by the lower-indexed
// source_repositories[] entry first, then Filename ascending. It orders
// entries only; which stanza of a version is kept is decided earlier, by
// candidate.Build.
type sourceRank func(candidate.RepoID) int

// FromSolutions assembles a Lockfile from one resolver.Solution per
// target architecture. rank provides the source_repositories[] index
// for each RepoID, used only to break ties; it is not itself recorded.
func FromSolutions(solutions map[string]resolver.Solution, rank sourceRank) *Lockfile {
	lf := &Lockfile{FormatVersion: FormatVersion}

	for arch, sol := range solutions {
		for _, e := range sol.Sorted() {
			depends := make([]string, 0, len(e.Depends))
			for _, clause := range e.Depends {
				depends = append(depends, clause.String())
			}

			lf.Entries = append(lf.Entries, Entry{
				Name:             e.Name,
				Version:          e.Version.String(),
				Architecture:     arch,
				SourceRepository: string(e.RepoID),
				Depends:          depends,
				Filename:         e.Filename,
				Size:             e.Size,
				ChecksumKind:     e.ChecksumKind,
				Checksum:         e.Checksum,
			})
		}
	}

	sort.SliceStable(lf.Entries, func(i, j int) bool {
		a, b := lf.Entries[i], lf.Entries[j]
		if a.Architecture != b.Architecture {
			return a.Architecture < b.Architecture
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		if rank != nil {
			ra, rb := rank(candidate.RepoID(a.SourceRepository)), rank(candidate.RepoID(b.SourceRepository))
			if ra != rb {
				return ra < rb
			}
		}
		return a.Filename < b.Filename
	})

	return lf
}

// Load reads and parses a lockfile, rejecting an unrecognized
// FormatVersion outright rather than guessing at a newer shape.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, aptpkgerrors.NewIOError(path, err)
	}

	var lf Lockfile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, aptpkgerrors.NewParseError(path, "", err)
	}
	if lf.FormatVersion != FormatVersion {
		return nil, aptpkgerrors.NewParseError(path, "format_version",
			fmt.Errorf("unsupported lockfile format_version %d (want %d)", lf.FormatVersion, FormatVersion))
	}
	return &lf, nil
}

// Write serializes the lockfile to path as canonical YAML, atomically: the
// document is written to a sibling temp file, fsynced, and renamed into
// place, so a crash mid-write never leaves a torn lockfile behind (spec
// §4.6 reproducibility / idempotence).
func (lf *Lockfile) Write(path string) error {
	data, err := yaml.Marshal(lf)
	if err != nil {
		return errors.Wrap(err, "lockfile: marshaling")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".lockfile-*.tmp")
	if err != nil {
		return aptpkgerrors.NewIOError(path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return aptpkgerrors.NewIOError(tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return aptpkgerrors.NewIOError(tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return aptpkgerrors.NewIOError(tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return aptpkgerrors.NewIOError(path, err)
	}
	return nil
}
