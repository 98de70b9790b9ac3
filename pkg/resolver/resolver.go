// Package resolver drives a PubGrub-style version solver over a
// candidate.Universe to compute a complete, conflict-free dependency
// closure, or to derive a human-readable explanation when no solution
// exists (spec §4.5).
//
// The vocabulary (incompatibility, unit propagation, decision, derivation)
// follows the pubgrub design surveyed across the retrieval pack; this
// implementation is written from scratch against candidate.Universe rather
// than imported, since the surveyed pubgrub package is reference material
// and was never wired as a dependency (see DESIGN.md).
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/aptprep/aptprep/internal/aptpkgerrors"
	"github.com/aptprep/aptprep/pkg/candidate"
)

// Request is one user-requested top-level package, with its optional
// version constraint, forming the root pseudo-package's dependencies
// (spec §4.5).
type Request struct {
	Name       string
	Constraint candidate.Alternative // Name is ignored; only Constraint fields are read
}

// Solution is the complete, conflict-free closure for one target
// architecture: name -> chosen Entry.
type Solution map[string]*candidate.Entry

// Sorted returns the solution's entries ordered by (name, version) for
// deterministic consumption (spec §4.5 Determinism, §4.6).
func (s Solution) Sorted() []*candidate.Entry {
	out := make([]*candidate.Entry, 0, len(s))
	for _, e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version.String() < out[j].Version.String()
	})
	return out
}

// incompatibility records why a candidate was rejected, for explanation
// construction on total failure.
type incompatibility struct {
	pkg    string
	reason string
}

// decision is one committed assignment, pushed when an entry is committed
// and popped when the search backtracks over it.
type decision struct {
	entry       *candidate.Entry
	requiredBy  string // name of the package whose clause led here ("" for root)
}

// solveState carries the mutable search state through the recursive solve.
type solveState struct {
	universe *candidate.Universe
	arch     string
	assigned map[string]*candidate.Entry
	order    []decision // decision stack, in commit order
	incompat []incompatibility
}

// Solve computes the closure satisfying every request, or returns an
// *aptpkgerrors.ResolutionError describing why none exists. The search is a depth-first,
// chronological backtrack: each committed entry's dependency clauses are
// appended to the frontier (unit propagation), and frontier clauses are
// taken in order — requests first, then dependencies in the order they
// were pulled in — with each clause's candidates tried highest-version-first.
// Clauses are not reordered by how constrained they are.
func Solve(universe *candidate.Universe, requests []Request, arch string) (Solution, error) {
	runID := uuid.New().String()

	st := &solveState{
		universe: universe,
		arch:     arch,
		assigned: map[string]*candidate.Entry{},
	}

	rootClauses := make([]candidate.Clause, 0, len(requests))
	for _, r := range requests {
		alt := candidate.Alternative{Name: r.Name, Constraint: r.Constraint.Constraint}
		rootClauses = append(rootClauses, candidate.Clause{alt})
	}

	ok := st.propagateAndSearch(rootClauses, "")
	if !ok {
		return nil, aptpkgerrors.NewResolutionError(runID, st.explain(requests))
	}
	return Solution(st.assigned), nil
}

// propagateAndSearch satisfies every clause in frontier, recursively
// pulling in each chosen entry's own dependency clauses (unit
// propagation), and backtracks over alternatives on conflict.
func (st *solveState) propagateAndSearch(frontier []candidate.Clause, requiredBy string) bool {
	if len(frontier) == 0 {
		return true
	}

	clause, rest := frontier[0], frontier[1:]

	if already := st.satisfiedByAssignment(clause); already != nil {
		return st.propagateAndSearch(rest, requiredBy)
	}

	candidates := st.universe.Match(clause, st.arch)
	if len(candidates) == 0 {
		st.incompat = append(st.incompat, incompatibility{
			pkg:    clause.String(),
			reason: "no package or provides satisfies this clause",
		})
		return false
	}

	for _, entry := range candidates {
		if existing, ok := st.assigned[entry.Name]; ok {
			if existing != entry {
				continue // a different version of this name is already committed
			}
			if ok2 := st.propagateAndSearch(rest, requiredBy); ok2 {
				return true
			}
			continue
		}

		if conflicting := st.conflictsWithAssignment(entry); conflicting != nil {
			st.incompat = append(st.incompat, incompatibility{
				pkg:    entry.Name,
				reason: fmt.Sprintf("%s %s conflicts with already-selected %s %s", entry.Name, entry.Version, conflicting.Name, conflicting.Version),
			})
			continue
		}

		st.assigned[entry.Name] = entry
		st.order = append(st.order, decision{entry: entry, requiredBy: requiredBy})

		next := append(append([]candidate.Clause{}, rest...), entry.Depends...)
		if st.propagateAndSearch(next, entry.Name) {
			return true
		}

		// Backtrack: undo this decision before trying the next candidate.
		delete(st.assigned, entry.Name)
		st.order = st.order[:len(st.order)-1]
	}

	return false
}

// satisfiedByAssignment returns the already-committed entry that satisfies
// clause, if any.
func (st *solveState) satisfiedByAssignment(clause candidate.Clause) *candidate.Entry {
	for _, e := range st.universe.Match(clause, st.arch) {
		if st.assigned[e.Name] == e {
			return e
		}
	}
	return nil
}

// conflictsWithAssignment returns the first already-committed entry that
// conflicts with candidate entry e, if any (spec §4.4.4, invariant 3 of
// §8).
func (st *solveState) conflictsWithAssignment(e *candidate.Entry) *candidate.Entry {
	for _, existing := range st.assigned {
		if candidate.Conflicts(e, existing) {
			return existing
		}
	}
	return nil
}

// explain renders the recorded incompatibilities into a human-readable
// derivation, naming the requested packages and the conflicting clauses
// (spec §4.5, scenario 4).
func (st *solveState) explain(requests []Request) string {
	var b strings.Builder
	names := make([]string, 0, len(requests))
	for _, r := range requests {
		names = append(names, r.Name)
	}
	fmt.Fprintf(&b, "could not satisfy requested packages: %s\n", strings.Join(names, ", "))
	for _, inc := range st.incompat {
		fmt.Fprintf(&b, "  - %s: %s\n", inc.pkg, inc.reason)
	}
	return b.String()
}
