package cliapp

import (
	"context"
	"fmt"

	"pault.ag/go/debian/dependency"

	"github.com/aptprep/aptprep/internal/aptpkgerrors"
	"github.com/aptprep/aptprep/internal/config"
	"github.com/aptprep/aptprep/internal/fetch"
	"github.com/aptprep/aptprep/internal/logging"
	"github.com/aptprep/aptprep/pkg/candidate"
	"github.com/aptprep/aptprep/pkg/lockfile"
	"github.com/aptprep/aptprep/pkg/resolver"
)

// Lock fetches every configured repository's indices, resolves the
// requested packages against each target architecture independently,
// and assembles the combined Lockfile (spec §4.5, §4.6).
func Lock(ctx context.Context, cfg *config.Config) (*lockfile.Lockfile, error) {
	log := logging.FromContext(ctx)
	f := fetch.New(fetch.Config{
		MaxConcurrentPerHost: cfg.Network.MaxPerHost(),
		MaxConcurrentTotal:   cfg.Network.MaxTotal(),
		Timeout:              cfg.Network.PerRequestTimeout(),
	})

	requests := make([]resolver.Request, 0, len(cfg.Packages))
	for _, p := range cfg.Packages {
		req, err := parseRequest(p)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	solutions := map[string]resolver.Solution{}
	for _, arch := range cfg.Output.TargetArchitectures {
		log.Infow("resolving", "architecture", arch)

		sources, err := fetchSources(ctx, f, cfg, arch)
		if err != nil {
			return nil, err
		}

		universe, err := candidate.Build(arch, sources)
		if err != nil {
			return nil, err
		}

		sol, err := resolver.Solve(universe, requests, arch)
		if err != nil {
			return nil, err
		}
		log.Infow("resolved", "architecture", arch, "packages", len(sol))
		solutions[arch] = sol
	}

	return lockfile.FromSolutions(solutions, rankOf(cfg)), nil
}

// parseRequest converts one packages[] config entry into a
// resolver.Request, reusing config.ParsePackageRequest's parse of the
// "name" / "name (OP version)" shape.
func parseRequest(s string) (resolver.Request, error) {
	name, constraint, err := config.ParsePackageRequest(s)
	if err != nil {
		return resolver.Request{}, err
	}
	if constraint == "" {
		return resolver.Request{Name: name, Constraint: candidate.Alternative{Name: name}}, nil
	}

	dep, err := dependency.Parse(fmt.Sprintf("%s (%s)", name, constraint))
	if err != nil {
		return resolver.Request{}, aptpkgerrors.NewConfigError("packages", err)
	}
	clauses := candidate.FromDependency(dep)
	if len(clauses) == 0 || len(clauses[0]) == 0 {
		return resolver.Request{Name: name, Constraint: candidate.Alternative{Name: name}}, nil
	}
	return resolver.Request{Name: name, Constraint: clauses[0][0]}, nil
}
