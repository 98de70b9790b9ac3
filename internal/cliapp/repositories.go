// Package cliapp wires the typed config, logging, and error taxonomy
// packages into the three operations the CLI exposes: lock, download,
// and generate_packages_file_from_lockfile (spec §6).
package cliapp

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"pault.ag/go/debian/control"

	"github.com/aptprep/aptprep/internal/aptpkgerrors"
	"github.com/aptprep/aptprep/internal/config"
	"github.com/aptprep/aptprep/internal/fetch"
	"github.com/aptprep/aptprep/internal/logging"
	"github.com/aptprep/aptprep/pkg/archive"
	"github.com/aptprep/aptprep/pkg/candidate"
	"github.com/aptprep/aptprep/pkg/compression"
)

// repoID assigns each configured source repository a stable id by
// declaration order, used both as the Candidate Model's RepoID and as
// the lockfile's source_repository tie-break rank (spec §4.6).
func repoID(i int) candidate.RepoID {
	return candidate.RepoID(fmt.Sprintf("repo%d", i))
}

// rankOf builds the FromSolutions tie-break function over a config's
// declared source order.
func rankOf(cfg *config.Config) func(candidate.RepoID) int {
	rank := map[candidate.RepoID]int{}
	for i := range cfg.SourceRepositories {
		rank[repoID(i)] = i
	}
	return func(r candidate.RepoID) int {
		if v, ok := rank[r]; ok {
			return v
		}
		return len(rank)
	}
}

// coordinatesOf maps each repoID to the fetch.Coordinate it should be
// reached through, for the Downloader (spec §4.7) and the Fetcher (A).
func coordinatesOf(cfg *config.Config) map[string]fetch.Coordinate {
	out := map[string]fetch.Coordinate{}
	for i, repo := range cfg.SourceRepositories {
		out[string(repoID(i))] = fetch.Coordinate{BaseURL: repo.SourceURL}
	}
	return out
}

// fetchSources fetches and parses every configured repository's
// Packages indices for arch. A repository whose architectures list does
// not include arch is skipped; only binary-<arch> indices are fetched, and
// any Architecture: all stanzas they carry are kept by candidate.Build. Each
// distribution's Release file is fetched first and consulted for the
// strongest-available compressed variant and its checksum, per spec §4.2
// / the Config → A (fetch Release+Packages) → B (parse) data flow;
// a distribution with no fetchable Release falls back to guessing the
// standard Debian-layout path directly.
func fetchSources(ctx context.Context, f *fetch.Fetcher, cfg *config.Config, arch string) ([]candidate.Source, error) {
	log := logging.FromContext(ctx)

	var sources []candidate.Source
	for i, repo := range cfg.SourceRepositories {
		if !containsString(repo.Architectures, arch) {
			continue
		}
		id := repoID(i)
		coord := fetch.Coordinate{BaseURL: repo.SourceURL}

		dists := repo.Distributions
		if repo.DistributionPath != "" {
			dists = []string{""}
		}

		for _, dist := range dists {
			base := "dists/" + dist
			if repo.DistributionPath != "" {
				base = repo.DistributionPath
			}

			release, err := fetchRelease(ctx, f, coord, base)
			if err != nil {
				log.Debugw("no usable Release file, falling back to path guessing", "repo", id, "distribution", dist, "err", err)
			}

			for _, component := range repo.Components {
				log.Debugw("fetching packages index", "repo", id, "distribution", dist, "component", component, "arch", arch)
				pkgs, err := fetchPackagesIndex(ctx, f, coord, base, release, component, arch)
				if err != nil {
					return nil, err
				}
				sources = append(sources, candidate.Source{RepoID: id, Packages: pkgs})
			}
		}
	}
	return sources, nil
}

// fetchRelease fetches and parses the plaintext Release file at base.
// No OpenPGP signature is requested or verified (spec Non-goal; see
// DESIGN.md) — this is purely to learn the strongest-available Packages
// variant and its checksum before fetching it.
func fetchRelease(ctx context.Context, f *fetch.Fetcher, coord fetch.Coordinate, base string) (*archive.Release, error) {
	data, err := f.Fetch(ctx, coord, path.Join(base, "Release"))
	if err != nil {
		return nil, err
	}
	return archive.LoadRelease(bytes.NewReader(data))
}

// fetchPackagesIndex resolves one (component, arch)'s Packages file.
// When release is non-nil, the strongest compressed variant it lists
// for that path is fetched and checksum-verified before parsing. When
// release is nil (no Release file for this distribution, e.g. a flat
// distribution_path layout), it falls back to probing the standard
// suffixes directly.
func fetchPackagesIndex(ctx context.Context, f *fetch.Fetcher, coord fetch.Coordinate, base string, release *archive.Release, component, arch string) ([]archive.Package, error) {
	binaryPath := path.Join(component, fmt.Sprintf("binary-%s", arch), "Packages")

	if release != nil {
		indices := release.Indices()
		for _, suffix := range []string{".xz", ".gz", ""} {
			relPath := binaryPath + suffix
			entry, ok := indices[relPath]
			if !ok {
				continue
			}
			data, err := f.Fetch(ctx, coord, path.Join(base, relPath))
			if err != nil {
				return nil, err
			}
			if err := verifyIndexHash(data, entry); err != nil {
				return nil, err
			}
			return decodePackages(data, relPath)
		}
	}

	for _, suffix := range []string{".xz", ".gz", ""} {
		data, err := f.Fetch(ctx, coord, path.Join(base, binaryPath+suffix))
		if err != nil {
			continue
		}
		return decodePackages(data, binaryPath+suffix)
	}
	return nil, aptpkgerrors.NewFetchError(binaryPath, fmt.Errorf("no Packages index found (tried Release-listed and guessed .xz, .gz, uncompressed)"))
}

// verifyIndexHash checks data against the Release-listed checksum for
// the path it was fetched from, so a corrupted or tampered index is
// caught before it ever reaches the Candidate Model.
func verifyIndexHash(data []byte, entry archive.FileEntry) error {
	fh := control.FileHash{
		Filename:  entry.Path,
		Size:      int(entry.Size),
		Algorithm: entry.ChecksumKind,
		Hash:      entry.Checksum,
	}
	verifier, err := fh.Verifier()
	if err != nil {
		return aptpkgerrors.NewFetchError(entry.Path, err)
	}
	if _, err := verifier.Write(data); err != nil {
		return aptpkgerrors.NewFetchError(entry.Path, err)
	}
	if err := verifier.Close(); err != nil {
		return aptpkgerrors.NewFetchError(entry.Path, fmt.Errorf("checksum mismatch: %w", err))
	}
	return nil
}

func decodePackages(data []byte, fileName string) ([]archive.Package, error) {
	r, err := compression.Decompress(bytes.NewReader(data), fileName, nil)
	if err != nil {
		return nil, aptpkgerrors.NewParseError(fileName, "", err)
	}
	pkgs, err := archive.LoadPackages(r)
	if err != nil {
		return nil, aptpkgerrors.NewParseError(fileName, "", err)
	}
	return pkgs.All()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
