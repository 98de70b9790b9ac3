// Package index implements the Local Indexer (spec §4.8): given a
// directory of already-downloaded .deb artifacts, it regenerates a
// fresh, sorted Packages file (and an optional unsigned Release) so the
// output directory is directly consumable as an APT source, without
// ever trusting whatever metadata shipped with the artifact.
//
// Adapted from the teacher's Archive.Engross/Suite/Binaries
// (archive.go): that code engrossed packages staged for publication
// into a signed, on-disk pool; this walks a directory of already-locked
// artifacts and regenerates the index from their own bytes instead, with
// no OpenPGP signing step (see DESIGN.md).
package index

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"pault.ag/go/debian/control"
	"pault.ag/go/debian/deb"
	"pault.ag/go/debian/dependency"
	"pault.ag/go/debian/transput"

	"github.com/aptprep/aptprep/internal/aptpkgerrors"
	"github.com/aptprep/aptprep/pkg/archive"
)

// hashAlgorithms mirrors the teacher's Suite.features.Hashes: every
// generated Packages/Release entry carries all three. The order here does
// not affect selection; archive.Release.Indices picks sha256 as the
// strongest of the three.
var hashAlgorithms = []string{"md5", "sha1", "sha256"}

// Result is the outcome of one Generate call: the regenerated binary
// package entries, grouped the way the teacher's Binaries groups them,
// plus the optional Release wrapping their checksums.
type Result struct {
	Architectures map[string][]archive.Package // keyed by architecture
	Release       *archive.Release
}

// Generate walks root for *.deb files, recomputes each one's Package
// stanza and checksums from its own bytes (never trusting a
// pre-existing Packages file in root), and returns the regenerated,
// sorted index. suite/codename/component name the emitted Release;
// pass an empty suite to skip Release generation entirely.
func Generate(root, suite, codename, component string) (*Result, error) {
	debPaths, err := findDebs(root)
	if err != nil {
		return nil, err
	}

	byArch := map[string][]archive.Package{}
	for _, path := range debPaths {
		pkg, err := packageFromDeb(root, path)
		if err != nil {
			return nil, errors.Wrapf(err, "index: %s", path)
		}
		arch := string(pkg.Architecture)
		byArch[arch] = append(byArch[arch], *pkg)
	}

	for arch := range byArch {
		sortPackages(byArch[arch])
	}

	result := &Result{Architectures: byArch}

	if _, err := WritePackagesFiles(root, byArch); err != nil {
		return nil, err
	}

	if suite == "" {
		return result, nil
	}

	release, err := generateRelease(root, component, suite, codename, archsOf(byArch))
	if err != nil {
		return nil, err
	}
	result.Release = release
	return result, nil
}

// findDebs returns every *.deb path under root, sorted, so the walk
// itself is deterministic (spec §4.8 idempotence).
func findDebs(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".deb") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, aptpkgerrors.NewIOError(root, err)
	}
	sort.Strings(out)
	return out, nil
}

// packageFromDeb loads path, recomputes its multi-hash from the
// artifact's own bytes, and merges those over the .deb's embedded
// control section. Adapted from the teacher's PackageFromDeb
// (packages.go of the archive-building tool this descends from); unlike
// that version, it writes all three hashes via transput.Hasher rather
// than ad hoc crypto/* hashers, matching the Local Indexer's [DOMAIN
// STACK] wiring (SPEC_FULL.md §4.8).
func packageFromDeb(root, path string) (*archive.Package, error) {
	debFile, err := deb.LoadFile(path)
	if err != nil {
		return nil, err
	}

	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return nil, aptpkgerrors.NewIOError(path, err)
	}

	fd, err := os.Open(path)
	if err != nil {
		return nil, aptpkgerrors.NewIOError(path, err)
	}
	defer fd.Close()

	stat, err := fd.Stat()
	if err != nil {
		return nil, aptpkgerrors.NewIOError(path, err)
	}

	sink := bytes.Buffer{}
	writer, hashers, err := transput.NewHasherWriters(hashAlgorithms, &sink)
	if err != nil {
		return nil, err
	}
	n, err := io.Copy(writer, fd)
	if err != nil {
		return nil, aptpkgerrors.NewIOError(path, err)
	}
	if n != stat.Size() {
		return nil, fmt.Errorf("index: %s: read %d bytes, stat reported %d", path, n, stat.Size())
	}

	pkg := archive.Package{}
	paragraph := debFile.Control.Paragraph
	paragraph.Set("Filename", filepath.ToSlash(relPath))
	paragraph.Set("Size", fmt.Sprintf("%d", stat.Size()))

	for _, hasher := range hashers {
		fh := control.FileHashFromHasher(path, *hasher)
		switch fh.Algorithm {
		case "md5":
			paragraph.Set("MD5sum", fh.Hash)
		case "sha1":
			paragraph.Set("SHA1", fh.Hash)
		case "sha256":
			paragraph.Set("SHA256", fh.Hash)
		}
	}

	if err := control.UnpackFromParagraph(paragraph, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

func sortPackages(pkgs []archive.Package) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		if pkgs[i].Package != pkgs[j].Package {
			return pkgs[i].Package < pkgs[j].Package
		}
		return pkgs[i].Version.String() < pkgs[j].Version.String()
	})
}

// packagesFileName is the flat, single-file index spec §4.8 requires:
// one Packages stanza stream at <output>/Packages, covering every
// architecture found under root.
const packagesFileName = "Packages"

// WritePackagesFiles merges every architecture's sorted Package slice
// into one stanza stream, sorted by architecture then package name then
// version, and writes it to <root>/Packages via control.NewEncoder
// (mirrors the teacher's Binaries.WriteArchTo, minus the per-arch
// directory fan-out spec §4.8 doesn't call for). Returns the path
// written.
func WritePackagesFiles(root string, byArch map[string][]archive.Package) (string, error) {
	target := filepath.Join(root, packagesFileName)

	fd, err := os.Create(target)
	if err != nil {
		return "", aptpkgerrors.NewIOError(target, err)
	}

	encoder, err := control.NewEncoder(fd)
	if err != nil {
		fd.Close()
		return "", err
	}
	for _, arch := range archsOf(byArch) {
		for _, pkg := range byArch[string(arch)] {
			if err := encoder.Encode(pkg); err != nil {
				fd.Close()
				return "", err
			}
		}
	}
	if err := fd.Close(); err != nil {
		return "", aptpkgerrors.NewIOError(target, err)
	}
	return target, nil
}

// archsOf returns byArch's keys, sorted, as dependency.Arch values.
func archsOf(byArch map[string][]archive.Package) []dependency.Arch {
	archs := make([]dependency.Arch, 0, len(byArch))
	for arch := range byArch {
		archs = append(archs, dependency.Arch(arch))
	}
	sort.Slice(archs, func(i, j int) bool { return archs[i] < archs[j] })
	return archs
}

// generateRelease hashes the already-written <root>/Packages file and
// assembles an unsigned Release naming it, mirroring Archive.Engross
// minus the OpenPGP clearsign step.
func generateRelease(root, component, suite, codename string, archs []dependency.Arch) (*archive.Release, error) {
	release := &archive.Release{
		Suite:         suite,
		Codename:      codename,
		Components:    []string{component},
		Architectures: archs,
	}

	fullPath := filepath.Join(root, packagesFileName)
	fd, err := os.Open(fullPath)
	if err != nil {
		return nil, aptpkgerrors.NewIOError(fullPath, err)
	}
	defer fd.Close()

	sink := bytes.Buffer{}
	writer, hashers, err := transput.NewHasherWriters(hashAlgorithms, &sink)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(writer, fd); err != nil {
		return nil, aptpkgerrors.NewIOError(fullPath, err)
	}

	for _, hasher := range hashers {
		fh := control.FileHashFromHasher(packagesFileName, *hasher)
		if err := release.AddHash(fh); err != nil {
			return nil, err
		}
	}

	return release, nil
}
