// Package download implements the Downloader (spec §4.7): given a
// resolved Lockfile, it fetches every entry's artifact, verifying it
// against the locked checksum, and lands it at a deterministic path
// under the output directory.
//
// Adapted from the teacher's pool.go/downloader.go: the content-addressed
// blobstore.Store dedup idea survives from pool.go's Pool.Copy, and the
// worker-count-bounded fan-out survives from downloader.go's channel-based
// pool type — generalized here to golang.org/x/sync/{errgroup,semaphore}
// fetching through internal/fetch instead of a single hardcoded mirror
// (SPEC_FULL.md §4.7).
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"pault.ag/go/blobstore"
	"pault.ag/go/debian/control"

	"github.com/aptprep/aptprep/internal/aptpkgerrors"
	"github.com/aptprep/aptprep/internal/fetch"
	"github.com/aptprep/aptprep/pkg/lockfile"
)

// Options configures one Download run.
type Options struct {
	// OutputDir is where verified artifacts are linked to, named after
	// each entry's Filename (spec §4.7).
	OutputDir string

	// Sources maps a lockfile entry's SourceRepository id to the base
	// URL to fetch it from.
	Sources map[string]fetch.Coordinate

	// MaxConcurrentTotal bounds the number of artifacts downloaded at
	// once; per-host bounding happens inside the Fetcher itself.
	MaxConcurrentTotal int

	// ShowProgress renders an aggregate progress bar to stderr.
	ShowProgress bool
}

// Result reports what happened to one locked entry.
type Result struct {
	Entry  lockfile.Entry
	Path   string
	Cached bool // already present at Path with matching size and checksum, not re-fetched over the network
}

// Download fetches every entry in lf, verifying each against its locked
// checksum, and returns one Result per entry in lockfile order. The
// first integrity or fetch failure cancels every other in-flight
// download (structured cancellation via the errgroup-derived context).
func Download(ctx context.Context, f *fetch.Fetcher, store blobstore.Store, lf *lockfile.Lockfile, opts Options) ([]Result, error) {
	if opts.MaxConcurrentTotal <= 0 {
		opts.MaxConcurrentTotal = 16
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, aptpkgerrors.NewIOError(opts.OutputDir, err)
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(len(lf.Entries)), "downloading")
	}

	results := make([]Result, len(lf.Entries))
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(opts.MaxConcurrentTotal))

	for i, entry := range lf.Entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			res, err := downloadOne(gctx, f, store, entry, opts)
			if err != nil {
				return err
			}
			results[i] = *res
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// downloadOne resolves one entry, skipping the network round trip
// entirely if a matching artifact already sits in the output path with
// the right size and checksum (spec §4.7 resumption policy).
func downloadOne(ctx context.Context, f *fetch.Fetcher, store blobstore.Store, entry lockfile.Entry, opts Options) (*Result, error) {
	destPath := filepath.Join(opts.OutputDir, entry.Filename)

	if matchesOnDisk(destPath, entry) {
		return &Result{Entry: entry, Path: destPath, Cached: true}, nil
	}

	coord, ok := opts.Sources[entry.SourceRepository]
	if !ok {
		return nil, fmt.Errorf("download: no source configured for repository %q (package %s)", entry.SourceRepository, entry.Name)
	}

	body, err := f.FetchStream(ctx, coord, entry.Filename, entry.Size, entry.Checksum)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	fh := control.FileHash{
		Filename:  entry.Filename,
		Size:      int(entry.Size),
		Algorithm: entry.ChecksumKind,
		Hash:      entry.Checksum,
	}
	verifier, err := fh.Verifier()
	if err != nil {
		return nil, err
	}

	writer, err := store.Create()
	if err != nil {
		return nil, err
	}
	defer writer.Close()

	n, err := io.Copy(io.MultiWriter(writer, verifier), body)
	if err != nil {
		return nil, aptpkgerrors.NewFetchError(entry.Filename, err)
	}
	if n != entry.Size {
		return nil, integrityError(entry, fmt.Sprintf("size: got %d, want %d", n, entry.Size))
	}
	if err := verifier.Close(); err != nil {
		return nil, integrityError(entry, err.Error())
	}

	obj, err := store.Commit(*writer)
	if err != nil {
		return nil, err
	}
	if err := store.Link(*obj, destPath); err != nil {
		return nil, err
	}

	return &Result{Entry: entry, Path: destPath}, nil
}

// matchesOnDisk reports whether destPath already holds an artifact
// matching entry's locked checksum (spec §4.7 resumption policy: "if
// size matches but checksum differs, it is re-downloaded"). The size
// stat is a cheap first filter; the checksum itself is re-verified by
// streaming the file through the same control.FileHash.Verifier() a
// fresh download would use, so a corrupted-but-right-sized file on disk
// is never mistaken for a cache hit.
func matchesOnDisk(destPath string, entry lockfile.Entry) bool {
	stat, err := os.Stat(destPath)
	if err != nil || stat.Size() != entry.Size {
		return false
	}

	fh := control.FileHash{
		Filename:  entry.Filename,
		Size:      int(entry.Size),
		Algorithm: entry.ChecksumKind,
		Hash:      entry.Checksum,
	}
	verifier, err := fh.Verifier()
	if err != nil {
		return false
	}

	fd, err := os.Open(destPath)
	if err != nil {
		return false
	}
	defer fd.Close()

	if _, err := io.Copy(verifier, fd); err != nil {
		return false
	}
	return verifier.Close() == nil
}

type integrityMismatch struct {
	entry  lockfile.Entry
	reason string
}

func (e *integrityMismatch) Error() string {
	return fmt.Sprintf("integrity check failed for %s %s (%s): %s", e.entry.Name, e.entry.Version, e.entry.Filename, e.reason)
}

// integrityError builds an integrityMismatch for entry and converts it
// straight to the shared error taxonomy member, so every caller along
// the download path (and cmd/aptprep's exit-code mapping) sees a
// *aptpkgerrors.IntegrityError rather than the package-local type.
func integrityError(entry lockfile.Entry, reason string) error {
	err, _ := AsIntegrityError(&integrityMismatch{entry: entry, reason: reason})
	return err
}

// AsIntegrityError converts a download error into the shared
// aptpkgerrors.IntegrityError taxonomy member, if it is one.
func AsIntegrityError(err error) (*aptpkgerrors.IntegrityError, bool) {
	im, ok := err.(*integrityMismatch)
	if !ok {
		return nil, false
	}
	return &aptpkgerrors.IntegrityError{
		Package:       im.entry.Name,
		Version:       im.entry.Version,
		Filename:      im.entry.Filename,
		ExpectedKind:  im.entry.ChecksumKind,
		ExpectedValue: im.entry.Checksum,
		ActualValue:   "(mismatch during streaming verification: " + im.reason + ")",
	}, true
}
