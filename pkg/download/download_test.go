package download

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptprep/aptprep/internal/aptpkgerrors"
	"github.com/aptprep/aptprep/pkg/lockfile"
)

func TestMatchesOnDisk_SizeMismatchIsNotCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello_2.10-2_amd64.deb")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o644))

	entry := lockfile.Entry{Filename: "hello_2.10-2_amd64.deb", Size: 99999}
	assert.False(t, matchesOnDisk(path, entry))
}

func TestMatchesOnDisk_MissingFileIsNotCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.deb")
	assert.False(t, matchesOnDisk(path, lockfile.Entry{Filename: "missing.deb", Size: 5}))
}

func TestMatchesOnDisk_ChecksumMatchIsCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.deb")
	content := []byte("0123456789")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	sum := sha256.Sum256(content)
	entry := lockfile.Entry{
		Filename:     "present.deb",
		Size:         int64(len(content)),
		ChecksumKind: "sha256",
		Checksum:     hex.EncodeToString(sum[:]),
	}
	assert.True(t, matchesOnDisk(path, entry))
}

func TestMatchesOnDisk_ChecksumMismatchIsNotCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.deb")
	content := []byte("0123456789")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	entry := lockfile.Entry{
		Filename:     "corrupt.deb",
		Size:         int64(len(content)),
		ChecksumKind: "sha256",
		Checksum:     strings.Repeat("0", 64),
	}
	assert.False(t, matchesOnDisk(path, entry))
}

func TestAsIntegrityError_ConvertsMismatch(t *testing.T) {
	entry := lockfile.Entry{Name: "hello", Version: "2.10-2", Filename: "hello.deb", ChecksumKind: "sha256", Checksum: "deadbeef"}
	err := &integrityMismatch{entry: entry, reason: "size: got 1, want 2"}

	ie, ok := AsIntegrityError(err)
	require.True(t, ok)
	assert.Equal(t, "hello", ie.Package)
	assert.Equal(t, "sha256", ie.ExpectedKind)
}

func TestAsIntegrityError_RejectsUnrelatedError(t *testing.T) {
	_, ok := AsIntegrityError(os.ErrNotExist)
	assert.False(t, ok)
}

// integrityError is what downloadOne's mismatch branches actually
// return; it must already be the shared taxonomy type so
// cmd/aptprep's exit-code switch can recognize it.
func TestIntegrityError_ReturnsTaxonomyType(t *testing.T) {
	entry := lockfile.Entry{Name: "hello", Version: "2.10-2", Filename: "hello.deb", ChecksumKind: "sha256", Checksum: "deadbeef"}

	err := integrityError(entry, "size: got 1, want 2")

	ie, ok := err.(*aptpkgerrors.IntegrityError)
	require.True(t, ok, "integrityError must return the shared taxonomy type")
	assert.Equal(t, "hello", ie.Package)
}
