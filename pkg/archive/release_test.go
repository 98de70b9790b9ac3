package archive_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pault.ag/go/debian/control"

	"github.com/aptprep/aptprep/pkg/archive"
)

const sampleRelease = `Origin: Example
Label: Example
Suite: stable
Codename: bookworm
Components: main
Architectures: amd64
Date: Mon, 01 Jan 2024 00:00:00 UTC
MD5Sum:
 d41d8cd98f00b204e9800998ecf8427e 0 main/binary-amd64/Packages
SHA1:
 da39a3ee5e6b4b0d3255bfef95601890afd80709 0 main/binary-amd64/Packages
SHA256:
 e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855 0 main/binary-amd64/Packages
`

func TestLoadRelease_ParsesFields(t *testing.T) {
	r, err := archive.LoadRelease(strings.NewReader(sampleRelease))
	require.NoError(t, err)
	assert.Equal(t, "bookworm", r.Codename)
	assert.Equal(t, "stable", r.Suite)
	assert.Equal(t, []string{"main"}, r.Components)
}

func TestRelease_Indices_PrefersStrongestChecksum(t *testing.T) {
	r, err := archive.LoadRelease(strings.NewReader(sampleRelease))
	require.NoError(t, err)

	entry, ok := r.Indices()["main/binary-amd64/Packages"]
	require.True(t, ok)
	assert.Equal(t, "sha256", entry.ChecksumKind)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", entry.Checksum)
}

func TestRelease_AddHash_RoundTrips(t *testing.T) {
	r := &archive.Release{Suite: "stable"}
	require.NoError(t, r.AddHash(control.FileHash{
		Filename:  "Packages",
		Size:      42,
		Algorithm: "sha256",
		Hash:      "deadbeef",
	}))

	entry, ok := r.Indices()["Packages"]
	require.True(t, ok)
	assert.Equal(t, int64(42), entry.Size)
	assert.Equal(t, "deadbeef", entry.Checksum)
}

func TestRelease_AddHash_RejectsUnknownAlgorithm(t *testing.T) {
	r := &archive.Release{}
	err := r.AddHash(control.FileHash{Filename: "Packages", Algorithm: "crc32"})
	assert.Error(t, err)
}
