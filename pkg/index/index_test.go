package index_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pault.ag/go/debian/dependency"
	"pault.ag/go/debian/version"

	"github.com/aptprep/aptprep/pkg/archive"
	"github.com/aptprep/aptprep/pkg/index"
)

func mkPackage(t *testing.T, name, ver, arch string) archive.Package {
	t.Helper()
	v, err := version.Parse(ver)
	require.NoError(t, err)
	return archive.Package{
		Package:      name,
		Version:      v,
		Architecture: dependency.Arch(arch),
		Filename:     name + "_" + ver + "_" + arch + ".deb",
		Size:         100,
		SHA256:       "deadbeef",
	}
}

// WritePackagesFiles merges every architecture into the single flat
// Packages file spec §4.8 requires, at <root>/Packages.
func TestWritePackagesFiles_MergesAllArchitectures(t *testing.T) {
	root := t.TempDir()

	byArch := map[string][]archive.Package{
		"amd64": {mkPackage(t, "hello", "2.10-2", "amd64")},
		"arm64": {mkPackage(t, "hello", "2.10-2", "arm64")},
	}

	target, err := index.WritePackagesFiles(root, byArch)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Packages"), target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "Package: hello"))
}

func TestGenerate_EmptyDirectoryProducesEmptyResult(t *testing.T) {
	root := t.TempDir()

	result, err := index.Generate(root, "", "", "main")
	require.NoError(t, err)
	assert.Empty(t, result.Architectures)
	assert.Nil(t, result.Release)
}

// Generate must write Packages even when no suite is given (only the
// Release is optional, spec §4.8).
func TestGenerate_WritesPackagesFileEvenWithoutSuite(t *testing.T) {
	root := t.TempDir()

	_, err := index.Generate(root, "", "", "main")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "Packages"))
	require.NoError(t, err)
}
