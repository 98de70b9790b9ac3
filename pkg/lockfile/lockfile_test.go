package lockfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pault.ag/go/debian/version"

	"github.com/aptprep/aptprep/pkg/candidate"
	"github.com/aptprep/aptprep/pkg/lockfile"
	"github.com/aptprep/aptprep/pkg/resolver"
)

func entry(t *testing.T, name, ver, arch, repo string) *candidate.Entry {
	t.Helper()
	v, err := version.Parse(ver)
	require.NoError(t, err)
	return &candidate.Entry{
		Name:         name,
		Version:      v,
		Architecture: arch,
		RepoID:       candidate.RepoID(repo),
		Filename:     name + "_" + ver + "_" + arch + ".deb",
		Size:         1234,
		ChecksumKind: "sha256",
		Checksum:     "deadbeef",
	}
}

func TestFromSolutions_SortedByArchNameVersion(t *testing.T) {
	solutions := map[string]resolver.Solution{
		"amd64": {
			"zlib": entry(t, "zlib", "1.0", "amd64", "repo0"),
			"apt":  entry(t, "apt", "2.0", "amd64", "repo0"),
		},
		"arm64": {
			"apt": entry(t, "apt", "2.0", "arm64", "repo0"),
		},
	}

	lf := lockfile.FromSolutions(solutions, nil)
	require.Len(t, lf.Entries, 3)

	assert.Equal(t, "amd64", lf.Entries[0].Architecture)
	assert.Equal(t, "apt", lf.Entries[0].Name)
	assert.Equal(t, "amd64", lf.Entries[1].Architecture)
	assert.Equal(t, "zlib", lf.Entries[1].Name)
	assert.Equal(t, "arm64", lf.Entries[2].Architecture)
}

func TestFromSolutions_RankIsUsedWhenProvided(t *testing.T) {
	a := entry(t, "pkg", "1.0", "amd64", "mirror-b")
	b := entry(t, "pkg", "1.0", "amd64", "mirror-a")

	rank := func(r candidate.RepoID) int {
		if r == "mirror-a" {
			return 0
		}
		return 1
	}

	// Same (architecture, name, version, Filename): only rank orders them.
	solutions := map[string]resolver.Solution{
		"amd64": {"pkg": a, "pkg-other-source": b},
	}

	lf := lockfile.FromSolutions(solutions, rank)
	require.Len(t, lf.Entries, 2)
	assert.Equal(t, "mirror-a", lf.Entries[0].SourceRepository)
	assert.Equal(t, "mirror-b", lf.Entries[1].SourceRepository)
}

func TestLockfile_WriteAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aptprep.lock.yaml")

	solutions := map[string]resolver.Solution{
		"amd64": {
			"hello": entry(t, "hello", "2.10-2", "amd64", "repo0"),
		},
	}
	lf := lockfile.FromSolutions(solutions, nil)

	require.NoError(t, lf.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "format_version")

	loaded, err := lockfile.Load(path)
	require.NoError(t, err)
	assert.Equal(t, lockfile.FormatVersion, loaded.FormatVersion)
	require.Len(t, loaded.Entries, 1)
	assert.Equal(t, "hello", loaded.Entries[0].Name)
	assert.Equal(t, "2.10-2", loaded.Entries[0].Version)
}

func TestFromSolutions_CarriesResolvedDependsForAudit(t *testing.T) {
	e := entry(t, "hello", "2.10-2", "amd64", "repo0")
	e.Depends = []candidate.Clause{
		{{Name: "libc6"}},
		{{Name: "default-mta"}, {Name: "mail-transport-agent"}},
	}

	solutions := map[string]resolver.Solution{
		"amd64": {"hello": e},
	}

	lf := lockfile.FromSolutions(solutions, nil)
	require.Len(t, lf.Entries, 1)
	assert.Equal(t, []string{"libc6", "default-mta | mail-transport-agent"}, lf.Entries[0].Depends)
}

func TestLockfile_Load_RejectsUnknownFormatVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aptprep.lock.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format_version: 99\npackages: []\n"), 0o644))

	_, err := lockfile.Load(path)
	require.Error(t, err)
}

func TestLockfile_Write_IsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aptprep.lock.yaml")

	lf := lockfile.FromSolutions(map[string]resolver.Solution{}, nil)
	require.NoError(t, lf.Write(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no leftover temp file after a successful write")
}
