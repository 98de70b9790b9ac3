package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptprep/aptprep/internal/config"
)

const sampleYAML = `
output:
  path: ./out
  target_architectures: ["amd64"]
source_repositories:
  - source_url: https://deb.debian.org/debian
    architectures: ["amd64"]
    distributions: ["bookworm"]
packages:
  - hello
  - "nginx (= 1.18.0-6ubuntu14)"
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"amd64"}, cfg.Output.TargetArchitectures)
	assert.Equal(t, []string{"main"}, cfg.SourceRepositories[0].Components)
	assert.Equal(t, 60, int(cfg.Network.PerRequestTimeout().Seconds()))
}

func TestLoad_MissingArchitectures(t *testing.T) {
	path := writeTemp(t, `
output:
  path: ./out
source_repositories:
  - source_url: https://deb.debian.org/debian
    architectures: ["amd64"]
    distributions: ["bookworm"]
`)
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestParsePackageRequest(t *testing.T) {
	cases := []struct {
		in             string
		name, op, vers string
		wantErr        bool
	}{
		{in: "hello", name: "hello"},
		{in: "nginx (= 1.18.0-6ubuntu14)", name: "nginx", op: "=", vers: "1.18.0-6ubuntu14"},
		{in: "libc6 (>= 2.14)", name: "libc6", op: ">=", vers: "2.14"},
		{in: "broken (~ 1.0)", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		name, constraint, err := config.ParsePackageRequest(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.name, name)
		if tc.op != "" {
			assert.Equal(t, tc.op+" "+tc.vers, constraint)
		}
	}
}
