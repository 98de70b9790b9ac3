package debver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptprep/aptprep/internal/debver"
)

func mustParse(t *testing.T, s string) debver.Version {
	t.Helper()
	v, err := debver.Parse(s)
	require.NoError(t, err, "parse %q", s)
	return v
}

func TestCompare_MissingEpochIsZero(t *testing.T) {
	a := mustParse(t, "1.0-1")
	b := mustParse(t, "0:1.0-1")
	assert.True(t, debver.Equal(a, b), "%q should equal %q", a, b)
}

func TestCompare_MissingRevisionSortsBeforeAny(t *testing.T) {
	a := mustParse(t, "1.0") // no revision
	b := mustParse(t, "1.0-1")
	assert.True(t, debver.Less(a, b), "%q should sort before %q", a, b)
}

func TestCompare_TildeOrdering(t *testing.T) {
	// 1.0~beta < 1.0 < 1.0a, per Debian policy 5.6.12.
	tildeBeta := mustParse(t, "1.0~beta")
	release := mustParse(t, "1.0")
	withSuffix := mustParse(t, "1.0a")

	assert.True(t, debver.Less(tildeBeta, release))
	assert.True(t, debver.Less(release, withSuffix))
}

func TestCompare_TildeSortsBeforeEmptyString(t *testing.T) {
	// After the common "1.0", "~" is compared against the end of the string.
	a := mustParse(t, "1.0~")
	b := mustParse(t, "1.0")
	assert.True(t, debver.Less(a, b))
}

func TestCompare_Totality(t *testing.T) {
	versions := []string{"0.9", "1.0~rc1", "1.0", "1.0-1", "1.0-2", "2.0", "1:0.1"}
	for i, si := range versions {
		for j, sj := range versions {
			vi := mustParse(t, si)
			vj := mustParse(t, sj)
			cmp := debver.Compare(vi, vj)
			switch {
			case i < j:
				assert.LessOrEqual(t, cmp, 0, "%s vs %s", si, sj)
			case i > j:
				assert.GreaterOrEqual(t, cmp, 0, "%s vs %s", si, sj)
			default:
				assert.Equal(t, 0, cmp, "%s vs %s", si, sj)
			}
		}
	}
}

func TestCompare_Transitive(t *testing.T) {
	a := mustParse(t, "1.0")
	b := mustParse(t, "1.1")
	c := mustParse(t, "1.2")
	require.True(t, debver.Less(a, b))
	require.True(t, debver.Less(b, c))
	assert.True(t, debver.Less(a, c))
}
