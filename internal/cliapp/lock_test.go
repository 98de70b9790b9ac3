package cliapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptprep/aptprep/internal/config"
	"github.com/aptprep/aptprep/pkg/candidate"
)

func TestParseRequest_NameOnly(t *testing.T) {
	req, err := parseRequest("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", req.Name)
	assert.Nil(t, req.Constraint.Constraint)
}

func TestParseRequest_WithConstraint(t *testing.T) {
	req, err := parseRequest("libc6 (>= 2.14)")
	require.NoError(t, err)
	assert.Equal(t, "libc6", req.Name)
	require.NotNil(t, req.Constraint.Constraint)
}

func TestParseRequest_RejectsMalformed(t *testing.T) {
	_, err := parseRequest("libc6 (huh 2.14)")
	assert.Error(t, err)
}

func TestRankOf_OrdersByDeclaration(t *testing.T) {
	cfg := &config.Config{
		SourceRepositories: []config.SourceRepository{
			{SourceURL: "https://a.example/debian"},
			{SourceURL: "https://b.example/debian"},
		},
	}
	rank := rankOf(cfg)
	assert.Equal(t, 0, rank(repoID(0)))
	assert.Equal(t, 1, rank(repoID(1)))
	assert.Equal(t, 2, rank(candidate.RepoID("unknown")))
}

func TestCoordinatesOf_MapsRepoIDToBaseURL(t *testing.T) {
	cfg := &config.Config{
		SourceRepositories: []config.SourceRepository{
			{SourceURL: "https://deb.example/debian"},
		},
	}
	coords := coordinatesOf(cfg)
	require.Contains(t, coords, "repo0")
	assert.Equal(t, "https://deb.example/debian", coords["repo0"].BaseURL)
}
