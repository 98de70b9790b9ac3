// Package config loads and validates the declarative YAML configuration
// that names upstream repositories, target architectures, and the
// top-level packages to resolve.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aptprep/aptprep/internal/aptpkgerrors"
)

// Config is the top-level shape of the YAML file described in SPEC_FULL.md
// §6.
type Config struct {
	Output             OutputConfig       `yaml:"output"`
	SourceRepositories []SourceRepository `yaml:"source_repositories"`
	Packages           []string           `yaml:"packages"`
	Network            NetworkConfig      `yaml:"network"`
}

// OutputConfig describes where resolved artifacts and the local index land.
type OutputConfig struct {
	Path                 string   `yaml:"path"`
	TargetArchitectures []string `yaml:"target_architectures"`
}

// SourceRepository is one configured upstream Debian-style repository. A
// single entry may expand into several repository coordinates once crossed
// with its architectures, distributions, and components.
type SourceRepository struct {
	SourceURL        string   `yaml:"source_url"`
	Architectures    []string `yaml:"architectures"`
	Distributions    []string `yaml:"distributions"`
	DistributionPath string   `yaml:"distribution_path"`
	Components       []string `yaml:"components"`
}

// NetworkConfig carries the optional timeout/concurrency overrides.
// [SPEC_FULL.md §6 AMBIENT additions]
type NetworkConfig struct {
	PerRequestTimeoutSeconds int `yaml:"per_request_timeout_seconds"`
	OverallTimeoutMinutes    int `yaml:"overall_timeout_minutes"`
	MaxConcurrentPerHost     int `yaml:"max_concurrent_per_host"`
	MaxConcurrentTotal       int `yaml:"max_concurrent_total"`
}

const (
	defaultPerRequestTimeoutSeconds = 60
	defaultOverallTimeoutMinutes    = 30
	defaultMaxConcurrentPerHost     = 4
	defaultMaxConcurrentTotal       = 16
)

// PerRequestTimeout returns the configured per-request timeout, or the
// spec's default of 60s.
func (n NetworkConfig) PerRequestTimeout() time.Duration {
	if n.PerRequestTimeoutSeconds <= 0 {
		return defaultPerRequestTimeoutSeconds * time.Second
	}
	return time.Duration(n.PerRequestTimeoutSeconds) * time.Second
}

// OverallTimeout returns the configured overall per-operation timeout, or
// the spec's default of 30m.
func (n NetworkConfig) OverallTimeout() time.Duration {
	if n.OverallTimeoutMinutes <= 0 {
		return defaultOverallTimeoutMinutes * time.Minute
	}
	return time.Duration(n.OverallTimeoutMinutes) * time.Minute
}

// MaxPerHost returns the configured per-host concurrency cap, or the
// spec's default of 4.
func (n NetworkConfig) MaxPerHost() int {
	if n.MaxConcurrentPerHost <= 0 {
		return defaultMaxConcurrentPerHost
	}
	return n.MaxConcurrentPerHost
}

// MaxTotal returns the configured overall concurrency cap, or the spec's
// default of 16.
func (n NetworkConfig) MaxTotal() int {
	if n.MaxConcurrentTotal <= 0 {
		return defaultMaxConcurrentTotal
	}
	return n.MaxConcurrentTotal
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, aptpkgerrors.NewConfigError("(file)", fmt.Errorf("reading %s: %w", path, err))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, aptpkgerrors.NewConfigError("(yaml)", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the required fields named in SPEC_FULL.md §6 and
// normalizes defaults (components default to ["main"]).
func (c *Config) Validate() error {
	if len(c.Output.TargetArchitectures) == 0 {
		return aptpkgerrors.NewConfigError("output.target_architectures", fmt.Errorf("must list at least one architecture"))
	}
	if len(c.SourceRepositories) == 0 {
		return aptpkgerrors.NewConfigError("source_repositories", fmt.Errorf("must configure at least one source"))
	}
	for i := range c.SourceRepositories {
		repo := &c.SourceRepositories[i]
		if repo.SourceURL == "" {
			return aptpkgerrors.NewConfigError(fmt.Sprintf("source_repositories[%d].source_url", i), fmt.Errorf("required"))
		}
		if len(repo.Architectures) == 0 {
			return aptpkgerrors.NewConfigError(fmt.Sprintf("source_repositories[%d].architectures", i), fmt.Errorf("required"))
		}
		if len(repo.Components) == 0 {
			repo.Components = []string{"main"}
		}
		if repo.DistributionPath == "" && len(repo.Distributions) == 0 {
			return aptpkgerrors.NewConfigError(
				fmt.Sprintf("source_repositories[%d]", i),
				fmt.Errorf("must set either distributions or distribution_path"),
			)
		}
	}
	for _, p := range c.Packages {
		if _, _, err := ParsePackageRequest(p); err != nil {
			return aptpkgerrors.NewConfigError("packages", err)
		}
	}
	return nil
}

// ParsePackageRequest splits a `packages[]` entry of the form `name` or
// `name (OP version)` into a package name and its optional version
// constraint string (e.g. ">= 1.2.3"), suitable for
// debver-constraint-adjacent parsing by the candidate model.
func ParsePackageRequest(s string) (name string, constraint string, err error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open < 0 {
		if s == "" {
			return "", "", fmt.Errorf("empty package request")
		}
		return s, "", nil
	}
	close := strings.IndexByte(s, ')')
	if close < open {
		return "", "", fmt.Errorf("malformed package request %q: unbalanced parentheses", s)
	}
	name = strings.TrimSpace(s[:open])
	constraint = strings.TrimSpace(s[open+1 : close])
	if name == "" {
		return "", "", fmt.Errorf("malformed package request %q: missing name", s)
	}
	valid := map[string]bool{"=": true, "<<": true, "<=": true, ">=": true, ">>": true}
	fields := strings.Fields(constraint)
	if len(fields) != 2 || !valid[fields[0]] {
		return "", "", fmt.Errorf("malformed package request %q: constraint must be one of = << <= >= >>", s)
	}
	return name, constraint, nil
}
