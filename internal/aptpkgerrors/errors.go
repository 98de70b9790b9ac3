// Package aptpkgerrors implements the error taxonomy aptprep surfaces to its
// callers: ConfigError, FetchError, ParseError, ResolutionError,
// IntegrityError, and IOError. Each carries the context a caller needs to
// diagnose a failure (a URL, a package name+version, a field name) without
// rerunning with --verbose. Wrapped causes carry a stack recorded with
// github.com/pkg/errors.WithStack, reachable through Unwrap; Error() does
// not print it, and the CLI prints only Error().
package aptpkgerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigError reports invalid YAML, a missing required field, or a
// malformed version constraint in the declarative configuration.
type ConfigError struct {
	Field string
	cause error
}

func NewConfigError(field string, cause error) *ConfigError {
	return &ConfigError{Field: field, cause: errors.WithStack(cause)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: field %q: %v", e.Field, e.cause)
}

func (e *ConfigError) Unwrap() error { return e.cause }

// FetchError reports a network/transport failure after retries, a terminal
// 4xx response, or a request timeout.
type FetchError struct {
	URL   string
	cause error
}

func NewFetchError(url string, cause error) *FetchError {
	return &FetchError{URL: url, cause: errors.WithStack(cause)}
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.cause)
}

func (e *FetchError) Unwrap() error { return e.cause }

// ParseError reports a malformed Release/Packages stanza or Debian version
// string.
type ParseError struct {
	Source string // file or URL being parsed
	Field  string // offending field, if known
	cause  error
}

func NewParseError(source, field string, cause error) *ParseError {
	return &ParseError{Source: source, Field: field, cause: errors.WithStack(cause)}
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse %s: %v", e.Source, e.cause)
	}
	return fmt.Sprintf("parse %s: field %q: %v", e.Source, e.Field, e.cause)
}

func (e *ParseError) Unwrap() error { return e.cause }

// ResolutionError reports that no solution exists. Explanation carries a
// human-readable PubGrub-style derivation of the conflict; RunID is a
// per-Solve correlation id shown in the error's header line. It is not
// written to the logs.
type ResolutionError struct {
	RunID       string
	Explanation string
}

func NewResolutionError(runID, explanation string) *ResolutionError {
	return &ResolutionError{RunID: runID, Explanation: explanation}
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution failed (run %s):\n%s", e.RunID, e.Explanation)
}

// IntegrityError reports a size or checksum mismatch on a downloaded
// artifact. It is always terminal for that artifact.
type IntegrityError struct {
	Package       string
	Version       string
	Filename      string
	ExpectedKind  string
	ExpectedValue string
	ActualValue   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf(
		"integrity check failed for %s %s (%s): expected %s %s, got %s",
		e.Package, e.Version, e.Filename, e.ExpectedKind, e.ExpectedValue, e.ActualValue,
	)
}

// IOError reports a local filesystem failure.
type IOError struct {
	Path  string
	cause error
}

func NewIOError(path string, cause error) *IOError {
	return &IOError{Path: path, cause: errors.WithStack(cause)}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io %s: %v", e.Path, e.cause)
}

func (e *IOError) Unwrap() error { return e.cause }
