package cliapp

import (
	"github.com/aptprep/aptprep/pkg/index"
)

// GeneratePackagesFile regenerates the Packages file(s) under outputDir
// from the artifacts already downloaded there (spec §4.8). suite may be
// empty to skip the optional Release.
func GeneratePackagesFile(outputDir, suite, codename, component string) (*index.Result, error) {
	return index.Generate(outputDir, suite, codename, component)
}
