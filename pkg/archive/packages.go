/* {{{ Copyright (c) Paul R. Tagliamonte <paultag@debian.org>, 2015
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
 * THE SOFTWARE. }}} */

package archive

import (
	"io"
	"os"

	"pault.ag/go/debian/control"
	"pault.ag/go/debian/dependency"
	"pault.ag/go/debian/version"
)

// Package {{{

// Package is a binary .deb entry as it exists in a Packages file: the
// control information plus where the artifact lives, its size, and its
// checksums. Required fields per SPEC_FULL.md §3: Package, Version,
// Architecture, Filename, Size, and at least one checksum.
type Package struct {
	control.Paragraph

	Package       string `required:"true"`
	Source        string
	Version       version.Version `required:"true"`
	Section       string
	Priority      string
	Architecture  dependency.Arch `required:"true"`
	Essential     string
	MultiArch     string `control:"Multi-Arch"`
	InstalledSize int    `control:"Installed-Size"`
	Maintainer    string
	Description   string
	Homepage      string

	// Depends and PreDepends are merged at the candidate-model layer
	// (pre-depends carries no ordering significance at resolution time).
	Depends    *dependency.Dependency
	PreDepends *dependency.Dependency `control:"Pre-Depends"`

	// Recommends and Suggests are parsed but ignored by default by the
	// candidate model (spec §3, §4.4).
	Recommends *dependency.Dependency
	Suggests   *dependency.Dependency

	Conflicts *dependency.Dependency
	Breaks    *dependency.Dependency
	Replaces  *dependency.Dependency
	Provides  *dependency.Dependency

	Filename string `required:"true"`
	Size     int    `required:"true"`
	MD5sum   string
	SHA1     string
	SHA256   string
	SHA512   string

	DescriptionMD5 string `control:"Description-md5"`
}

// StrongestChecksum follows the order of hashPriority in release.go (there
// is no SHA384 field on Package, so that slot is skipped); Package stanzas
// name their checksums as flat fields rather than a file index, so
// selection is a simple fallthrough instead of a map.
func (p *Package) StrongestChecksum() (kind, value string, ok bool) {
	switch {
	case p.SHA512 != "":
		return "sha512", p.SHA512, true
	case p.SHA256 != "":
		return "sha256", p.SHA256, true
	case p.SHA1 != "":
		return "sha1", p.SHA1, true
	case p.MD5sum != "":
		return "md5", p.MD5sum, true
	default:
		return "", "", false
	}
}

// }}}

// Packages {{{

// Packages is an iterator over the entries of a Packages file.
type Packages struct {
	decoder *control.Decoder
}

// Next returns the next Package entry, or io.EOF at the end of the file.
func (p *Packages) Next() (*Package, error) {
	next := Package{}
	return &next, p.decoder.Decode(&next)
}

// All drains the iterator into a slice. Used once a Packages file has been
// fully fetched and decompressed into memory; the candidate model never
// needs to stream package-by-package since a repository's closure-relevant
// universe must be held in memory for the solver anyway (spec §3
// Lifecycles).
func (p *Packages) All() ([]Package, error) {
	var ret []Package
	for {
		pkg, err := p.Next()
		if err == io.EOF {
			return ret, nil
		} else if err != nil {
			return nil, err
		}
		ret = append(ret, *pkg)
	}
}

// LoadPackagesFile opens path and returns a Packages iterator over it. The
// Packages file is not OpenPGP signed; its integrity must come from the
// Release file's checksum, not from this call.
func LoadPackagesFile(path string) (*Packages, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return LoadPackages(fd)
}

// LoadPackages returns a Packages iterator over r.
func LoadPackages(in io.Reader) (*Packages, error) {
	decoder, err := control.NewDecoder(in, nil)
	if err != nil {
		return nil, err
	}
	return &Packages{decoder: decoder}, nil
}

// }}}

// vim: foldmethod=marker
