// Package compression picks a decompressor by filename suffix for the
// Index Parser (spec §4.2): Packages.gz, Packages.xz, and Packages.bz2
// all come out the other side as a plain io.Reader of control-file text,
// and an unrecognized suffix (an already-uncompressed Packages file)
// passes through untouched.
//
// gzip uses klauspost/compress's drop-in faster reader rather than the
// standard library's (SPEC_FULL.md §4.2's domain-stack wiring). xz has
// no standard-library decoder, so xi2.org/x/xz is used. bz2 stays on the
// standard library: no third-party bzip2 decoder appears anywhere in the
// retrieval pack, and the standard library's read-only decoder is all a
// fetch-side consumer needs.
package compression

import (
	"compress/bzip2"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"xi2.org/x/xz"
)

// decoders maps a filename suffix to the reader constructor that
// decompresses it. Suffixes are mutually exclusive, so iteration order
// over the map never matters.
var decoders = map[string]func(io.Reader) (io.Reader, error){
	".gz": func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) },
	".xz": func(r io.Reader) (io.Reader, error) { return xz.NewReader(r, 0) },
	".bz2": func(r io.Reader) (io.Reader, error) {
		return bzip2.NewReader(r), nil
	},
}

// Decompress wraps reader in the decompressor matching fileName's
// suffix, or returns reader unchanged if no suffix matches. When tee is
// non-nil, every byte read from reader (before decompression) is also
// written to tee, so a caller can persist the raw fetched bytes while
// decoding them in the same pass.
func Decompress(reader io.Reader, fileName string, tee io.Writer) (io.Reader, error) {
	if tee != nil {
		reader = io.TeeReader(reader, tee)
	}

	for suffix, newReader := range decoders {
		if !strings.HasSuffix(fileName, suffix) {
			continue
		}
		return newReader(reader)
	}

	return reader, nil
}
