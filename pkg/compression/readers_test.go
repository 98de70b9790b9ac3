package compression

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecompress_GzipSuffixIsTransparent(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte("Package: hello\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := Decompress(&buf, "Packages.gz", nil)
	require.NoError(t, err)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Package: hello\n", string(data))
}

func TestDecompress_UnknownSuffixPassesThrough(t *testing.T) {
	r, err := Decompress(bytes.NewBufferString("Package: hello\n"), "Packages", nil)
	require.NoError(t, err)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Package: hello\n", string(data))
}

func TestDecompress_TeesRawBytes(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte("raw"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	compressed := buf.Bytes()
	var tee bytes.Buffer
	r, err := Decompress(bytes.NewReader(compressed), "Packages.gz", &tee)
	require.NoError(t, err)
	_, err = io.ReadAll(r)
	require.NoError(t, err)

	assert.Equal(t, compressed, tee.Bytes())
}
