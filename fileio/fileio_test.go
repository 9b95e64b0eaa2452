package fileio

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "barack obama\ncategory living people\nchicago\n"

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"plain.tsv", "data.tsv.gz", "data.tsv.zst", "data.tsv.lz4"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			w, err := OpenOutput(path)
			require.NoError(t, err)
			_, err = io.WriteString(w, sample)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := OpenInput(path)
			require.NoError(t, err)
			defer r.Close()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, sample, string(got))
		})
	}
}

func TestCompressedOutputIsNotPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tsv.gz")

	w, err := OpenOutput(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, strings.Repeat(sample, 100))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, gzipMagic, raw[:2])
}

func TestDecompressSniffsContentNotName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "misleading.tsv")

	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := compress(f, ".zst")
	require.NoError(t, err)
	_, err = io.WriteString(w, sample)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	r, err := OpenInput(path)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, sample, string(got))
}

func TestDecompress_ShortAndEmptyInputs(t *testing.T) {
	r, err := decompress(strings.NewReader(""))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, got)

	r, err = decompress(strings.NewReader("ab"))
	require.NoError(t, err)
	got, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(got))
}

func TestDecompress_Bzip2Detected(t *testing.T) {
	// bzip2 header followed by garbage: detection must hand it to the bzip2
	// reader, which then reports a structural error.
	r, err := decompress(strings.NewReader("BZh9garbage"))
	require.NoError(t, err)
	_, err = io.ReadAll(r)
	assert.Error(t, err)
}

func TestOpenInput_Missing(t *testing.T) {
	_, err := OpenInput(filepath.Join(t.TempDir(), "missing.tsv"))
	assert.Error(t, err)
}
