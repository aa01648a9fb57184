package muxio_test

import (
	"bytes"
	"testing"

	"github.com/nthconn/rsyncgo/muxio"
	"github.com/stretchr/testify/require"
)

func TestCompressionAlgoRoundtrip(t *testing.T) {
	for _, algo := range []muxio.CompressionAlgo{muxio.CompressNone, muxio.CompressZlib, muxio.CompressZlibX, muxio.CompressLz4, muxio.CompressZstd} {
		got, ok := muxio.ParseCompressionAlgo(algo.String())
		require.True(t, ok)
		require.Equal(t, algo, got)
	}
	_, ok := muxio.ParseCompressionAlgo("bzip2")
	require.False(t, ok)
}

func TestNoneCompressorIsIdentity(t *testing.T) {
	c, err := muxio.NewCompressor(muxio.CompressNone, 0)
	require.NoError(t, err)
	d, err := muxio.NewDecompressor(muxio.CompressNone)
	require.NoError(t, err)

	payload := []byte("payload data")
	compressed, err := c.CompressChunk(payload)
	require.NoError(t, err)
	require.Equal(t, payload, compressed)

	plain, err := d.DecompressChunk(compressed)
	require.NoError(t, err)
	require.Equal(t, payload, plain)
}

func TestZlibCompressDecompressRoundtrip(t *testing.T) {
	for _, algo := range []muxio.CompressionAlgo{muxio.CompressZlib, muxio.CompressZlibX} {
		c, err := muxio.NewCompressor(algo, 6)
		require.NoError(t, err)
		d, err := muxio.NewDecompressor(algo)
		require.NoError(t, err)

		payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 20)
		compressed, err := c.CompressChunk(payload)
		require.NoError(t, err)
		require.NotEmpty(t, compressed)

		plain, err := d.DecompressChunk(compressed)
		require.NoError(t, err)
		require.Equal(t, payload, plain, "algo %v", algo)
	}
}

func TestLz4CompressDecompressRoundtrip(t *testing.T) {
	c, err := muxio.NewCompressor(muxio.CompressLz4, 0)
	require.NoError(t, err)
	d, err := muxio.NewDecompressor(muxio.CompressLz4)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("lz4 roundtrip payload "), 50)
	compressed, err := c.CompressChunk(payload)
	require.NoError(t, err)

	plain, err := d.DecompressChunk(compressed)
	require.NoError(t, err)
	require.Equal(t, payload, plain)
}

func TestLz4EmptyChunk(t *testing.T) {
	c, err := muxio.NewCompressor(muxio.CompressLz4, 0)
	require.NoError(t, err)
	d, err := muxio.NewDecompressor(muxio.CompressLz4)
	require.NoError(t, err)

	compressed, err := c.CompressChunk(nil)
	require.NoError(t, err)
	require.Empty(t, compressed)

	plain, err := d.DecompressChunk(compressed)
	require.NoError(t, err)
	require.Empty(t, plain)
}

func TestZstdCompressDecompressRoundtrip(t *testing.T) {
	c, err := muxio.NewCompressor(muxio.CompressZstd, 0)
	require.NoError(t, err)
	d, err := muxio.NewDecompressor(muxio.CompressZstd)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("zstd roundtrip payload "), 50)
	compressed, err := c.CompressChunk(payload)
	require.NoError(t, err)

	plain, err := d.DecompressChunk(compressed)
	require.NoError(t, err)
	require.Equal(t, payload, plain)
}
