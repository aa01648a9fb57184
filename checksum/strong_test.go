package checksum_test

import (
	"testing"

	"github.com/nthconn/rsyncgo/checksum"
	"github.com/stretchr/testify/require"
)

func TestParseTypeRoundtrip(t *testing.T) {
	for _, typ := range []checksum.Type{checksum.Md4, checksum.Md5, checksum.Xxh64, checksum.Xxh3_64, checksum.Xxh3_128} {
		got, ok := checksum.ParseType(typ.String())
		require.True(t, ok)
		require.Equal(t, typ, got)
	}
	_, ok := checksum.ParseType("sha1")
	require.False(t, ok)
}

func TestDefaultLength(t *testing.T) {
	require.Equal(t, 2, checksum.Md4.DefaultLength(29))
	require.Equal(t, 2, checksum.Md5.DefaultLength(29))
	require.Equal(t, 16, checksum.Md5.DefaultLength(30))
	require.Equal(t, 8, checksum.Xxh64.DefaultLength(31))
	require.Equal(t, 16, checksum.Xxh3_128.DefaultLength(31))
}

// TestStrongDeterminism checks that a fixed seed and algorithm produce
// byte-identical output across runs.
func TestStrongDeterminism(t *testing.T) {
	block := []byte("the quick brown fox jumps over the lazy dog")
	for _, typ := range []checksum.Type{checksum.Md4, checksum.Md5, checksum.Xxh64, checksum.Xxh3_64, checksum.Xxh3_128} {
		a, err := checksum.BlockStrong(typ, 12345, block)
		require.NoError(t, err)
		b, err := checksum.BlockStrong(typ, 12345, block)
		require.NoError(t, err)
		require.Equal(t, a, b, "type %v", typ)

		c, err := checksum.BlockStrong(typ, 54321, block)
		require.NoError(t, err)
		require.NotEqual(t, a, c, "different seed must change digest for %v", typ)
	}
}

func TestStrongLengths(t *testing.T) {
	block := []byte("data")
	md5sum, err := checksum.BlockStrong(checksum.Md5, 1, block)
	require.NoError(t, err)
	require.Len(t, md5sum, 16)

	xxh64sum, err := checksum.BlockStrong(checksum.Xxh64, 1, block)
	require.NoError(t, err)
	require.Len(t, xxh64sum, 8)

	xxh128sum, err := checksum.BlockStrong(checksum.Xxh3_128, 1, block)
	require.NoError(t, err)
	require.Len(t, xxh128sum, 16)
}

func TestEmptyBlockChecksum(t *testing.T) {
	for _, typ := range []checksum.Type{checksum.Md4, checksum.Md5, checksum.Xxh64, checksum.Xxh3_64, checksum.Xxh3_128} {
		_, err := checksum.BlockStrong(typ, 0, nil)
		require.NoError(t, err)
	}
}
